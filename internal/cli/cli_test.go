package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/config"
	"mixdown.dev/internal/fs"
	"mixdown.dev/internal/history"
)

// nullDevice opens the silent polling backend with short buffers so tests run
// quickly
var nullDevice = []string{"--device", "null", "--params", "buffer=20"}

type testEnv struct {
	fs        afero.Fs
	factory   audio.BackendFactory
	historyDB string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	memFS := afero.NewMemMapFs()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	t.Setenv("MIXDOWN_HISTORY_DB", dbPath)
	t.Setenv("MIXDOWN_HISTORY", "")
	t.Setenv("MIXDOWN_DEVICE", "")
	t.Setenv("MIXDOWN_VOLUME", "")

	factory := audio.NewBackendFactoryWithDependencies(
		func() bool { return false },
		func(string) bool { return false },
	)
	return &testEnv{fs: memFS, factory: factory, historyDB: dbPath}
}

// run executes one command line on a fresh CLI, as a new process would
func (e *testEnv) run(args ...string) (int, string, string) {
	c := NewCLI(
		WithConfigManager(config.NewConfigManagerWithFilesystem(e.fs)),
		WithFilesystemFactory(fs.NewMemoryFactory(e.fs)),
		WithBackendFactory(e.factory),
	)
	var stdout, stderr bytes.Buffer
	code := c.Run(append([]string{"mixdown"}, args...), strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// writeTone writes a mono 16-bit sine at 44100 Hz
func (e *testEnv) writeTone(t *testing.T, path string, d time.Duration) {
	t.Helper()
	f, err := e.fs.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	tone := audio.NewTone(440)
	if _, err := audio.ExportWAV(f, tone, tone.Format().Frames(d)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeSilence writes a stereo 16-bit WAV of silence at rate
func (e *testEnv) writeSilence(t *testing.T, path string, rate int, d time.Duration) {
	t.Helper()
	format := audio.Format{Channels: 2, SampleRate: rate, SampleFormat: audio.FormatS16LE}
	src, err := audio.NewBufferSource(format, make([]byte, format.Frames(d)*format.FrameSize()))
	if err != nil {
		t.Fatalf("buffer: %v", err)
	}
	f, err := e.fs.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if _, err := audio.ExportWAV(f, src, 0); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (e *testEnv) events(t *testing.T) []history.Event {
	t.Helper()
	store, err := history.Open(e.historyDB)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	events, err := store.GetRecentEvents(history.QueryFilter{})
	if err != nil {
		t.Fatalf("read history: %v", err)
	}
	return events
}

func TestVersion(t *testing.T) {
	for _, args := range [][]string{{"--version"}, {"-v"}, {"version"}} {
		env := newTestEnv(t)
		code, stdout, stderr := env.run(args...)
		if code != 0 {
			t.Fatalf("%v: exit %d, stderr %s", args, code, stderr)
		}
		if !strings.Contains(stdout, "mixdown version "+Version) {
			t.Errorf("%v: unexpected output %q", args, stdout)
		}
	}
}

func TestPlayOnNullDevice(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/sounds/beep.wav", 100*time.Millisecond)

	code, _, stderr := env.run(append(nullDevice, "play", "/sounds/beep.wav")...)
	if code != 0 {
		t.Fatalf("play failed: exit %d, stderr %s", code, stderr)
	}

	events := env.events(t)
	if len(events) != 1 {
		t.Fatalf("expected 1 history event, got %d", len(events))
	}
	e := events[0]
	if e.Kind != history.KindPlay || e.Backend != audio.BackendNull || !e.Completed {
		t.Errorf("unexpected event %+v", e)
	}
	if e.Frames != 4410 {
		t.Errorf("expected 4410 frames played, got %d", e.Frames)
	}
	if !strings.HasSuffix(e.Path, "beep.wav") {
		t.Errorf("unexpected path %q", e.Path)
	}
}

func TestPlayFindsSoundsInConfiguredPaths(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/library/chime.wav", 50*time.Millisecond)
	afero.WriteFile(env.fs, "/mixdown.json", []byte(`{"sound_paths": ["/library"]}`), 0644)

	code, _, stderr := env.run(append(nullDevice, "--config", "/mixdown.json", "play", "chime")...)
	if code != 0 {
		t.Fatalf("play failed: exit %d, stderr %s", code, stderr)
	}
	if events := env.events(t); len(events) != 1 || events[0].Path != "/library/chime.wav" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestPlayErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv)
		args    []string
		wantErr string
	}{
		{
			name:    "missing file",
			args:    []string{"play", "/nowhere/missing.wav"},
			wantErr: "sound file not found",
		},
		{
			name: "mismatched rates",
			setup: func(t *testing.T, env *testEnv) {
				env.writeSilence(t, "/a.wav", 44100, 50*time.Millisecond)
				env.writeSilence(t, "/b.wav", 22050, 50*time.Millisecond)
			},
			args:    []string{"play", "/a.wav", "/b.wav"},
			wantErr: "sample rate",
		},
		{
			name:    "pan out of range",
			setup:   func(t *testing.T, env *testEnv) { env.writeTone(t, "/a.wav", 10*time.Millisecond) },
			args:    []string{"play", "--pan", "2", "/a.wav"},
			wantErr: "pan must be between",
		},
		{
			name:    "volume out of range",
			setup:   func(t *testing.T, env *testEnv) { env.writeTone(t, "/a.wav", 10*time.Millisecond) },
			args:    []string{"--volume", "1.5", "play", "/a.wav"},
			wantErr: "invalid configuration",
		},
		{
			name:    "pan not a number",
			setup:   func(t *testing.T, env *testEnv) { env.writeTone(t, "/a.wav", 10*time.Millisecond) },
			args:    []string{"play", "--pan", "NaN", "/a.wav"},
			wantErr: "pan must be between",
		},
		{
			name:    "volume not a number",
			setup:   func(t *testing.T, env *testEnv) { env.writeTone(t, "/a.wav", 10*time.Millisecond) },
			args:    []string{"--volume", "NaN", "play", "/a.wav"},
			wantErr: "invalid configuration",
		},
		{
			name: "volume not a number from the environment",
			setup: func(t *testing.T, env *testEnv) {
				t.Setenv("MIXDOWN_VOLUME", "NaN")
				env.writeTone(t, "/a.wav", 10*time.Millisecond)
			},
			args:    []string{"play", "/a.wav"},
			wantErr: "invalid configuration",
		},
		{
			name:    "unknown device",
			args:    []string{"--device", "jukebox", "play", "/a.wav"},
			wantErr: "invalid configuration",
		},
		{
			name:    "no files",
			args:    []string{"play"},
			wantErr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(t, env)
			}
			args := tt.args
			if args[0] == "play" {
				args = append(append([]string{}, nullDevice...), args...)
			}
			code, _, stderr := env.run(args...)
			if code == 0 {
				t.Fatal("expected a failing exit code")
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("expected %q in stderr, got %q", tt.wantErr, stderr)
			}
		})
	}
}

func TestPlayRepeatStopsAtDuration(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/loop.wav", 20*time.Millisecond)

	code, _, stderr := env.run(append(nullDevice, "play", "--repeat", "--duration", "100ms", "/loop.wav")...)
	if code != 0 {
		t.Fatalf("play failed: exit %d, stderr %s", code, stderr)
	}
	events := env.events(t)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Completed {
		t.Error("a looping sound cut off by --duration should not count as completed")
	}
	if events[0].Frames <= 882 {
		t.Errorf("expected the loop to play past one pass, got %d frames", events[0].Frames)
	}
}

func TestToneOnNullDevice(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := env.run(append(nullDevice, "tone", "--freq", "880", "--wave", "square", "--duration", "50ms")...)
	if code != 0 {
		t.Fatalf("tone failed: exit %d, stderr %s", code, stderr)
	}
	events := env.events(t)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Kind != history.KindTone || events[0].Path != "tone:square:880Hz" || !events[0].Completed {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestToneRejectsBadInput(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"tone", "--wave", "sawtooth"}, "unknown waveform"},
		{[]string{"tone", "--freq", "-1"}, "frequency must be between"},
		{[]string{"tone", "--freq", "NaN"}, "frequency must be between"},
		{[]string{"tone", "--pan", "NaN"}, "pan must be between"},
		{[]string{"tone", "--level", "NaN"}, "level must be between"},
		{[]string{"--params", "rate=48000", "tone", "--duration", "10ms"}, "sample rate"},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		args := append([]string{"--device", "null"}, tt.args...)
		code, _, stderr := env.run(args...)
		if code == 0 || !strings.Contains(stderr, tt.wantErr) {
			t.Errorf("%v: expected failure with %q, got exit %d and %q", tt.args, tt.wantErr, code, stderr)
		}
	}
}

func TestRenderWritesMix(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/a.wav", 200*time.Millisecond)
	env.writeTone(t, "/b.wav", 100*time.Millisecond)

	code, stdout, stderr := env.run("render", "/a.wav", "/b.wav", "-o", "/mix.wav")
	if code != 0 {
		t.Fatalf("render failed: exit %d, stderr %s", code, stderr)
	}
	if !strings.Contains(stdout, "rendered /mix.wav") {
		t.Errorf("unexpected output %q", stdout)
	}

	src, err := audio.OpenSampleSource(env.fs, "/mix.wav", audio.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("rendered file does not decode: %v", err)
	}
	defer src.Close()
	format := src.Format()
	if format.SampleRate != 44100 || format.Channels != audio.DefaultChannels {
		t.Errorf("unexpected render format %s", format)
	}
	if got := src.Length(); got < 8820 {
		t.Errorf("expected at least 8820 frames, got %d", got)
	}

	events := env.events(t)
	if len(events) != 2 {
		t.Fatalf("expected one event per input, got %d", len(events))
	}
	for _, e := range events {
		if e.Kind != history.KindRender || e.Backend != audio.BackendWavFile || !e.Completed {
			t.Errorf("unexpected event %+v", e)
		}
	}
}

func TestRenderDurationAndRepeat(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/loop.wav", 50*time.Millisecond)

	code, _, stderr := env.run("render", "--repeat", "/loop.wav", "-o", "/out.wav")
	if code == 0 || !strings.Contains(stderr, "--repeat needs --duration") {
		t.Fatalf("expected --repeat without --duration to fail, got exit %d and %q", code, stderr)
	}

	code, _, stderr = env.run("--params", "channels=1", "render", "--repeat", "--duration", "1s", "/loop.wav", "-o", "/out.wav")
	if code != 0 {
		t.Fatalf("render failed: exit %d, stderr %s", code, stderr)
	}
	src, err := audio.OpenSampleSource(env.fs, "/out.wav", audio.NewDefaultRegistry())
	if err != nil {
		t.Fatalf("rendered file does not decode: %v", err)
	}
	defer src.Close()
	if src.Format().Channels != 1 {
		t.Errorf("expected mono output, got %s", src.Format())
	}
	// the last tick may overshoot by up to one buffer
	if got := src.Length(); got < 44100 || got > 44100+4410 {
		t.Errorf("expected about one second of audio, got %d frames", got)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	env.writeSilence(t, "/in.wav", 22050, 500*time.Millisecond)

	tests := []struct {
		name       string
		args       []string
		wantFrames int
		wantRate   int
	}{
		{"whole file", []string{"export", "/in.wav", "-o", "/whole.wav"}, 11025, 22050},
		{"limited", []string{"export", "--duration", "100ms", "/in.wav", "-o", "/part.wav"}, 2205, 22050},
		{"tone", []string{"export", "--tone", "--freq", "880", "--duration", "250ms", "-o", "/tone.wav"}, 11025, audio.ToneRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.run(tt.args...)
			if code != 0 {
				t.Fatalf("export failed: exit %d, stderr %s", code, stderr)
			}
			out := tt.args[len(tt.args)-1]
			src, err := audio.OpenSampleSource(env.fs, out, audio.NewDefaultRegistry())
			if err != nil {
				t.Fatalf("exported file does not decode: %v", err)
			}
			defer src.Close()
			if src.Length() != tt.wantFrames || src.Format().SampleRate != tt.wantRate {
				t.Errorf("got %d frames at %d Hz, want %d at %d", src.Length(), src.Format().SampleRate, tt.wantFrames, tt.wantRate)
			}
		})
	}
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		args    []string
		wantErr string
	}{
		{[]string{"export", "--tone", "-o", "/t.wav"}, "--tone needs --duration"},
		{[]string{"export", "--tone", "--duration", "1s", "/in.wav", "-o", "/t.wav"}, "not both"},
		{[]string{"export", "-o", "/t.wav"}, "an input file or --tone is required"},
		{[]string{"export", "/in.wav"}, "required flag(s) \"output\" not set"},
	}
	for _, tt := range tests {
		env := newTestEnv(t)
		code, _, stderr := env.run(tt.args...)
		if code == 0 || !strings.Contains(stderr, tt.wantErr) {
			t.Errorf("%v: expected failure with %q, got exit %d and %q", tt.args, tt.wantErr, code, stderr)
		}
	}
}

// probeFactory hands out null backends under every name except dll
type probeFactory struct {
	*audio.DefaultBackendFactory
}

func (probeFactory) CreateBackend(name string) (audio.Backend, error) {
	if name == audio.BackendDLL {
		return nil, audio.ErrBackendNotAvailable
	}
	return audio.NewNullBackend(), nil
}

func (probeFactory) AutodetectOrder() []string {
	return []string{audio.BackendMalgo, audio.BackendDLL, audio.BackendNull}
}

func TestBackendsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.factory = probeFactory{audio.NewBackendFactory()}

	code, stdout, stderr := env.run("backends", "--probe")
	if code != 0 {
		t.Fatalf("backends failed: exit %d, stderr %s", code, stderr)
	}
	if strings.Contains(stdout, audio.DeviceAutodetect) {
		t.Errorf("autodetect is not a device and should not be listed:\n%s", stdout)
	}

	rows := map[string][]string{}
	for _, line := range strings.Split(stdout, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			rows[fields[0]] = fields
		}
	}
	tests := []struct {
		device string
		rank   string
		status string
	}{
		{audio.BackendMalgo, "1", "ok"},
		{audio.BackendDLL, "2", "unavailable:"},
		{audio.BackendNull, "3", "ok"},
		{audio.BackendOto, "-", ""},
		{audio.BackendWavFile, "-", ""},
	}
	for _, tt := range tests {
		row, ok := rows[tt.device]
		if !ok {
			t.Errorf("no row for %s:\n%s", tt.device, stdout)
			continue
		}
		if row[1] != tt.rank {
			t.Errorf("%s: rank %s, want %s", tt.device, row[1], tt.rank)
		}
		if tt.status == "" && len(row) > 2 {
			t.Errorf("%s: expected no probe status, got %v", tt.device, row[2:])
		}
		if tt.status != "" && (len(row) < 3 || row[2] != tt.status) {
			t.Errorf("%s: expected status %q, got %v", tt.device, tt.status, row)
		}
	}
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)
	env.writeTone(t, "/a.wav", 20*time.Millisecond)
	for i := 0; i < 2; i++ {
		if code, _, stderr := env.run(append(nullDevice, "play", "/a.wav")...); code != 0 {
			t.Fatalf("play failed: %s", stderr)
		}
	}
	if code, _, stderr := env.run("export", "/a.wav", "-o", "/b.wav"); code != 0 {
		t.Fatalf("export failed: %s", stderr)
	}

	code, stdout, stderr := env.run("history", "--json")
	if code != 0 {
		t.Fatalf("history failed: exit %d, stderr %s", code, stderr)
	}
	var events []history.Event
	if err := json.Unmarshal([]byte(stdout), &events); err != nil {
		t.Fatalf("history --json is not valid JSON: %v\n%s", err, stdout)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}

	code, stdout, _ = env.run("history", "--kind", "play", "--top")
	if code != 0 || !strings.Contains(stdout, "/a.wav") || !strings.Contains(stdout, "COUNT") {
		t.Errorf("unexpected top output (exit %d):\n%s", code, stdout)
	}

	code, stdout, _ = env.run("history", "--summary", "--since", "today")
	if code != 0 || !strings.Contains(stdout, "Events:     3 (3 completed)") {
		t.Errorf("unexpected summary output (exit %d):\n%s", code, stdout)
	}

	code, _, stderr = env.run("history", "--kind", "karaoke")
	if code == 0 || !strings.Contains(stderr, "unknown kind") {
		t.Errorf("expected an unknown kind error, got exit %d and %q", code, stderr)
	}

	code, _, stderr = env.run("history", "--since", "banana")
	if code == 0 {
		t.Errorf("expected an unparseable --since to fail, got %q", stderr)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("MIXDOWN_HISTORY", "false")
	env.writeTone(t, "/a.wav", 10*time.Millisecond)

	if code, _, stderr := env.run(append(nullDevice, "play", "/a.wav")...); code != 0 {
		t.Fatalf("play failed with history disabled: %s", stderr)
	}
	code, _, stderr := env.run("history")
	if code == 0 || !strings.Contains(stderr, "disabled") {
		t.Errorf("expected history to report it is disabled, got exit %d and %q", code, stderr)
	}
}

func TestHistoryDatabaseFailureDoesNotStopPlayback(t *testing.T) {
	env := newTestEnv(t)
	// a directory cannot be opened as a database
	t.Setenv("MIXDOWN_HISTORY_DB", t.TempDir())
	env.writeTone(t, "/a.wav", 10*time.Millisecond)

	if code, _, stderr := env.run(append(nullDevice, "play", "/a.wav")...); code != 0 {
		t.Fatalf("play should succeed without history, got %s", stderr)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	env := newTestEnv(t)

	code, stdout, stderr := env.run("--config", "/etc/mixdown.json", "config", "init")
	if code != 0 {
		t.Fatalf("config init failed: %s", stderr)
	}
	if !strings.Contains(stdout, "wrote /etc/mixdown.json") {
		t.Errorf("unexpected output %q", stdout)
	}
	if code, _, stderr := env.run("--config", "/etc/mixdown.json", "config", "init"); code == 0 || !strings.Contains(stderr, "--force") {
		t.Errorf("expected init to keep an existing file, got exit %d and %q", code, stderr)
	}
	if code, _, stderr := env.run("--config", "/etc/mixdown.json", "config", "init", "--force"); code != 0 {
		t.Errorf("init --force failed: %s", stderr)
	}

	code, stdout, stderr = env.run("--config", "/etc/mixdown.json", "--device", "null", "config", "show")
	if code != 0 {
		t.Fatalf("config show failed: %s", stderr)
	}
	var shown config.Config
	if err := json.Unmarshal([]byte(stdout), &shown); err != nil {
		t.Fatalf("config show is not JSON: %v\n%s", err, stdout)
	}
	if shown.OutputDevice != "null" || shown.Volume != 1.0 {
		t.Errorf("unexpected effective config %+v", shown)
	}
}

func TestConfigPaths(t *testing.T) {
	env := newTestEnv(t)
	code, stdout, stderr := env.run("config", "paths")
	if code != 0 {
		t.Fatalf("config paths failed: %s", stderr)
	}
	for _, want := range []string{"Config files:", "config.json", "Sound directories:", env.historyDB} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in %q", want, stdout)
		}
	}
}
