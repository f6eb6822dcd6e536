package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"mixdown.dev/internal/audio"
	"mixdown.dev/internal/history"
)

// soundOptions apply to every sound a command opens
type soundOptions struct {
	mode   audio.SoundMode
	repeat bool
	pan    float32
	seek   time.Duration
}

func addSoundFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("repeat", "r", false, "Loop every sound until stopped")
	cmd.Flags().Bool("buffer", false, "Decode sounds into memory before playing")
	cmd.Flags().Duration("seek", 0, "Start every seekable sound at this offset")
	cmd.Flags().Float32("pan", 0, "Balance from -1 (left) to 1 (right)")
	cmd.Flags().Duration("duration", 0, "Stop after this much audio (0 = until the sounds end)")
}

func (c *CLI) readSoundOptions(cmd *cobra.Command) (soundOptions, error) {
	repeat, _ := cmd.Flags().GetBool("repeat")
	buffer, _ := cmd.Flags().GetBool("buffer")
	seek, _ := cmd.Flags().GetDuration("seek")
	pan, _ := cmd.Flags().GetFloat32("pan")

	if !(pan >= -1 && pan <= 1) {
		return soundOptions{}, fmt.Errorf("pan must be between -1 and 1, got %g", pan)
	}
	if seek < 0 {
		return soundOptions{}, fmt.Errorf("seek cannot be negative")
	}

	mode := audio.ParseSoundMode(c.config.SoundMode)
	if buffer {
		mode = audio.SoundBuffer
	}
	return soundOptions{mode: mode, repeat: repeat, pan: pan, seek: seek}, nil
}

func newPlayCommand(c *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play FILE...",
		Short: "Play one or more sound files mixed together",
		Long: `Play one or more sound files mixed together on the output device.

A relative name that does not exist is also looked up in the configured sound
directories, and a name without extension is tried with each supported one
(wav, ogg, flac, mp3, aiff).

The device runs at the sample rate of the first file unless a rate is given
with --params; every file must share that rate.

Examples:
  mixdown play bell.wav
  mixdown play --repeat --duration 30s rain.ogg thunder.flac
  mixdown play --device oto --params "buffer=50" chime
  mixdown play --background alarm.mp3`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runPlay,
	}
	addSoundFlags(cmd)
	cmd.Flags().BoolP("background", "b", false, "Return immediately and play from a detached process")
	cmd.Flags().Bool("daemon-child", false, "Internal flag for detached playback")
	cmd.Flags().MarkHidden("daemon-child")
	return cmd
}

func (c *CLI) runPlay(cmd *cobra.Command, args []string) error {
	slog.Debug("running play command", "files", args)

	background, _ := cmd.Flags().GetBool("background")
	if background && shouldDetachPlayback(cmd) {
		// the child may run elsewhere, so it gets resolved paths
		loader := c.soundLoader()
		resolved := make([]string, len(args))
		for i, name := range args {
			path, err := loader.ResolveSoundPath(name)
			if err != nil {
				return err
			}
			resolved[i] = path
		}
		pid, err := spawnDetachedPlayer(cmd, resolved)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "playing in background (pid %d)\n", pid)
		return nil
	}

	opts, err := c.readSoundOptions(cmd)
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetDuration("duration")

	sources, paths, err := c.soundLoader().LoadSounds(args)
	if err != nil {
		return err
	}

	params := withDefaultRate(c.deviceParameters(), sources[0].Format().SampleRate)
	device, err := c.openDevice(c.config.OutputDevice, params)
	if err != nil {
		closeSources(sources)
		return fmt.Errorf("failed to open output device: %w", err)
	}
	defer device.Close()

	sounds, err := startSounds(device, sources, opts)
	if err != nil {
		return err
	}

	progress := newProgressLine(cmd.OutOrStdout(), c.isInteractive(cmd.OutOrStdout()))
	total := soundsLength(device, sounds, opts)
	if limit > 0 && (total == 0 || limit < total) {
		total = limit
	}
	label := filepath.Base(paths[0])
	if len(paths) > 1 {
		label = fmt.Sprintf("%s +%d", label, len(paths)-1)
	}

	result, driveErr := driveDevice(cmd.Context(), device, driveOptions{
		limit:    limit,
		progress: func(elapsed time.Duration) { progress.Update(label, elapsed, total) },
	}, playingDone(device))
	progress.Done()

	c.recordSounds(history.KindPlay, device.Name(), sounds, paths, result.reason == stopFinished && driveErr == nil)
	return driveErr
}

// startSounds opens every source on device and starts it. Sources not yet handed to
// the device are closed on error.
func startSounds(device *audio.Device, sources []audio.SampleSource, opts soundOptions) ([]*audio.Sound, error) {
	sounds := make([]*audio.Sound, 0, len(sources))
	for i, src := range sources {
		sound, err := device.OpenSound(src, opts.mode)
		if err != nil {
			closeSources(sources[i+1:])
			return nil, fmt.Errorf("failed to open sound: %w", err)
		}
		sound.SetRepeat(opts.repeat)
		sound.SetPan(opts.pan)
		if opts.seek > 0 {
			if sound.Seekable() {
				sound.SetPosition(sound.Format().Frames(opts.seek))
			} else {
				slog.Warn("sound is not seekable, starting from the beginning", "index", i)
			}
		}
		sounds = append(sounds, sound)
	}
	for _, sound := range sounds {
		sound.Play()
	}
	return sounds, nil
}

// soundsLength is the playing time of the longest sound, or zero when it is unknown
// or endless
func soundsLength(device *audio.Device, sounds []*audio.Sound, opts soundOptions) time.Duration {
	if opts.repeat {
		return 0
	}
	var longest time.Duration
	for _, sound := range sounds {
		if !sound.Seekable() {
			return 0
		}
		remaining := sound.Length() - sound.Position()
		if d := device.Format().Duration(remaining); d > longest {
			longest = d
		}
	}
	return longest
}

func closeSources(sources []audio.SampleSource) {
	for _, src := range sources {
		src.Close()
	}
}

// recordSounds reports one history event per sound. A sound counts as completed when
// the command ran to the natural end and the sound is no longer playing.
func (c *CLI) recordSounds(kind history.Kind, backend string, sounds []*audio.Sound, paths []string, finished bool) {
	tracker := c.initializeHistory()
	for i, sound := range sounds {
		format := sound.Format()
		frames := sound.FramesPlayed()
		tracker.Played(history.Event{
			Kind:      kind,
			Path:      absPath(paths[i]),
			Backend:   backend,
			Format:    format.String(),
			Frames:    frames,
			Duration:  format.Duration(int(frames)),
			Completed: finished && !sound.IsPlaying(),
		})
	}
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
