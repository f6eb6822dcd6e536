package audio

import (
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
)

// SystemCommandBackend pipes raw PCM into the stdin of a system player such as paplay.
// Writes block on the pipe, which paces the device, so the backend is threaded.
type SystemCommandBackend struct {
	command string
	config  OutputConfig
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	closed  bool
	mutex   sync.Mutex

	// start launches the player; replaced in tests
	start func(cmd *exec.Cmd) error
}

// NewSystemCommandBackend creates a new SystemCommandBackend with the specified command
func NewSystemCommandBackend(command string) *SystemCommandBackend {
	slog.Debug("creating new SystemCommandBackend", "command", command)
	return &SystemCommandBackend{
		command: command,
		closed:  true,
		start:   (*exec.Cmd).Start,
	}
}

func (scb *SystemCommandBackend) Name() string { return BackendSystemCommand }

// Command returns the player command in use
func (scb *SystemCommandBackend) Command() string {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.command
}

// Open starts the player reading raw PCM from its stdin
func (scb *SystemCommandBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}

	scb.mutex.Lock()
	defer scb.mutex.Unlock()

	command := params.String(ParamCommand, scb.command)
	args, err := systemCommandArgs(command, config.Format)
	if err != nil {
		return err
	}

	cmd := exec.Command(command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if err := scb.start(cmd); err != nil {
		stdin.Close()
		slog.Error("system command failed to start", "command", command, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrOpenFailed, command, err)
	}

	scb.command = command
	scb.config = config
	scb.cmd = cmd
	scb.stdin = stdin
	scb.closed = false
	slog.Debug("SystemCommandBackend started", "command", command, "args", args)
	return nil
}

// systemCommandArgs returns the arguments that make command play raw PCM in format
// from stdin
func systemCommandArgs(command string, format Format) ([]string, error) {
	rate := strconv.Itoa(format.SampleRate)
	channels := strconv.Itoa(format.Channels)

	switch filepath.Base(command) {
	case "aplay":
		sf := "S16_LE"
		if format.SampleFormat == FormatU8 {
			sf = "U8"
		}
		return []string{"-q", "-t", "raw", "-f", sf, "-c", channels, "-r", rate, "-"}, nil
	case "paplay", "pacat":
		return []string{"--raw", "--format=" + format.SampleFormat.String(), "--channels=" + channels, "--rate=" + rate}, nil
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet",
			"-f", format.SampleFormat.String(), "-ar", rate, "-ac", channels, "-i", "-"}, nil
	default:
		return nil, fmt.Errorf("%w: %q cannot play raw PCM from stdin", ErrBackendNotAvailable, command)
	}
}

func (scb *SystemCommandBackend) Threaded() bool { return true }

func (scb *SystemCommandBackend) Format() Format {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.config.Format
}

func (scb *SystemCommandBackend) FramesPerBuffer() int {
	scb.mutex.Lock()
	defer scb.mutex.Unlock()
	return scb.config.FramesPerBuffer
}

func (scb *SystemCommandBackend) Update() error { return nil }

// Write blocks until the player has taken the buffer
func (scb *SystemCommandBackend) Write(pcm []byte) error {
	scb.mutex.Lock()
	if scb.closed {
		scb.mutex.Unlock()
		return ErrBackendClosed
	}
	stdin := scb.stdin
	scb.mutex.Unlock()

	if _, err := stdin.Write(pcm); err != nil {
		return fmt.Errorf("writing to %s: %w", scb.command, err)
	}
	return nil
}

// Close ends the player's input and waits for it to exit
func (scb *SystemCommandBackend) Close() error {
	scb.mutex.Lock()
	if scb.closed {
		scb.mutex.Unlock()
		return nil
	}
	scb.closed = true
	cmd, stdin := scb.cmd, scb.stdin
	scb.cmd, scb.stdin = nil, nil
	scb.mutex.Unlock()

	stdin.Close()
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
	if err := cmd.Wait(); err != nil {
		slog.Debug("system command exited", "command", scb.command, "error", err)
	}
	slog.Debug("SystemCommandBackend closed")
	return nil
}
