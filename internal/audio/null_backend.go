package audio

import (
	"log/slog"
	"sync"
)

// NullBackend accepts and discards output. It is a polling backend, so every
// Device.Update mixes exactly one buffer.
type NullBackend struct {
	mutex   sync.Mutex
	config  OutputConfig
	open    bool
	written int64
}

func NewNullBackend() *NullBackend {
	return &NullBackend{}
}

func (nb *NullBackend) Name() string { return "null" }

func (nb *NullBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	nb.config = config
	nb.open = true
	slog.Debug("null backend opened", "format", config.Format.String(), "frames_per_buffer", config.FramesPerBuffer)
	return nil
}

func (nb *NullBackend) Threaded() bool { return false }

func (nb *NullBackend) Format() Format {
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	return nb.config.Format
}

func (nb *NullBackend) FramesPerBuffer() int {
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	return nb.config.FramesPerBuffer
}

func (nb *NullBackend) Update() error { return nil }

func (nb *NullBackend) Write(pcm []byte) error {
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	if !nb.open {
		return ErrBackendClosed
	}
	nb.written += int64(len(pcm) / nb.config.Format.FrameSize())
	return nil
}

// FramesWritten returns the number of frames discarded so far
func (nb *NullBackend) FramesWritten() int64 {
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	return nb.written
}

func (nb *NullBackend) Close() error {
	nb.mutex.Lock()
	defer nb.mutex.Unlock()
	nb.open = false
	return nil
}
