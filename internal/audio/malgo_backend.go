//go:build cgo

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

var errDeviceStopped = errors.New("playback device stopped unexpectedly")

// MalgoBackend plays through miniaudio. The device writes into a frame queue that the
// miniaudio data callback drains, so Write blocks at the hardware's pace.
type MalgoBackend struct {
	mutex   sync.Mutex
	context *Context
	device  *malgo.Device
	queue   *pcmQueue
	config  OutputConfig
	closed  bool
	lost    bool
}

func NewMalgoBackend() *MalgoBackend {
	slog.Debug("creating new MalgoBackend")
	return &MalgoBackend{closed: true}
}

func (mb *MalgoBackend) Name() string { return BackendMalgo }

// Open initializes a context and a playback device in the requested format
func (mb *MalgoBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}

	audioCtx, err := NewContext()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}

	queue := newPCMQueue(config.Format, config.FramesPerBuffer*config.QueueDepth)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgoFormat(config.Format.SampleFormat)
	deviceConfig.Playback.Channels = uint32(config.Format.Channels)
	deviceConfig.SampleRate = uint32(config.Format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(config.FramesPerBuffer)
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			queue.Read(out)
		},
		Stop: func() {
			mb.mutex.Lock()
			defer mb.mutex.Unlock()
			if !mb.closed {
				slog.Warn("malgo playback device stopped")
				mb.lost = true
				queue.Close()
			}
		},
	}

	device, err := malgo.InitDevice(audioCtx.Malgo(), deviceConfig, callbacks)
	if err != nil {
		audioCtx.Close()
		slog.Error("failed to initialize playback device", "error", err)
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	mb.mutex.Lock()
	mb.context = audioCtx
	mb.device = device
	mb.queue = queue
	mb.config = config
	mb.closed = false
	mb.lost = false
	mb.mutex.Unlock()

	if err := device.Start(); err != nil {
		mb.Close()
		slog.Error("failed to start playback device", "error", err)
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	slog.Debug("MalgoBackend opened",
		"format", config.Format.String(),
		"frames_per_buffer", config.FramesPerBuffer,
		"queue_frames", config.FramesPerBuffer*config.QueueDepth)
	return nil
}

func malgoFormat(sf SampleFormat) malgo.FormatType {
	if sf == FormatU8 {
		return malgo.FormatU8
	}
	return malgo.FormatS16
}

func (mb *MalgoBackend) Threaded() bool { return true }

func (mb *MalgoBackend) Format() Format {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()
	return mb.config.Format
}

func (mb *MalgoBackend) FramesPerBuffer() int {
	mb.mutex.Lock()
	defer mb.mutex.Unlock()
	return mb.config.FramesPerBuffer
}

func (mb *MalgoBackend) Update() error { return nil }

// Flush drops queued audio that the device callback has not pulled yet
func (mb *MalgoBackend) Flush() {
	mb.mutex.Lock()
	queue := mb.queue
	mb.mutex.Unlock()
	if queue != nil {
		queue.Flush()
	}
}

// Write queues pcm, blocking while the device is behind
func (mb *MalgoBackend) Write(pcm []byte) error {
	mb.mutex.Lock()
	queue, closed := mb.queue, mb.closed
	mb.mutex.Unlock()
	if closed {
		return ErrBackendClosed
	}

	err := queue.Write(pcm)
	if err != nil {
		mb.mutex.Lock()
		defer mb.mutex.Unlock()
		if mb.lost {
			return errDeviceStopped
		}
	}
	return err
}

// Close stops and releases the device and its context
func (mb *MalgoBackend) Close() error {
	mb.mutex.Lock()
	if mb.closed {
		mb.mutex.Unlock()
		return nil
	}
	mb.closed = true
	device, audioCtx, queue := mb.device, mb.context, mb.queue
	mb.device, mb.context = nil, nil
	mb.mutex.Unlock()

	queue.Close()
	if device != nil {
		device.Uninit()
	}
	if audioCtx != nil {
		if err := audioCtx.Close(); err != nil {
			return fmt.Errorf("closing audio context: %w", err)
		}
	}
	slog.Debug("MalgoBackend closed", "underruns", queue.Underruns())
	return nil
}
