package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Device errors
var (
	ErrDeviceClosed = errors.New("audio device is closed")
	ErrRateMismatch = errors.New("sample rate does not match device")
)

// Output device names with special meaning
const (
	DeviceAutodetect = "autodetect"
	DeviceNull       = "null"
)

// Attributes configure OpenDevice
type Attributes struct {
	// OutputDevice names a backend; "" or "autodetect" tries each available backend
	OutputDevice string
	// Parameters is a "key=value,..." list handed to the backend
	Parameters string
	// Fs is used by OpenFile; nil means the OS filesystem
	Fs afero.Fs
	// Registry decodes files for OpenFile; nil means NewDefaultRegistry
	Registry *DecoderRegistry
	// Factory creates backends; nil means NewBackendFactory
	Factory BackendFactory
}

// Device mixes live streams into a Backend. One mutex guards the stream set and every
// stream's state; the tick pulls from sources while holding it.
type Device struct {
	mutex     sync.Mutex
	tickMutex sync.Mutex

	backend  Backend
	params   Parameters
	format   Format
	frames   int
	mixer    *mixer
	streams  []*Stream
	volume   float32
	degraded bool
	lastErr  error
	closed   bool

	fs       afero.Fs
	registry *DecoderRegistry

	done       chan struct{}
	wg         sync.WaitGroup
	retryDelay time.Duration
}

// OpenDevice creates the backend named by attrs and starts mixing into it
func OpenDevice(attrs Attributes) (*Device, error) {
	factory := attrs.Factory
	if factory == nil {
		factory = NewBackendFactory()
	}

	name := attrs.OutputDevice
	if name != "" && name != DeviceAutodetect && name != "auto" {
		backend, err := factory.CreateBackend(name)
		if err != nil {
			return nil, err
		}
		return NewDevice(backend, attrs)
	}

	candidates := factory.AutodetectOrder()
	slog.Debug("autodetecting output device", "candidates", candidates)
	var errs []error
	for _, candidate := range candidates {
		backend, err := factory.CreateBackend(candidate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		device, err := NewDevice(backend, attrs)
		if err != nil {
			slog.Debug("output device candidate failed", "backend", candidate, "error", err)
			errs = append(errs, err)
			continue
		}
		return device, nil
	}
	return nil, fmt.Errorf("%w: no output device could be opened: %w", ErrOpenFailed, errors.Join(errs...))
}

// NewDevice opens backend with attrs.Parameters. A threaded backend gets its own
// tick goroutine; otherwise the caller must call Update regularly.
func NewDevice(backend Backend, attrs Attributes) (*Device, error) {
	params := ParseParameters(attrs.Parameters)
	if fb, ok := backend.(FsBackend); ok && attrs.Fs != nil {
		fb.SetFs(attrs.Fs)
	}
	if err := backend.Open(params); err != nil {
		slog.Error("failed to open audio backend", "backend", backend.Name(), "error", err)
		if errors.Is(err, ErrOpenFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, backend.Name(), err)
	}

	fs := attrs.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	registry := attrs.Registry
	if registry == nil {
		registry = NewDefaultRegistry()
	}

	format := backend.Format()
	frames := backend.FramesPerBuffer()
	d := &Device{
		backend:    backend,
		params:     params,
		format:     format,
		frames:     frames,
		mixer:      newMixer(format, frames),
		volume:     1,
		fs:         fs,
		registry:   registry,
		done:       make(chan struct{}),
		retryDelay: max(format.Duration(frames), 10*time.Millisecond),
	}

	if backend.Threaded() {
		d.wg.Add(1)
		go d.run()
	}

	slog.Info("audio device opened",
		"backend", backend.Name(),
		"format", format.String(),
		"frames_per_buffer", frames,
		"threaded", backend.Threaded())
	return d, nil
}

func (d *Device) Name() string { return d.backend.Name() }
func (d *Device) Format() Format { return d.format }
func (d *Device) FramesPerBuffer() int { return d.frames }
func (d *Device) Threaded() bool { return d.backend.Threaded() }

// SetVolume sets the master volume, clamped to [0, 1]. Backends that implement
// VolumeBackend apply it in the driver.
func (d *Device) SetVolume(volume float32) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.volume = clampUnit(volume, 0)
	if vb, ok := d.backend.(VolumeBackend); ok {
		if err := vb.SetVolume(d.volume); err != nil {
			slog.Warn("backend rejected volume", "volume", d.volume, "error", err)
		}
	}
}

func (d *Device) Volume() float32 {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.volume
}

// OpenStream registers src as a new stopped stream. The stream owns src; on error src
// is closed.
func (d *Device) OpenStream(src SampleSource) (*Stream, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidFormat)
	}
	format := src.Format()
	if err := format.Validate(); err != nil {
		src.Close()
		return nil, err
	}
	if format.SampleRate != d.format.SampleRate {
		src.Close()
		slog.Error("cannot open stream with mismatched sample rate",
			"source_rate", format.SampleRate,
			"device_rate", d.format.SampleRate)
		return nil, fmt.Errorf("%w: source %d Hz, device %d Hz", ErrRateMismatch, format.SampleRate, d.format.SampleRate)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		src.Close()
		return nil, ErrDeviceClosed
	}
	s := &Stream{device: d, source: src, volume: 1}
	d.streams = append(d.streams, s)
	slog.Debug("stream opened", "format", format.String(), "live_streams", len(d.streams))
	return s, nil
}

// OpenSound wraps src for looping and registers it. In SoundBuffer mode the source is
// first decoded into memory; a source too long to buffer is streamed instead.
func (d *Device) OpenSound(src SampleSource, mode SoundMode) (*Sound, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidFormat)
	}
	if mode == SoundBuffer {
		buffered, err := LoadBuffer(src, DefaultBufferLimit)
		switch {
		case err == nil:
			src = buffered
		case errors.Is(err, ErrUnboundedSource):
			slog.Info("streaming source instead of buffering", "reason", err)
		default:
			src.Close()
			return nil, err
		}
	}

	repeat := NewRepeatSource(src)
	stream, err := d.OpenStream(repeat)
	if err != nil {
		return nil, err
	}
	return &Sound{Stream: stream, repeat: repeat}, nil
}

// OpenFile decodes path from the device filesystem and opens it as a Sound
func (d *Device) OpenFile(path string, mode SoundMode) (*Sound, error) {
	src, err := OpenSampleSource(d.fs, path, d.registry)
	if err != nil {
		return nil, err
	}
	return d.OpenSound(src, mode)
}

// Streams returns the number of live streams
func (d *Device) Streams() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.streams)
}

// PlayingStreams returns the number of live streams that are playing
func (d *Device) PlayingStreams() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.playingLocked()
}

func (d *Device) playingLocked() int {
	n := 0
	for _, s := range d.streams {
		if s.playing {
			n++
		}
	}
	return n
}

// flushLocked drops audio queued in the backend. The device lock is held.
func (d *Device) flushLocked() {
	if fb, ok := d.backend.(FlushBackend); ok && !d.closed {
		fb.Flush()
	}
}

func (d *Device) removeStream(s *Stream) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.playing = false
	for i, live := range d.streams {
		if live == s {
			d.streams = append(d.streams[:i], d.streams[i+1:]...)
			break
		}
	}
	slog.Debug("stream closed", "live_streams", len(d.streams))
	return true
}

// Degraded reports whether output is suspended after a backend failure
func (d *Device) Degraded() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.degraded
}

// Err returns the failure that put the device into the degraded state, or the last
// failed recovery attempt
func (d *Device) Err() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.lastErr
}

// Update runs one tick for polling backends. It does nothing when the backend is
// threaded.
func (d *Device) Update() {
	if d.backend.Threaded() {
		return
	}
	d.Tick()
}

// Tick mixes one buffer from every playing stream and writes it to the backend. A
// degraded device first tries to reopen its backend and skips the tick if that
// fails.
func (d *Device) Tick() {
	d.tickMutex.Lock()
	defer d.tickMutex.Unlock()

	d.mutex.Lock()
	if d.closed || (d.degraded && !d.recoverLocked()) {
		d.mutex.Unlock()
		return
	}
	backend := d.backend
	d.mutex.Unlock()

	if err := backend.Update(); err != nil {
		d.fail(err)
		return
	}
	if wb, ok := backend.(WritableBackend); ok && !backend.Threaded() && wb.Writable() < d.frames {
		return
	}

	d.mutex.Lock()
	master := d.volume
	if _, ok := backend.(VolumeBackend); ok {
		master = 1
	}
	out := d.mixer.mix(d.streams, master)
	d.mutex.Unlock()

	if err := backend.Write(out); err != nil {
		d.fail(err)
	}
}

func (d *Device) fail(err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.closed {
		return
	}
	if !d.degraded {
		slog.Error("audio output lost, suspending output", "backend", d.backend.Name(), "error", err)
	}
	d.degraded = true
	d.lastErr = err
}

// recoverLocked closes and reopens the backend. The device lock is held.
func (d *Device) recoverLocked() bool {
	if err := d.backend.Close(); err != nil {
		slog.Debug("closing lost backend failed", "error", err)
	}
	if err := d.backend.Open(d.params); err != nil {
		d.lastErr = err
		slog.Debug("audio output recovery failed", "backend", d.backend.Name(), "error", err)
		return false
	}
	if d.backend.Format() != d.format || d.backend.FramesPerBuffer() != d.frames {
		d.backend.Close()
		d.lastErr = fmt.Errorf("%w: backend reopened with a different format", ErrOpenFailed)
		return false
	}
	if vb, ok := d.backend.(VolumeBackend); ok {
		if err := vb.SetVolume(d.volume); err != nil {
			slog.Warn("backend rejected volume", "volume", d.volume, "error", err)
		}
	}
	d.degraded = false
	d.lastErr = nil
	slog.Info("audio output recovered", "backend", d.backend.Name())
	return true
}

func (d *Device) run() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			return
		default:
		}

		d.Tick()

		if d.Degraded() {
			select {
			case <-d.done:
				return
			case <-time.After(d.retryDelay):
			}
		}
	}
}

// Close stops the tick, closes the backend and releases every stream still open
func (d *Device) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return nil
	}
	d.closed = true
	streams := d.streams
	d.streams = nil
	for _, s := range streams {
		s.closed = true
		s.playing = false
	}
	d.mutex.Unlock()

	close(d.done)
	err := d.backend.Close()
	d.wg.Wait()

	// wait out a polling tick that may still be writing
	d.tickMutex.Lock()
	d.tickMutex.Unlock()

	for _, s := range streams {
		if cerr := s.source.Close(); cerr != nil {
			slog.Warn("failed to close stream source", "error", cerr)
		}
	}

	slog.Info("audio device closed", "backend", d.backend.Name())
	if err != nil {
		return fmt.Errorf("closing %s backend: %w", d.backend.Name(), err)
	}
	return nil
}
