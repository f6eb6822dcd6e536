package audio

import (
	"log/slog"
	"math"
)

// Stream is one sound feeding a Device. It starts stopped at full volume and centered.
// Every method takes the device lock, so a Play followed by IsPlaying on the same
// goroutine always reports true until the mixer drains the source.
type Stream struct {
	device       *Device
	source       SampleSource
	playing      bool
	volume       float32
	pan          float32
	framesPlayed int64
	closed       bool
}

// Play starts pulling from the source on the next tick
func (s *Stream) Play() {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	if s.closed || s.playing {
		return
	}
	s.playing = true
	slog.Debug("stream playing", "format", s.source.Format().String())
}

// Stop halts the stream and keeps its position
func (s *Stream) Stop() {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	if s.closed || !s.playing {
		return
	}
	s.playing = false
	slog.Debug("stream stopped", "frames_played", s.framesPlayed)
}

// IsPlaying reports whether the stream will be mixed on the next tick
func (s *Stream) IsPlaying() bool {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.playing
}

// Reset rewinds the source without changing the play state. Streams hold no
// read-ahead of their own; the next tick reads from the new position. When this is
// the only playing stream, mixed audio still queued in the backend is dropped so the
// rewind is heard at once. With other streams playing the queue is kept, and up to
// DefaultQueueDepth buffers mixed before the reset still play.
func (s *Stream) Reset() {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	if s.closed {
		return
	}
	s.source.Reset()
	if s.playing && s.device.playingLocked() == 1 {
		s.device.flushLocked()
	}
}

// SetVolume sets the linear gain, clamped to [0, 1]
func (s *Stream) SetVolume(volume float32) {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	s.volume = clampUnit(volume, 0)
}

func (s *Stream) Volume() float32 {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.volume
}

// SetPan sets the balance, clamped to [-1, 1]. Negative values attenuate the right
// channel and positive values the left. Mono output ignores it.
func (s *Stream) SetPan(pan float32) {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	s.pan = clampUnit(pan, -1)
}

func (s *Stream) Pan() float32 {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.pan
}

// Format returns the source's native format
func (s *Stream) Format() Format {
	return s.source.Format()
}

// FramesPlayed returns how many source frames the mixer has consumed
func (s *Stream) FramesPlayed() int64 {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.framesPlayed
}

// Close removes the stream from its device and then releases the source
func (s *Stream) Close() error {
	if !s.device.removeStream(s) {
		return nil
	}
	return s.source.Close()
}

// clampUnit bounds v to [lo, 1]. NaN maps to 0, which is silence for a volume and
// center for a pan.
func clampUnit(v, lo float32) float32 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	if v < lo {
		return lo
	}
	if v > 1 {
		return 1
	}
	return v
}

// SoundMode selects how OpenSound holds a source
type SoundMode int

const (
	// SoundStream decodes while playing
	SoundStream SoundMode = iota
	// SoundBuffer decodes everything up front into memory
	SoundBuffer
)

func (m SoundMode) String() string {
	if m == SoundBuffer {
		return "buffer"
	}
	return "stream"
}

// ParseSoundMode accepts "stream" and "buffer"; anything else is stream
func ParseSoundMode(s string) SoundMode {
	if s == "buffer" {
		return SoundBuffer
	}
	return SoundStream
}

// Sound is a Stream with looping and seeking
type Sound struct {
	*Stream
	repeat *RepeatSource
}

// SetRepeat turns looping on or off
func (s *Sound) SetRepeat(repeat bool) {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	s.repeat.SetRepeat(repeat)
}

func (s *Sound) Repeat() bool {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.repeat.Repeat()
}

func (s *Sound) Seekable() bool {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.repeat.Inner().Seekable()
}

func (s *Sound) Length() int {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.repeat.Inner().Length()
}

// SetPosition seeks the source; a no-op when it is unseekable
func (s *Sound) SetPosition(frame int) {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	if s.closed {
		return
	}
	s.repeat.Inner().SetPosition(frame)
	if s.playing && s.device.playingLocked() == 1 {
		s.device.flushLocked()
	}
}

func (s *Sound) Position() int {
	s.device.mutex.Lock()
	defer s.device.mutex.Unlock()
	return s.repeat.Inner().Position()
}
