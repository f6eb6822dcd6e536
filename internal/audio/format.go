package audio

import (
	"errors"
	"fmt"
	"time"
)

// SampleFormat identifies the encoding of a single PCM sample
type SampleFormat int

const (
	// FormatU8 is unsigned 8-bit PCM, 128 is silence
	FormatU8 SampleFormat = iota + 1
	// FormatS16LE is signed 16-bit little-endian PCM, 0 is silence
	FormatS16LE
)

// Format errors
var (
	ErrInvalidFormat = errors.New("invalid audio format")
)

// BytesPerSample returns the size of one sample in bytes, 0 for unknown formats
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16LE:
		return 2
	default:
		return 0
	}
}

// Bits returns the bits per sample
func (f SampleFormat) Bits() int {
	return f.BytesPerSample() * 8
}

func (f SampleFormat) String() string {
	switch f {
	case FormatU8:
		return "u8"
	case FormatS16LE:
		return "s16le"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// SampleFormatFromBits maps a bit depth to the matching sample format
func SampleFormatFromBits(bits int) (SampleFormat, error) {
	switch bits {
	case 8:
		return FormatU8, nil
	case 16:
		return FormatS16LE, nil
	default:
		return 0, fmt.Errorf("%w: unsupported bits per sample %d", ErrInvalidFormat, bits)
	}
}

// Format describes the PCM layout produced by a SampleSource or consumed by a Backend.
// A source's Format never changes during its lifetime.
type Format struct {
	Channels     int
	SampleRate   int
	SampleFormat SampleFormat
}

// Validate reports whether the format can carry audio
func (f Format) Validate() error {
	if f.Channels < 1 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, f.Channels)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.SampleFormat.BytesPerSample() == 0 {
		return fmt.Errorf("%w: sample format %s", ErrInvalidFormat, f.SampleFormat)
	}
	return nil
}

// FrameSize returns the size in bytes of one interleaved frame
func (f Format) FrameSize() int {
	return f.Channels * f.SampleFormat.BytesPerSample()
}

// SilenceByte returns the byte value that encodes silence for this format
func (f Format) SilenceByte() byte {
	if f.SampleFormat == FormatU8 {
		return 0x80
	}
	return 0
}

// FillSilence writes silence into buf
func (f Format) FillSilence(buf []byte) {
	s := f.SilenceByte()
	for i := range buf {
		buf[i] = s
	}
}

// Duration returns the playback time of the given number of frames
func (f Format) Duration(frames int) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Frames returns the number of frames that play for d
func (f Format) Frames(d time.Duration) int {
	return int(int64(d) * int64(f.SampleRate) / int64(time.Second))
}

func (f Format) String() string {
	return fmt.Sprintf("%dch/%dHz/%s", f.Channels, f.SampleRate, f.SampleFormat)
}
