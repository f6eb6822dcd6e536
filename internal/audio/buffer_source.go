package audio

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnboundedSource is returned when a source produced more audio than a buffer may hold
var ErrUnboundedSource = errors.New("source exceeds buffer limit")

// DefaultBufferLimit caps how much audio LoadBuffer will hold in memory
const DefaultBufferLimit = 10 * 60 // seconds

// BufferSource is a seekable source over PCM held in memory
type BufferSource struct {
	format Format
	data   []byte
	pos    int
	closed bool
}

// NewBufferSource wraps data in a seekable source. Trailing bytes that do not form a
// whole frame are dropped.
func NewBufferSource(format Format, data []byte) (*BufferSource, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}
	fs := format.FrameSize()
	return &BufferSource{
		format: format,
		data:   data[:len(data)/fs*fs],
	}, nil
}

// LoadBuffer drains src into memory and closes it. Sources longer than limitSeconds
// fail with ErrUnboundedSource and are left open and rewound so the caller can keep
// streaming from them.
func LoadBuffer(src SampleSource, limitSeconds int) (*BufferSource, error) {
	format := src.Format()
	fs := format.FrameSize()
	limit := limitSeconds * format.SampleRate

	var data []byte
	if src.Seekable() && src.Length() > 0 {
		if src.Length() > limit {
			return nil, fmt.Errorf("%w: %d frames", ErrUnboundedSource, src.Length())
		}
		data = make([]byte, 0, src.Length()*fs)
	}

	chunk := make([]byte, 4096*fs)
	frames := 0
	for {
		n := src.Read(chunk, 4096)
		if n == 0 {
			break
		}
		data = append(data, chunk[:n*fs]...)
		frames += n
		if frames > limit {
			src.Reset()
			slog.Warn("source too long to buffer", "limit_seconds", limitSeconds, "format", format.String())
			return nil, fmt.Errorf("%w: more than %d frames", ErrUnboundedSource, limit)
		}
	}

	if err := src.Close(); err != nil {
		slog.Warn("failed to close buffered source", "error", err)
	}

	slog.Debug("source loaded into buffer", "frames", frames, "format", format.String())
	return NewBufferSource(format, data)
}

func (b *BufferSource) Format() Format { return b.format }

func (b *BufferSource) Read(buf []byte, frames int) int {
	if b.closed {
		return 0
	}
	fs := b.format.FrameSize()
	frames = clampFrames(buf, frames, fs)
	left := b.Length() - b.pos
	if frames > left {
		frames = left
	}
	copy(buf, b.data[b.pos*fs:(b.pos+frames)*fs])
	b.pos += frames
	return frames
}

func (b *BufferSource) Reset() { b.pos = 0 }
func (b *BufferSource) Seekable() bool { return true }
func (b *BufferSource) Length() int { return len(b.data) / b.format.FrameSize() }
func (b *BufferSource) Position() int { return b.pos }

func (b *BufferSource) SetPosition(frame int) {
	if frame < 0 {
		frame = 0
	}
	if l := b.Length(); frame > l {
		frame = l
	}
	b.pos = frame
}

// Bytes returns the PCM held by the source
func (b *BufferSource) Bytes() []byte { return b.data }

func (b *BufferSource) Close() error {
	b.closed = true
	return nil
}
