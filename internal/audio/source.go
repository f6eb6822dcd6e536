package audio

import (
	"errors"
)

// Common errors for SampleSource implementations
var (
	ErrSourceClosed = errors.New("sample source is closed")
)

// SampleSource is a pull-based producer of PCM frames.
//
// Read writes up to frames interleaved frames into buf, which must hold at least
// frames*Format().FrameSize() bytes, and returns how many frames it produced. A short
// count means the source is exhausted or could not decode more right now; 0 means end
// of stream. Read never blocks indefinitely.
//
// Seek operations on an unseekable source are no-ops and Length/Position report 0.
type SampleSource interface {
	Format() Format
	Read(buf []byte, frames int) int
	Reset()
	Seekable() bool
	Length() int
	SetPosition(frame int)
	Position() int
	Close() error
}

// unseekable supplies the seek half of SampleSource for sources that cannot seek
type unseekable struct{}

func (unseekable) Seekable() bool { return false }
func (unseekable) Length() int { return 0 }
func (unseekable) SetPosition(int) {}
func (unseekable) Position() int { return 0 }

// ReadFull reads from src until frames frames are produced or the source returns 0
func ReadFull(src SampleSource, buf []byte, frames int) int {
	frameSize := src.Format().FrameSize()
	total := 0
	for total < frames {
		n := src.Read(buf[total*frameSize:], frames-total)
		if n == 0 {
			break
		}
		total += n
	}
	return total
}

// clampFrames bounds a requested frame count by what buf can hold
func clampFrames(buf []byte, frames, frameSize int) int {
	if frames < 0 {
		return 0
	}
	if max := len(buf) / frameSize; frames > max {
		return max
	}
	return frames
}
