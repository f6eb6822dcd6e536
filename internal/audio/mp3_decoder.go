package audio

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hajimehoshi/go-mp3"
)

// mp3FrameSize is the size of one decoded frame; go-mp3 always produces 16-bit stereo
const mp3FrameSize = 4

// Mp3Decoder handles MP3 audio format decoding
type Mp3Decoder struct{}

// NewMp3Decoder creates a new MP3 decoder instance
func NewMp3Decoder() *Mp3Decoder {
	slog.Debug("creating new MP3 decoder instance")
	return &Mp3Decoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *Mp3Decoder) FormatName() string {
	return "MP3"
}

// CanDecode checks if this decoder can handle the given filename
func (d *Mp3Decoder) CanDecode(filename string) bool {
	return hasExtension(filename, ".mp3")
}

// Open creates a streaming MP3 source
func (d *Mp3Decoder) Open(r io.ReadSeekCloser) (SampleSource, error) {
	slog.Debug("opening MP3 stream")

	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		slog.Error("failed to create MP3 decoder", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		slog.Error("invalid MP3 sample rate", "sample_rate", sampleRate)
		return nil, fmt.Errorf("%w: sample rate %d", ErrDecode, sampleRate)
	}

	src := &Mp3Source{
		r:       r,
		decoder: decoder,
		format:  Format{Channels: 2, SampleRate: sampleRate, SampleFormat: FormatS16LE},
	}
	if length := decoder.Length(); length > 0 {
		src.length = int(length / mp3FrameSize)
	}

	slog.Debug("MP3 format detected",
		"sample_rate", sampleRate,
		"frames", src.length)
	return src, nil
}

// Mp3Source decodes MP3 frames on demand. It is seekable when the length of the
// stream is known.
type Mp3Source struct {
	r       io.ReadSeekCloser
	decoder *mp3.Decoder
	format  Format
	length  int
	pos     int
	done    bool
}

func (s *Mp3Source) Format() Format { return s.format }

func (s *Mp3Source) Read(buf []byte, frames int) int {
	if s.done {
		return 0
	}
	frames = clampFrames(buf, frames, mp3FrameSize)
	n, err := io.ReadFull(s.decoder, buf[:frames*mp3FrameSize])
	got := n / mp3FrameSize
	s.pos += got
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			slog.Error("failed to read MP3 PCM data", "error", err)
		}
		s.done = true
	}
	return got
}

func (s *Mp3Source) Reset() { s.SetPosition(0) }

func (s *Mp3Source) Seekable() bool { return s.length > 0 }
func (s *Mp3Source) Length() int { return s.length }
func (s *Mp3Source) Position() int { return s.pos }

func (s *Mp3Source) SetPosition(frame int) {
	frame = max(0, frame)
	if s.length > 0 {
		frame = min(frame, s.length)
	}
	if _, err := s.decoder.Seek(int64(frame)*mp3FrameSize, io.SeekStart); err != nil {
		slog.Error("MP3 seek failed", "frame", frame, "error", err)
		s.done = true
		return
	}
	s.pos = frame
	s.done = false
}

func (s *Mp3Source) Close() error {
	s.done = true
	return s.r.Close()
}
