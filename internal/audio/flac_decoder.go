package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mewkiz/flac"
)

// FlacDecoder opens FLAC streams as unseekable 16-bit sources
type FlacDecoder struct{}

func NewFlacDecoder() *FlacDecoder {
	return &FlacDecoder{}
}

func (d *FlacDecoder) FormatName() string {
	return "FLAC"
}

func (d *FlacDecoder) CanDecode(filename string) bool {
	return hasExtension(filename, ".flac")
}

func (d *FlacDecoder) Open(r io.ReadSeekCloser) (SampleSource, error) {
	stream, err := flac.New(r)
	if err != nil {
		slog.Error("failed to decode FLAC", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	info := stream.Info
	src := &FlacSource{
		r:        r,
		stream:   stream,
		bitDepth: int(info.BitsPerSample),
		format: Format{
			Channels:     int(info.NChannels),
			SampleRate:   int(info.SampleRate),
			SampleFormat: FormatS16LE,
		},
	}
	if err := src.format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	slog.Debug("FLAC stream opened",
		"sample_rate", info.SampleRate,
		"channels", info.NChannels,
		"bit_depth", info.BitsPerSample,
		"total_samples", info.NSamples)
	return src, nil
}

// FlacSource decodes one FLAC frame at a time. Reset rewinds the file and parses the
// stream header again.
type FlacSource struct {
	unseekable
	r        io.ReadSeekCloser
	stream   *flac.Stream
	format   Format
	bitDepth int

	pending []byte
	done    bool
}

func (s *FlacSource) Format() Format { return s.format }

func (s *FlacSource) Read(buf []byte, frames int) int {
	fs := s.format.FrameSize()
	frames = clampFrames(buf, frames, fs)
	want := frames * fs
	written := 0
	for written < want {
		if len(s.pending) == 0 && !s.decodeFrame() {
			break
		}
		n := copy(buf[written:want], s.pending)
		s.pending = s.pending[n:]
		written += n
	}
	return written / fs
}

// decodeFrame parses the next FLAC frame into pending
func (s *FlacSource) decodeFrame() bool {
	if s.done || s.stream == nil {
		return false
	}
	frame, err := s.stream.ParseNext()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			slog.Error("FLAC frame decode failed", "error", err)
		}
		s.done = true
		return false
	}

	channels := s.format.Channels
	block := int(frame.BlockSize)
	out := make([]byte, block*channels*2)
	for i := 0; i < block; i++ {
		for ch := 0; ch < channels; ch++ {
			v := scaleTo16(int64(frame.Subframes[ch].Samples[i]), s.bitDepth)
			binary.LittleEndian.PutUint16(out[(i*channels+ch)*2:], uint16(int16(v)))
		}
	}
	s.pending = out
	return true
}

func (s *FlacSource) Reset() {
	s.pending = nil
	s.done = false
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		slog.Error("FLAC rewind failed", "error", err)
		s.done = true
		return
	}
	stream, err := flac.New(s.r)
	if err != nil {
		slog.Error("FLAC header reparse failed", "error", err)
		s.done = true
		return
	}
	s.stream = stream
}

func (s *FlacSource) Close() error {
	s.done = true
	s.pending = nil
	return s.r.Close()
}
