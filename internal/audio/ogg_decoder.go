package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/vorbis"
)

// OggDecoder opens Ogg Vorbis files through beep's vorbis streamer
type OggDecoder struct{}

func NewOggDecoder() *OggDecoder {
	return &OggDecoder{}
}

func (d *OggDecoder) FormatName() string {
	return "OGG"
}

func (d *OggDecoder) CanDecode(filename string) bool {
	return hasExtension(filename, ".ogg", ".oga")
}

func (d *OggDecoder) Open(r io.ReadSeekCloser) (SampleSource, error) {
	streamer, format, err := vorbis.Decode(r)
	if err != nil {
		slog.Error("failed to decode Ogg Vorbis", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	src := newStreamerSource(streamer, format)
	if err := src.format.Validate(); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	slog.Debug("Ogg Vorbis stream opened",
		"sample_rate", int(format.SampleRate),
		"channels", format.NumChannels,
		"frames", streamer.Len())
	return src, nil
}

// StreamerSource adapts a beep.StreamSeekCloser to a seekable 16-bit SampleSource.
// Beep streams stereo float frames; mono streams keep only the left channel.
type StreamerSource struct {
	streamer beep.StreamSeekCloser
	format   Format
	scratch  [][2]float64
	done     bool
}

func newStreamerSource(s beep.StreamSeekCloser, f beep.Format) *StreamerSource {
	channels := f.NumChannels
	if channels > 2 {
		channels = 2
	}
	return &StreamerSource{
		streamer: s,
		format: Format{
			Channels:     channels,
			SampleRate:   int(f.SampleRate),
			SampleFormat: FormatS16LE,
		},
	}
}

func (s *StreamerSource) Format() Format { return s.format }

func (s *StreamerSource) Read(buf []byte, frames int) int {
	if s.done {
		return 0
	}
	frames = clampFrames(buf, frames, s.format.FrameSize())
	if cap(s.scratch) < frames {
		s.scratch = make([][2]float64, frames)
	}
	samples := s.scratch[:frames]

	total := 0
	for total < frames {
		n, ok := s.streamer.Stream(samples[total:])
		total += n
		if !ok {
			if err := s.streamer.Err(); err != nil {
				slog.Error("beep streamer failed", "error", err)
			}
			s.done = true
			break
		}
		if n == 0 {
			break
		}
	}

	channels := s.format.Channels
	for i := 0; i < total; i++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(buf[(i*channels+ch)*2:], uint16(floatToS16(samples[i][ch])))
		}
	}
	return total
}

func (s *StreamerSource) Reset() { s.SetPosition(0) }

func (s *StreamerSource) Seekable() bool { return true }
func (s *StreamerSource) Length() int { return s.streamer.Len() }
func (s *StreamerSource) Position() int { return s.streamer.Position() }

func (s *StreamerSource) SetPosition(frame int) {
	frame = max(0, min(frame, s.streamer.Len()))
	if err := s.streamer.Seek(frame); err != nil {
		slog.Error("beep seek failed", "frame", frame, "error", err)
		s.done = true
		return
	}
	s.done = false
}

func (s *StreamerSource) Close() error {
	s.done = true
	return s.streamer.Close()
}
