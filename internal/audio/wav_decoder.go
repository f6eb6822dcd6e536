package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// WavDecoder opens RIFF/WAVE files holding 8 or 16-bit PCM
type WavDecoder struct{}

// NewWavDecoder creates a new WAV decoder instance
func NewWavDecoder() *WavDecoder {
	return &WavDecoder{}
}

// CanDecode checks if the filename has a WAV extension
func (d *WavDecoder) CanDecode(filename string) bool {
	return hasExtension(filename, ".wav", ".wave")
}

// FormatName returns the format name for this decoder
func (d *WavDecoder) FormatName() string {
	return "WAV"
}

// Open scans the chunk list for the format and data chunks
func (d *WavDecoder) Open(r io.ReadSeekCloser) (SampleSource, error) {
	src, err := OpenWav(r)
	if err != nil {
		return nil, err
	}
	return src, nil
}

type wavState int

const (
	wavSeekingFormat wavState = iota
	wavSeekingData
	wavStreaming
	wavExhausted
)

func (s wavState) String() string {
	switch s {
	case wavSeekingFormat:
		return "seeking_format"
	case wavSeekingData:
		return "seeking_data"
	case wavStreaming:
		return "streaming"
	case wavExhausted:
		return "exhausted"
	}
	return "unknown"
}

const wavFormatPCM = 1

// WavSource streams the data chunk of a WAV file. It is seekable and its length is
// the number of whole frames in the data chunk.
type WavSource struct {
	r          io.ReadSeekCloser
	format     Format
	state      wavState
	dataStart  int64
	dataFrames int
	framesLeft int
}

// OpenWav parses the RIFF header of r and positions it at the first sample frame.
// The returned source owns r.
func OpenWav(r io.ReadSeekCloser) (*WavSource, error) {
	w := &WavSource{r: r, state: wavSeekingFormat}
	if err := w.locate(); err != nil {
		slog.Debug("WAV open failed", "state", w.state.String(), "error", err)
		return nil, err
	}
	slog.Debug("WAV stream opened",
		"format", w.format.String(),
		"data_offset", w.dataStart,
		"frames", w.dataFrames)
	return w, nil
}

func (w *WavSource) locate() error {
	var header [12]byte
	if _, err := io.ReadFull(w.r, header[:]); err != nil {
		return fmt.Errorf("%w: missing RIFF header: %v", ErrDecode, err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return fmt.Errorf("%w: not a RIFF/WAVE stream", ErrDecode)
	}

	end, err := w.r.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	if _, err := w.r.Seek(12, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrReadFailure, err)
	}

	haveFormat := false
	haveData := false
	var dataLength int64

	for !(haveFormat && haveData) {
		var chunk [8]byte
		if _, err := io.ReadFull(w.r, chunk[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("%w: reached end of stream while %s", ErrDecode, w.state)
			}
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
		tag := string(chunk[0:4])
		length := int64(binary.LittleEndian.Uint32(chunk[4:8]))
		start, err := w.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}

		switch tag {
		case "fmt ":
			if err := w.parseFormat(length); err != nil {
				return err
			}
			haveFormat = true
			w.state = wavSeekingData
		case "data":
			w.dataStart = start
			dataLength = min(length, end-start)
			haveData = true
		}

		// chunks are word aligned
		next := start + length + length&1
		if haveFormat && haveData {
			break
		}
		if next >= end {
			return fmt.Errorf("%w: reached end of stream while %s", ErrDecode, w.state)
		}
		if _, err := w.r.Seek(next, io.SeekStart); err != nil {
			return fmt.Errorf("%w: %v", ErrReadFailure, err)
		}
	}

	w.dataFrames = int(dataLength / int64(w.format.FrameSize()))
	w.SetPosition(0)
	return nil
}

func (w *WavSource) parseFormat(length int64) error {
	if length < 16 {
		return fmt.Errorf("%w: format chunk too short (%d bytes)", ErrDecode, length)
	}
	var fmtChunk [16]byte
	if _, err := io.ReadFull(w.r, fmtChunk[:]); err != nil {
		return fmt.Errorf("%w: truncated format chunk", ErrDecode)
	}

	audioFormat := binary.LittleEndian.Uint16(fmtChunk[0:2])
	channels := int(binary.LittleEndian.Uint16(fmtChunk[2:4]))
	rate := int(binary.LittleEndian.Uint32(fmtChunk[4:8]))
	bits := int(binary.LittleEndian.Uint16(fmtChunk[14:16]))

	if audioFormat != wavFormatPCM {
		return fmt.Errorf("%w: WAV encoding %d", ErrUnsupportedFormat, audioFormat)
	}
	sf, err := SampleFormatFromBits(bits)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	w.format = Format{Channels: channels, SampleRate: rate, SampleFormat: sf}
	if err := w.format.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func (w *WavSource) Format() Format { return w.format }

func (w *WavSource) Read(buf []byte, frames int) int {
	if w.state != wavStreaming {
		return 0
	}
	fs := w.format.FrameSize()
	frames = clampFrames(buf, frames, fs)
	if frames > w.framesLeft {
		frames = w.framesLeft
	}

	n, err := io.ReadFull(w.r, buf[:frames*fs])
	got := n / fs
	w.framesLeft -= got
	if err != nil {
		slog.Warn("WAV data ended early", "frames_left", w.framesLeft, "error", err)
		w.framesLeft = 0
	}
	if w.framesLeft == 0 {
		w.state = wavExhausted
	}
	return got
}

// Reset returns to the first frame of the data chunk
func (w *WavSource) Reset() { w.SetPosition(0) }

func (w *WavSource) Seekable() bool { return true }
func (w *WavSource) Length() int { return w.dataFrames }

func (w *WavSource) Position() int {
	return w.dataFrames - w.framesLeft
}

func (w *WavSource) SetPosition(frame int) {
	frame = max(0, min(frame, w.dataFrames))
	offset := w.dataStart + int64(frame*w.format.FrameSize())
	if _, err := w.r.Seek(offset, io.SeekStart); err != nil {
		slog.Error("WAV seek failed", "frame", frame, "error", err)
		w.state = wavExhausted
		return
	}
	w.framesLeft = w.dataFrames - frame
	if w.framesLeft > 0 {
		w.state = wavStreaming
	} else {
		w.state = wavExhausted
	}
}

func (w *WavSource) Close() error {
	w.state = wavExhausted
	return w.r.Close()
}
