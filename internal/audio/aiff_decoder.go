package audio

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/go-audio/aiff"
	"github.com/go-audio/audio"
)

// AiffDecoder handles AIFF audio format decoding
type AiffDecoder struct{}

// NewAiffDecoder creates a new AIFF decoder instance
func NewAiffDecoder() *AiffDecoder {
	slog.Debug("creating new AIFF decoder instance")
	return &AiffDecoder{}
}

// FormatName returns the name of the format this decoder handles
func (d *AiffDecoder) FormatName() string {
	return "AIFF"
}

// CanDecode checks if this decoder can handle the given filename
func (d *AiffDecoder) CanDecode(filename string) bool {
	return hasExtension(filename, ".aiff", ".aif")
}

// Open decodes the whole file into memory. The result is a seekable 16-bit source and
// r is closed once its samples have been read.
func (d *AiffDecoder) Open(r io.ReadSeekCloser) (SampleSource, error) {
	slog.Debug("starting AIFF decode operation")

	decoder := aiff.NewDecoder(r)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		slog.Error("invalid AIFF file format")
		return nil, fmt.Errorf("%w: invalid AIFF file", ErrDecode)
	}

	sampleRate := int(decoder.SampleRate)
	channels := int(decoder.NumChans)
	bitDepth := int(decoder.SampleBitDepth())

	slog.Debug("AIFF format detected",
		"sample_rate", sampleRate,
		"channels", channels,
		"bits_per_sample", bitDepth)

	if channels == 0 || sampleRate == 0 || bitDepth == 0 {
		slog.Error("invalid AIFF format parameters",
			"channels", channels,
			"sample_rate", sampleRate,
			"bit_depth", bitDepth)
		return nil, fmt.Errorf("%w: invalid AIFF format parameters", ErrDecode)
	}
	if bitDepth > 32 {
		return nil, fmt.Errorf("%w: %d-bit AIFF", ErrUnsupportedFormat, bitDepth)
	}

	pcmBuffer, err := decoder.FullPCMBuffer()
	if err != nil {
		slog.Error("failed to read AIFF samples", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	if pcmBuffer == nil || len(pcmBuffer.Data) == 0 {
		slog.Error("no audio data found in AIFF file")
		return nil, fmt.Errorf("%w: no sound data", ErrDecode)
	}

	src, err := aiffBufferSource(pcmBuffer, bitDepth)
	if err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		slog.Warn("failed to close AIFF input", "error", err)
	}

	slog.Info("AIFF decode completed successfully",
		"frames", src.Length(),
		"format", src.Format().String())
	return src, nil
}

// aiffBufferSource narrows an integer PCM buffer to 16-bit frames
func aiffBufferSource(buf *audio.IntBuffer, bitDepth int) (*BufferSource, error) {
	format := Format{
		Channels:     buf.Format.NumChannels,
		SampleRate:   buf.Format.SampleRate,
		SampleFormat: FormatS16LE,
	}
	return NewBufferSource(format, intsToS16(buf.Data, bitDepth))
}
