package audio

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// DecoderRegistry manages audio format decoders and provides format detection
type DecoderRegistry struct {
	decoders []Decoder
}

// NewDecoderRegistry creates a new empty decoder registry
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{
		decoders: make([]Decoder, 0),
	}
}

// NewDefaultRegistry creates a registry with every built-in decoder
func NewDefaultRegistry() *DecoderRegistry {
	registry := NewDecoderRegistry()

	registry.Register(NewWavDecoder())
	registry.Register(NewMp3Decoder())
	registry.Register(NewAiffDecoder())
	registry.Register(NewFlacDecoder())
	registry.Register(NewOggDecoder())

	slog.Debug("default decoder registry initialized",
		"supported_formats", registry.GetSupportedFormats())

	return registry
}

// Register adds a decoder to the registry
func (r *DecoderRegistry) Register(decoder Decoder) {
	if decoder == nil {
		slog.Warn("attempted to register nil decoder")
		return
	}
	r.decoders = append(r.decoders, decoder)
}

// GetDecoders returns all registered decoders
func (r *DecoderRegistry) GetDecoders() []Decoder {
	return r.decoders
}

// GetSupportedFormats returns a list of all supported format names
func (r *DecoderRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(r.decoders))
	for _, decoder := range r.decoders {
		formats = append(formats, decoder.FormatName())
	}
	return formats
}

// DetectFormat detects the appropriate decoder based on filename extension only
func (r *DecoderRegistry) DetectFormat(filename string) Decoder {
	if filename == "" {
		return nil
	}

	// first registered has priority
	for _, decoder := range r.decoders {
		if decoder.CanDecode(filename) {
			slog.Debug("format detected by extension",
				"filename", filename,
				"format", decoder.FormatName())
			return decoder
		}
	}

	slog.Debug("no decoder found for filename", "filename", filename)
	return nil
}

// DetectFormatWithContent detects format using magic bytes first, falling back to the
// extension. The reader is rewound to its start before returning.
func (r *DecoderRegistry) DetectFormatWithContent(filename string, reader io.ReadSeeker) Decoder {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(reader, buffer)
	if _, seekErr := reader.Seek(0, io.SeekStart); seekErr != nil {
		slog.Error("failed to rewind after magic detection", "filename", filename, "error", seekErr)
	}
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		slog.Error("failed to read header for magic detection", "error", err)
		return r.DetectFormat(filename)
	}
	if n == 0 {
		slog.Debug("empty content, using extension fallback")
		return r.DetectFormat(filename)
	}

	mtype := mimetype.Detect(buffer[:n])
	mimeStr := strings.ToLower(mtype.String())

	slog.Debug("magic byte detection result",
		"filename", filename,
		"detected_mime", mimeStr,
		"bytes_analyzed", n)

	var formatDecoder Decoder
	switch {
	case strings.Contains(mimeStr, "wav") || mimeStr == "audio/vnd.wave":
		formatDecoder = r.findDecoderByFormat("WAV")
	case strings.Contains(mimeStr, "mpeg") || strings.Contains(mimeStr, "mp3"):
		formatDecoder = r.findDecoderByFormat("MP3")
	case strings.Contains(mimeStr, "aiff"):
		formatDecoder = r.findDecoderByFormat("AIFF")
	case strings.Contains(mimeStr, "flac"):
		formatDecoder = r.findDecoderByFormat("FLAC")
	case strings.Contains(mimeStr, "ogg"):
		formatDecoder = r.findDecoderByFormat("OGG")
	default:
		slog.Debug("unsupported or unrecognized magic bytes", "mime_type", mimeStr)
	}

	if formatDecoder != nil {
		slog.Debug("format detected by magic bytes",
			"filename", filename,
			"detected_format", formatDecoder.FormatName(),
			"mime_type", mimeStr)
		return formatDecoder
	}

	return r.DetectFormat(filename)
}

// findDecoderByFormat finds a decoder by its format name
func (r *DecoderRegistry) findDecoderByFormat(formatName string) Decoder {
	for _, decoder := range r.decoders {
		if strings.EqualFold(decoder.FormatName(), formatName) {
			return decoder
		}
	}
	return nil
}

// Open detects the format of reader and opens it as a SampleSource. The source owns
// reader on success; on failure reader is closed.
func (r *DecoderRegistry) Open(filename string, reader io.ReadSeekCloser) (SampleSource, error) {
	decoder := r.DetectFormatWithContent(filename, reader)
	if decoder == nil {
		reader.Close()
		err := fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
		slog.Error("no suitable decoder found", "filename", filename, "error", err)
		return nil, err
	}

	src, err := decoder.Open(reader)
	if err != nil {
		reader.Close()
		slog.Error("decode operation failed",
			"filename", filename,
			"decoder_format", decoder.FormatName(),
			"error", err)
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}

	slog.Info("sample source opened",
		"filename", filename,
		"decoder_format", decoder.FormatName(),
		"format", src.Format().String(),
		"seekable", src.Seekable(),
		"frames", src.Length())
	return src, nil
}

// OpenSampleSource opens path on fs and decodes it with registry, or the default
// registry when registry is nil
func OpenSampleSource(fs afero.Fs, path string, registry *DecoderRegistry) (SampleSource, error) {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	file, err := fs.Open(path)
	if err != nil {
		slog.Error("failed to open audio file", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrReadFailure, err)
	}
	return registry.Open(path, file)
}
