package audio

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Common decoder errors
var (
	ErrDecode            = errors.New("failed to decode audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Decoder opens an encoded byte stream as a SampleSource
type Decoder interface {
	// Open parses enough of r to know the stream's format and returns a source that
	// owns r. On error r is left open for the caller and no source is returned.
	Open(r io.ReadSeekCloser) (SampleSource, error)

	// CanDecode checks if this decoder can handle the given filename
	CanDecode(filename string) bool

	// FormatName returns the name of the format this decoder handles
	FormatName() string
}

// hasExtension reports whether filename ends in one of exts, ignoring case
func hasExtension(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
