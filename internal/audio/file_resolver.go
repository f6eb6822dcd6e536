package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// ErrFileNotFound is returned when no candidate path exists
var ErrFileNotFound = errors.New("sound file not found")

// DefaultExtensions lists the decodable extensions in lookup priority order
var DefaultExtensions = []string{"wav", "ogg", "flac", "mp3", "aiff"}

// FileResolver finds sound files that may be named without an extension
type FileResolver struct {
	fs                  afero.Fs
	supportedExtensions []string
}

// NewFileResolver creates a resolver over fs that tries extensions in order
func NewFileResolver(fs afero.Fs, extensions []string) *FileResolver {
	slog.Debug("creating file resolver", "extensions", extensions)
	return &FileResolver{
		fs:                  fs,
		supportedExtensions: extensions,
	}
}

// Resolve returns path itself when it names a file, otherwise the first existing
// path+extension in priority order
func (f *FileResolver) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrFileNotFound)
	}

	if info, err := f.fs.Stat(path); err == nil && !info.IsDir() {
		return path, nil
	}

	for _, ext := range f.supportedExtensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		candidate := path + ext
		if info, err := f.fs.Stat(candidate); err == nil && !info.IsDir() {
			slog.Debug("file resolved", "path", path, "resolved_path", candidate)
			return candidate, nil
		}
	}

	slog.Warn("file resolution failed", "path", path, "extensions_tried", f.supportedExtensions)
	return "", fmt.Errorf("%w: %s (tried %v)", ErrFileNotFound, path, f.supportedExtensions)
}

// GetSupportedExtensions returns the extensions in priority order
func (f *FileResolver) GetSupportedExtensions() []string {
	return f.supportedExtensions
}
