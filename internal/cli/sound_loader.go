package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"mixdown.dev/internal/audio"
)

// FileNotFoundError is returned when a sound cannot be found as given or in any sound
// directory
type FileNotFoundError struct {
	SoundPath string
	Paths     []string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("sound file not found: %s (searched in: %s)", e.SoundPath, strings.Join(e.Paths, ", "))
}

func (e *FileNotFoundError) Unwrap() error { return audio.ErrFileNotFound }

// IsFileNotFoundError checks if an error is a FileNotFoundError
func IsFileNotFoundError(err error) bool {
	var notFound *FileNotFoundError
	return errors.As(err, &notFound)
}

// SoundLoader finds sound files named on the command line and opens them as sample
// sources. A name is tried as given and then below each search directory, each time
// with the decodable extensions as fallback.
type SoundLoader struct {
	fs         afero.Fs
	resolver   *audio.FileResolver
	searchDirs []string
	registry   *audio.DecoderRegistry
}

// NewSoundLoader creates a loader over fsys that also searches searchDirs
func NewSoundLoader(fsys afero.Fs, searchDirs []string) *SoundLoader {
	slog.Debug("creating new sound loader", "search_dirs", searchDirs)
	return &SoundLoader{
		fs:         fsys,
		resolver:   audio.NewFileResolver(fsys, audio.DefaultExtensions),
		searchDirs: searchDirs,
		registry:   audio.NewDefaultRegistry(),
	}
}

// ResolveSoundPath returns the file a sound name refers to without opening it
func (sl *SoundLoader) ResolveSoundPath(soundPath string) (string, error) {
	if soundPath == "" {
		return "", fmt.Errorf("sound path cannot be empty")
	}

	if resolved, err := sl.resolver.Resolve(soundPath); err == nil {
		return resolved, nil
	}
	searched := []string{soundPath}

	// only relative names that stay below the directory are searched for
	if filepath.IsLocal(soundPath) {
		for _, dir := range sl.searchDirs {
			candidate := filepath.Join(dir, soundPath)
			searched = append(searched, candidate)
			if resolved, err := sl.resolver.Resolve(candidate); err == nil {
				slog.Debug("sound found in search directory", "sound_path", soundPath, "full_path", resolved)
				return resolved, nil
			}
		}
	}

	slog.Warn("sound file not found", "sound_path", soundPath, "searched_paths", searched)
	return "", &FileNotFoundError{SoundPath: soundPath, Paths: searched}
}

// LoadSound resolves soundPath and opens it for decoding. It returns the resolved path
// alongside the source.
func (sl *SoundLoader) LoadSound(soundPath string) (audio.SampleSource, string, error) {
	fullPath, err := sl.ResolveSoundPath(soundPath)
	if err != nil {
		return nil, "", err
	}

	src, err := audio.OpenSampleSource(sl.fs, fullPath, sl.registry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode sound file %s: %w", fullPath, err)
	}

	slog.Info("sound loaded",
		"sound_path", soundPath,
		"full_path", fullPath,
		"format", src.Format().String(),
		"seekable", src.Seekable())
	return src, fullPath, nil
}

// LoadSounds opens every name in order. On failure the sources already opened are
// closed.
func (sl *SoundLoader) LoadSounds(soundPaths []string) ([]audio.SampleSource, []string, error) {
	var sources []audio.SampleSource
	var paths []string
	for _, soundPath := range soundPaths {
		src, fullPath, err := sl.LoadSound(soundPath)
		if err != nil {
			for _, opened := range sources {
				opened.Close()
			}
			return nil, nil, err
		}
		sources = append(sources, src)
		paths = append(paths, fullPath)
	}
	return sources, paths, nil
}
