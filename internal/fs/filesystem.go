package fs

import (
	"github.com/spf13/afero"
)

// Factory provides the filesystems the CLI hands to devices, decoders and config
type Factory interface {
	// Production returns a filesystem that operates on the real OS filesystem
	Production() afero.Fs
	// ReadOnly returns the production filesystem with every write rejected. Inputs that
	// are only decoded are opened through it.
	ReadOnly() afero.Fs
	// Memory returns an in-memory filesystem for testing
	Memory() afero.Fs
}

// DefaultFactory provides the standard filesystem factory implementation
type DefaultFactory struct{}

// NewDefaultFactory creates a new filesystem factory
func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

func (f *DefaultFactory) Production() afero.Fs {
	return afero.NewOsFs()
}

func (f *DefaultFactory) ReadOnly() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

func (f *DefaultFactory) Memory() afero.Fs {
	return afero.NewMemMapFs()
}

// MemoryFactory serves one shared in-memory filesystem for every role, so a test can
// seed input files and read back what a command wrote
type MemoryFactory struct {
	fs afero.Fs
}

// NewMemoryFactory wraps fs, or a fresh MemMapFs when fs is nil
func NewMemoryFactory(fs afero.Fs) *MemoryFactory {
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	return &MemoryFactory{fs: fs}
}

func (f *MemoryFactory) Production() afero.Fs { return f.fs }
func (f *MemoryFactory) ReadOnly() afero.Fs   { return afero.NewReadOnlyFs(f.fs) }
func (f *MemoryFactory) Memory() afero.Fs     { return f.fs }
