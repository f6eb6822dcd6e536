//go:build !cgo

package audio

import (
	"errors"
	"fmt"
)

var errCGORequired = errors.New("the malgo backend requires a build with CGO_ENABLED=1 and a C compiler")

// MalgoBackend is unavailable without cgo; Open always fails so autodetection moves on
type MalgoBackend struct{}

func NewMalgoBackend() *MalgoBackend { return &MalgoBackend{} }

func (mb *MalgoBackend) Name() string { return BackendMalgo }

func (mb *MalgoBackend) Open(Parameters) error {
	return fmt.Errorf("%w: %w", ErrBackendNotAvailable, errCGORequired)
}

func (mb *MalgoBackend) Threaded() bool { return true }
func (mb *MalgoBackend) Format() Format { return Format{} }
func (mb *MalgoBackend) FramesPerBuffer() int { return 0 }
func (mb *MalgoBackend) Update() error { return nil }
func (mb *MalgoBackend) Write([]byte) error { return ErrBackendClosed }
func (mb *MalgoBackend) Close() error { return nil }
