//go:build !cgo && !darwin && !windows

package audio

import "fmt"

// OtoBackend needs cgo on this platform; Open always fails
type OtoBackend struct{}

func NewOtoBackend() *OtoBackend { return &OtoBackend{} }

func (ob *OtoBackend) Name() string { return BackendOto }

func (ob *OtoBackend) Open(Parameters) error {
	return fmt.Errorf("%w: oto needs cgo on this platform", ErrBackendNotAvailable)
}

func (ob *OtoBackend) Threaded() bool { return true }
func (ob *OtoBackend) Format() Format { return Format{} }
func (ob *OtoBackend) FramesPerBuffer() int { return 0 }
func (ob *OtoBackend) Update() error { return nil }
func (ob *OtoBackend) Write([]byte) error { return ErrBackendClosed }
func (ob *OtoBackend) Close() error { return nil }
