package audio

import (
	"errors"
)

// Backend is an output driver. The device mixes FramesPerBuffer frames per tick in
// Format and hands them to Write.
//
// A threaded backend paces the device: Write blocks until the hardware has room, and
// the device runs its tick on its own goroutine. A polling backend never blocks, and
// the application drives the tick by calling Device.Update.
type Backend interface {
	// Name returns the backend type name, e.g. "null" or "malgo"
	Name() string

	// Open initializes the driver. It fails fast, with no retries.
	Open(params Parameters) error

	// Threaded reports whether the device should run its own tick goroutine
	Threaded() bool

	// Format returns the output layout chosen by Open
	Format() Format

	// FramesPerBuffer returns the mixing granularity chosen by Open
	FramesPerBuffer() int

	// Update gives the driver a chance to do periodic work before each tick
	Update() error

	// Write queues one mixed buffer for output
	Write(pcm []byte) error

	// Close releases the driver. A closed backend may be opened again.
	Close() error
}

// WritableBackend is implemented by backends that buffer output. The device skips a
// polling tick when Writable reports fewer than FramesPerBuffer frames of room.
type WritableBackend interface {
	Writable() int
}

// VolumeBackend is implemented by backends that apply the device volume in the driver
// instead of in the mixer
type VolumeBackend interface {
	SetVolume(volume float32) error
}

// FlushBackend is implemented by backends that queue mixed audio ahead of the
// hardware. Flush drops what has not been played yet.
type FlushBackend interface {
	Flush()
}

// Common errors for Backend implementations
var (
	ErrBackendNotAvailable = errors.New("audio backend not available")
	ErrBackendClosed       = errors.New("audio backend is closed")
	ErrOpenFailed          = errors.New("audio backend failed to open")
)
