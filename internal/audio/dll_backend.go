package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errDriverStreamStopped = errors.New("driver stopped the output stream")

// driverQueues maps the opaque value handed to a driver back to the queue its
// callbacks drain. Callbacks are created once per process, so they cannot close
// over a backend.
var driverQueues = struct {
	sync.Mutex
	next   uintptr
	queues map[uintptr]*pcmQueue
}{queues: map[uintptr]*pcmQueue{}}

func registerDriverQueue(q *pcmQueue) uintptr {
	driverQueues.Lock()
	defer driverQueues.Unlock()
	driverQueues.next++
	driverQueues.queues[driverQueues.next] = q
	return driverQueues.next
}

func unregisterDriverQueue(id uintptr) {
	driverQueues.Lock()
	defer driverQueues.Unlock()
	delete(driverQueues.queues, id)
}

func lookupDriverQueue(id uintptr) *pcmQueue {
	driverQueues.Lock()
	defer driverQueues.Unlock()
	return driverQueues.queues[id]
}

// driverPull fills buf from the queue registered as opaque and returns the frames
// written. An unknown opaque value yields nothing.
func driverPull(opaque uintptr, buf []byte) int {
	q := lookupDriverQueue(opaque)
	if q == nil {
		return 0
	}
	buf = buf[:len(buf)-len(buf)%q.frameSize]
	return q.Read(buf) / q.frameSize
}

// driverResetQueue drops what is queued for opaque
func driverResetQueue(opaque uintptr) {
	if q := lookupDriverQueue(opaque); q != nil {
		q.Flush()
	}
}

// DLLBackend plays through an external driver module named by the "dll" parameter.
// It opens a single driver stream and feeds it the device mix; the driver pulls that
// mix through a callback from within AO_Update, so this is a polling backend.
type DLLBackend struct {
	mutex sync.Mutex

	load      DriverLoader
	callbacks func() (source, reset uintptr, err error)

	lib    DriverLibrary
	table  DriverTable
	stream uintptr
	id     uintptr
	queue  *pcmQueue
	config OutputConfig
	open   bool
}

func NewDLLBackend() *DLLBackend {
	return NewDLLBackendWithLoader(openDriverLibrary, driverCallbacks)
}

// NewDLLBackendWithLoader creates a DLLBackend with injected module loading and
// callback creation for testing
func NewDLLBackendWithLoader(load DriverLoader, callbacks func() (uintptr, uintptr, error)) *DLLBackend {
	return &DLLBackend{load: load, callbacks: callbacks}
}

func (db *DLLBackend) Name() string { return BackendDLL }

// Open loads the module, opens the driver and starts one stream in the device format
func (db *DLLBackend) Open(params Parameters) error {
	config, err := OutputConfigFromParameters(params)
	if err != nil {
		return err
	}
	path := params.String(ParamDLL, "")
	if path == "" {
		return fmt.Errorf("%w: no %q parameter", ErrOpenFailed, ParamDLL)
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	source, reset, err := db.callbacks()
	if err != nil {
		return err
	}

	lib, err := db.load(path)
	if err != nil {
		slog.Error("failed to load driver module", "path", path, "error", err)
		return fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	if err := db.table.Load(lib); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	if !db.table.OpenDriver(params.Encode()) {
		db.unload(lib)
		return fmt.Errorf("%w: %s rejected the driver parameters", ErrOpenFailed, path)
	}

	queue := newPCMQueue(config.Format, config.FramesPerBuffer*config.QueueDepth)
	id := registerDriverQueue(queue)
	format := config.Format
	stream := db.table.OpenStream(int32(format.Channels), int32(format.SampleRate),
		int32(format.SampleFormat.Bits()), source, reset, id)
	if stream == 0 {
		unregisterDriverQueue(id)
		db.table.CloseDriver()
		db.unload(lib)
		return fmt.Errorf("%w: %s could not open a %s stream", ErrOpenFailed, path, format)
	}
	db.table.SetVolume(stream, 255)
	db.table.PlayStream(stream)

	db.lib = lib
	db.stream = stream
	db.id = id
	db.queue = queue
	db.config = config
	db.open = true
	slog.Debug("dll backend opened", "path", path, "format", format.String())
	return nil
}

func (db *DLLBackend) unload(lib DriverLibrary) {
	db.table.Clear()
	if err := lib.Close(); err != nil {
		slog.Debug("closing driver module failed", "error", err)
	}
}

func (db *DLLBackend) Threaded() bool { return false }

func (db *DLLBackend) Format() Format {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.config.Format
}

func (db *DLLBackend) FramesPerBuffer() int {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.config.FramesPerBuffer
}

// Update lets the driver pull queued audio. A stream the driver stopped on its own
// counts as a lost device.
func (db *DLLBackend) Update() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return ErrBackendClosed
	}
	db.table.Update()
	if !db.table.IsStreamPlaying(db.stream) {
		return errDriverStreamStopped
	}
	return nil
}

// Writable returns the free queue space in frames
func (db *DLLBackend) Writable() int {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return 0
	}
	return db.queue.Free()
}

// Flush drops queued audio the driver has not pulled yet
func (db *DLLBackend) Flush() {
	db.mutex.Lock()
	queue := db.queue
	db.mutex.Unlock()
	if queue != nil {
		queue.Flush()
	}
}

func (db *DLLBackend) Write(pcm []byte) error {
	db.mutex.Lock()
	queue, open := db.queue, db.open
	db.mutex.Unlock()
	if !open {
		return ErrBackendClosed
	}
	return queue.Write(pcm)
}

// SetVolume applies the device volume on the driver stream
func (db *DLLBackend) SetVolume(volume float32) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return ErrBackendClosed
	}
	db.table.SetVolume(db.stream, VolumeToDriver(volume))
	return nil
}

// Volume reads the driver stream volume back
func (db *DLLBackend) Volume() float32 {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return 0
	}
	return VolumeFromDriver(db.table.GetVolume(db.stream))
}

// SetPan sets the driver stream balance
func (db *DLLBackend) SetPan(pan float32) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return ErrBackendClosed
	}
	db.table.SetPan(db.stream, PanToDriver(pan))
	return nil
}

func (db *DLLBackend) Pan() float32 {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return 0
	}
	return PanFromDriver(db.table.GetPan(db.stream))
}

// Table returns a copy of the bound entry points
func (db *DLLBackend) Table() DriverTable {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.table
}

// Close stops and closes the stream, closes the driver and unloads the module
func (db *DLLBackend) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if !db.open {
		return nil
	}
	db.open = false

	db.queue.Close()
	db.table.StopStream(db.stream)
	db.table.CloseStream(db.stream)
	db.table.CloseDriver()
	unregisterDriverQueue(db.id)
	db.stream, db.id = 0, 0

	db.table.Clear()
	err := db.lib.Close()
	db.lib = nil
	if err != nil {
		return fmt.Errorf("unloading driver module: %w", err)
	}
	slog.Debug("dll backend closed")
	return nil
}
