//go:build (darwin || freebsd || linux) && !android && (amd64 || arm64)

package audio

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

type puregoLibrary struct {
	handle uintptr
}

func openDriverLibrary(path string) (DriverLibrary, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendNotAvailable, err)
	}
	return &puregoLibrary{handle: handle}, nil
}

func (l *puregoLibrary) Bind(name string, fptr any) error {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return err
	}
	if addr == 0 {
		return fmt.Errorf("%s resolved to nil", name)
	}
	purego.RegisterFunc(fptr, addr)
	return nil
}

func (l *puregoLibrary) Close() error {
	return purego.Dlclose(l.handle)
}

// purego never frees callbacks, so both are created once and shared by every driver
var driverCallbackOnce struct {
	sync.Once
	source, reset uintptr
}

func driverCallbacks() (uintptr, uintptr, error) {
	driverCallbackOnce.Do(func() {
		driverCallbackOnce.source = purego.NewCallback(driverSourceCallback)
		driverCallbackOnce.reset = purego.NewCallback(driverResetCallback)
	})
	return driverCallbackOnce.source, driverCallbackOnce.reset, nil
}

// driverSourceCallback implements the C signature int source(void*, int, void*)
func driverSourceCallback(opaque, count uintptr, samples unsafe.Pointer) uintptr {
	frames := int(int32(count))
	q := lookupDriverQueue(opaque)
	if q == nil || frames <= 0 || samples == nil {
		return 0
	}
	buf := unsafe.Slice((*byte)(samples), frames*q.frameSize)
	return uintptr(driverPull(opaque, buf))
}

func driverResetCallback(opaque uintptr) {
	driverResetQueue(opaque)
}
