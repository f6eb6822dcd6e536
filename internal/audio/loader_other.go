//go:build !((darwin || freebsd || linux) && !android && (amd64 || arm64))

package audio

import "fmt"

func openDriverLibrary(path string) (DriverLibrary, error) {
	return nil, fmt.Errorf("%w: driver modules are not supported on this platform", ErrBackendNotAvailable)
}

func driverCallbacks() (uintptr, uintptr, error) {
	return 0, 0, fmt.Errorf("%w: driver callbacks are not supported on this platform", ErrBackendNotAvailable)
}
