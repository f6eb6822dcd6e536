package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrSymbolNotFound is returned when a driver module lacks one of the required entry points
var ErrSymbolNotFound = errors.New("driver symbol not found")

// DriverLibrary is a loaded driver module. Bind resolves name and stores a callable Go
// function in the pointer fptr.
type DriverLibrary interface {
	Bind(name string, fptr any) error
	Close() error
}

// DriverLoader opens the driver module at path
type DriverLoader func(path string) (DriverLibrary, error)

// DriverTable holds the resolved entry points of an output driver module. Stream
// handles are opaque non-zero values; volume runs 0..255 and pan -255..255.
type DriverTable struct {
	OpenDriver      func(params string) bool
	CloseDriver     func()
	Update          func()
	OpenStream      func(channels, rate, bits int32, source, reset, opaque uintptr) uintptr
	CloseStream     func(stream uintptr)
	PlayStream      func(stream uintptr)
	StopStream      func(stream uintptr)
	ResetStream     func(stream uintptr)
	IsStreamPlaying func(stream uintptr) bool
	SetVolume       func(stream uintptr, volume int32)
	GetVolume       func(stream uintptr) int32
	SetPan          func(stream uintptr, pan int32)
	GetPan          func(stream uintptr) int32
}

type driverSymbol struct {
	name string
	fptr any
}

func (t *DriverTable) symbols() []driverSymbol {
	return []driverSymbol{
		{"AO_OpenDriver", &t.OpenDriver},
		{"AO_CloseDriver", &t.CloseDriver},
		{"AO_Update", &t.Update},
		{"AO_OpenStream", &t.OpenStream},
		{"AO_CloseStream", &t.CloseStream},
		{"AO_PlayStream", &t.PlayStream},
		{"AO_StopStream", &t.StopStream},
		{"AO_ResetStream", &t.ResetStream},
		{"AO_IsStreamPlaying", &t.IsStreamPlaying},
		{"AO_SetVolume", &t.SetVolume},
		{"AO_GetVolume", &t.GetVolume},
		{"AO_SetPan", &t.SetPan},
		{"AO_GetPan", &t.GetPan},
	}
}

// Load binds every entry point from lib. It is all or nothing: if any symbol is
// missing the table is cleared, lib is closed and the error wraps ErrSymbolNotFound.
func (t *DriverTable) Load(lib DriverLibrary) error {
	for _, sym := range t.symbols() {
		if err := lib.Bind(sym.name, sym.fptr); err != nil {
			slog.Error("driver module is missing an entry point", "symbol", sym.name, "error", err)
			t.Clear()
			if cerr := lib.Close(); cerr != nil {
				slog.Debug("closing driver module failed", "error", cerr)
			}
			return fmt.Errorf("%w: %s: %v", ErrSymbolNotFound, sym.name, err)
		}
	}
	if !t.Complete() {
		t.Clear()
		lib.Close()
		return fmt.Errorf("%w: module bound a nil entry point", ErrSymbolNotFound)
	}
	return nil
}

// Clear drops every entry point
func (t *DriverTable) Clear() {
	*t = DriverTable{}
}

// Complete reports whether every entry point is bound
func (t *DriverTable) Complete() bool {
	return t.OpenDriver != nil && t.CloseDriver != nil && t.Update != nil &&
		t.OpenStream != nil && t.CloseStream != nil && t.PlayStream != nil &&
		t.StopStream != nil && t.ResetStream != nil && t.IsStreamPlaying != nil &&
		t.SetVolume != nil && t.GetVolume != nil && t.SetPan != nil && t.GetPan != nil
}

// Empty reports whether no entry point is bound
func (t *DriverTable) Empty() bool {
	return t.OpenDriver == nil && t.CloseDriver == nil && t.Update == nil &&
		t.OpenStream == nil && t.CloseStream == nil && t.PlayStream == nil &&
		t.StopStream == nil && t.ResetStream == nil && t.IsStreamPlaying == nil &&
		t.SetVolume == nil && t.GetVolume == nil && t.SetPan == nil && t.GetPan == nil
}

// VolumeToDriver maps a 0..1 volume to the driver's 0..255 scale
func VolumeToDriver(volume float32) int32 {
	return int32(math.Round(float64(clampUnit(volume, 0)) * 255))
}

// VolumeFromDriver maps a 0..255 driver volume back to 0..1
func VolumeFromDriver(volume int32) float32 {
	return float32(min(max(volume, 0), 255)) / 255
}

// PanToDriver maps a -1..1 pan to the driver's -255..255 scale
func PanToDriver(pan float32) int32 {
	return int32(math.Round(float64(clampUnit(pan, -1)) * 255))
}

// PanFromDriver maps a -255..255 driver pan back to -1..1
func PanFromDriver(pan int32) float32 {
	return float32(min(max(pan, -255), 255)) / 255
}
