package audio

import (
	"errors"
	"fmt"
	"log/slog"
)

// Backend type names
const (
	BackendNull          = "null"
	BackendMalgo         = "malgo"
	BackendOto           = "oto"
	BackendSystemCommand = "system_command"
	BackendWavFile       = "wavfile"
	BackendDLL           = "dll"
)

// BackendFactory creates Backend instances by name
type BackendFactory interface {
	CreateBackend(backendType string) (Backend, error)
	GetSupportedBackends() []string
	IsValidBackendType(backendType string) bool
	// AutodetectOrder lists the backends to try, best first, when no device is named
	AutodetectOrder() []string
}

// DefaultBackendFactory implements BackendFactory with platform detection
type DefaultBackendFactory struct {
	isWSLFunc     func() bool
	commandExists func(string) bool
}

// Factory errors
var (
	ErrInvalidBackendType    = errors.New("invalid backend type")
	ErrBackendCreationFailed = errors.New("backend creation failed")
)

// NewBackendFactory creates a new DefaultBackendFactory with real platform detection
func NewBackendFactory() *DefaultBackendFactory {
	return &DefaultBackendFactory{
		isWSLFunc:     IsWSL,
		commandExists: CommandExists,
	}
}

// NewBackendFactoryWithDependencies creates a factory with injected dependencies for testing
func NewBackendFactoryWithDependencies(isWSLFunc func() bool, commandExists func(string) bool) *DefaultBackendFactory {
	return &DefaultBackendFactory{
		isWSLFunc:     isWSLFunc,
		commandExists: commandExists,
	}
}

// CreateBackend creates an unopened Backend of the given type
func (f *DefaultBackendFactory) CreateBackend(backendType string) (Backend, error) {
	slog.Debug("creating audio backend", "type", backendType)

	switch backendType {
	case BackendNull:
		return NewNullBackend(), nil
	case BackendMalgo:
		return NewMalgoBackend(), nil
	case BackendOto:
		return NewOtoBackend(), nil
	case BackendSystemCommand:
		return f.createSystemCommandBackend()
	case BackendWavFile:
		return NewWavFileBackend(), nil
	case BackendDLL:
		return NewDLLBackend(), nil
	default:
		slog.Error("invalid backend type requested", "type", backendType)
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackendType, backendType)
	}
}

// GetSupportedBackends returns a list of all supported backend types
func (f *DefaultBackendFactory) GetSupportedBackends() []string {
	return []string{
		DeviceAutodetect,
		BackendNull,
		BackendMalgo,
		BackendOto,
		BackendSystemCommand,
		BackendWavFile,
		BackendDLL,
	}
}

// IsValidBackendType checks if a backend type is supported
func (f *DefaultBackendFactory) IsValidBackendType(backendType string) bool {
	// Empty string is valid (defaults to autodetect)
	if backendType == "" {
		return true
	}
	for _, supportedType := range f.GetSupportedBackends() {
		if backendType == supportedType {
			return true
		}
	}
	return false
}

// AutodetectOrder returns the hardware backends in preference order for this platform
// followed by null, so autodetection always yields a device
func (f *DefaultBackendFactory) AutodetectOrder() []string {
	order := detectBackendOrderWithChecker(f.isWSLFunc(), f.commandExists)
	slog.Debug("auto-detection result", "order", order)
	return order
}

// createSystemCommandBackend creates a SystemCommandBackend with the best available command
func (f *DefaultBackendFactory) createSystemCommandBackend() (Backend, error) {
	preferredCommand := getPreferredSystemCommandWithChecker(f.commandExists)
	if preferredCommand == "" {
		slog.Error("no system audio commands available")
		return nil, fmt.Errorf("%w: no system audio commands found", ErrBackendNotAvailable)
	}

	slog.Debug("system command backend created", "command", preferredCommand)
	return NewSystemCommandBackend(preferredCommand), nil
}
