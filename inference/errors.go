package inference

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrModelLoad is returned when the weights cannot be resolved or the model cannot be started on the device.
	ErrModelLoad = errors.New("model load failed")
	// ErrInference is returned when a single inference call fails.
	ErrInference = errors.New("inference failed")
)

// LoadError reports which weights reference failed to load and why.
//
// It matches ErrModelLoad with errors.Is and unwraps to the underlying cause.
type LoadError struct {
	Ref    string
	Device string
	Err    error
}

// NewLoadError wraps err as a model load failure for ref on device.
func NewLoadError(ref, device string, err error) error {
	return &LoadError{Ref: ref, Device: device, Err: err}
}

func (e *LoadError) Error() string {
	device := e.Device
	if device == "" {
		device = "default device"
	}
	return fmt.Sprintf("%v: %s on %s: %v", ErrModelLoad, e.Ref, device, e.Err)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrModelLoad.
func (e *LoadError) Is(target error) bool {
	return target == ErrModelLoad
}
