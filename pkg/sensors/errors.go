package sensors

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Registry errors
var (
	ErrInvalidInterval    = errors.New("interval must be positive")
	ErrUnknownKind        = models.ErrUnknownKind
	ErrBindingUnavailable = errors.New("binding unavailable")
	ErrBindingMismatch    = errors.New("binding does not match sensor kind")
	ErrSensorNotFound     = errors.New("sensor not found")
	ErrDuplicateSensor    = errors.New("sensor already registered")
)

// BindingError reports a pin or port that could not be claimed, or one that
// does not fit the sensor kind. It matches ErrBindingUnavailable and unwraps
// to the underlying claim or mismatch error.
type BindingError struct {
	Binding string
	Err     error
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrBindingUnavailable, e.Binding, e.Err)
}

func (e *BindingError) Is(target error) bool { return target == ErrBindingUnavailable }

func (e *BindingError) Unwrap() error { return e.Err }
