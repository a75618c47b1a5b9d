package driver

import (
	"fmt"

	"github.com/pkg/errors"
)

// FaultKind tells the scheduler whether a failed read may be retried
type FaultKind int

const (
	// FaultTransient failures are logged and the next tick retries
	FaultTransient FaultKind = iota
	// FaultFatal failures stop polling for the sensor
	FaultFatal
)

func (k FaultKind) String() string {
	if k == FaultFatal {
		return "fatal"
	}
	return "transient"
}

// ErrDeviceMissing reports hardware that is not present on this host
var ErrDeviceMissing = errors.New("device missing")

// Fault is a classified driver error
type Fault struct {
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s read fault: %v", f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Cause lets errors.Cause see through the fault
func (f *Fault) Cause() error { return f.Err }

// Transient wraps err as a retryable fault
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultTransient, Err: err}
}

// Fatal wraps err as a fault that ends polling
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Kind: FaultFatal, Err: err}
}

// IsFatal reports whether err carries a fatal fault. Unclassified errors are transient.
func IsFatal(err error) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == FaultFatal
	}
	return false
}
