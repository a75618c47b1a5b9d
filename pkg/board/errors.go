package board

import "github.com/pkg/errors"

// Claim errors
var (
	ErrAlreadyClaimed = errors.New("pin already claimed")
	ErrNotGpio        = errors.New("pin is not GPIO-capable")
	ErrNotFound       = errors.New("pin not found")
)

// Topology and port errors
var (
	ErrDuplicatePin = errors.New("duplicate pin number")
	ErrPortExists   = errors.New("port already bound")
	ErrPortNotFound = errors.New("port not found")
	ErrMissingRole  = errors.New("missing pin role")
	ErrUnknownRole  = errors.New("unknown pin role")
)
