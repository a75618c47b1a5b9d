package models

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PinMode is the electrical role of a header pin
type PinMode string

// Pin modes
const (
	PinModePower    PinMode = "Power"
	PinModeGround   PinMode = "Ground"
	PinModeGPIO     PinMode = "GPIO"
	PinModeReserved PinMode = "Reserved"
)

// ParsePinMode resolves a pin mode name case-insensitively
func ParsePinMode(name string) (PinMode, error) {
	for _, m := range []PinMode{PinModePower, PinModeGround, PinModeGPIO, PinModeReserved} {
		if strings.EqualFold(string(m), name) {
			return m, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "pin mode %q", name)
}

// Pin is one physical header position
type Pin struct {
	Number   int     `json:"number"`
	Name     string  `json:"name"`
	Mode     PinMode `json:"mode"`
	Claimed  bool    `json:"claimed"`
	Claimant string  `json:"claimant,omitempty"`
}

// GPIOLine returns the line number encoded in names like "GPIO4"
func (p Pin) GPIOLine() (int, bool) {
	if !strings.HasPrefix(p.Name, "GPIO") {
		return 0, false
	}
	line, err := strconv.Atoi(strings.TrimPrefix(p.Name, "GPIO"))
	if err != nil || line < 0 {
		return 0, false
	}
	return line, true
}

// Input is a single-pin sensor binding
type Input struct {
	Pin  int `json:"pin"`
	GPIO int `json:"gpio"`
}
