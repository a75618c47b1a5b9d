package models

import (
	"strings"

	"github.com/pkg/errors"
)

// PortKind is the bus type of a port
type PortKind string

// Port kinds
const (
	PortKindSerial PortKind = "Serial"
	PortKindI2C    PortKind = "I2C"
	PortKindSPI    PortKind = "SPI"
	PortKindPWM    PortKind = "PWM"
)

// PortKindInfo lists the pin roles of a port kind in canonical order
type PortKindInfo struct {
	Required []string
	Optional []string
}

// PortKindRegistry is the closed set of port kinds
var PortKindRegistry = map[PortKind]PortKindInfo{
	PortKindSerial: {Required: []string{"tx", "rx"}},
	PortKindI2C:    {Required: []string{"sda", "scl"}},
	PortKindSPI:    {Required: []string{"mosi", "miso", "sclk"}, Optional: []string{"ce0", "ce1", "ce2"}},
	PortKindPWM:    {Required: []string{"pin"}},
}

// ParsePortKind resolves a port kind name case-insensitively
func ParsePortKind(name string) (PortKind, error) {
	for kind := range PortKindRegistry {
		if strings.EqualFold(string(kind), name) {
			return kind, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "port kind %q", name)
}

// Roles returns required roles followed by optional ones
func (k PortKind) Roles() []string {
	info := PortKindRegistry[k]
	roles := make([]string, 0, len(info.Required)+len(info.Optional))
	roles = append(roles, info.Required...)
	return append(roles, info.Optional...)
}

// PortPin is one role-labelled pin of a port
type PortPin struct {
	Role string `json:"role"`
	Pin  int    `json:"pin"`
}

// Port is a bound group of pins dedicated to a bus
type Port struct {
	Name string    `json:"name"`
	Kind PortKind  `json:"kind"`
	Pins []PortPin `json:"pins"`
}

// Pin returns the pin number bound to role
func (p Port) Pin(role string) (int, bool) {
	for _, pp := range p.Pins {
		if pp.Role == role {
			return pp.Pin, true
		}
	}
	return 0, false
}

// PortRef is a sensor's attachment to a bus port
type PortRef struct {
	Name    string `json:"name"`
	Address uint16 `json:"address"`
}
