package board

import (
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Info is the process-wide description of the board, loaded once at startup
type Info struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Board groups the pin registry and port allocator of one board
type Board struct {
	Info  Info
	Pins  *PinRegistry
	Ports *PortAllocator
}

// Snapshot is a consistent-enough copy of the board state for display
type Snapshot struct {
	Info  Info          `json:"info"`
	Pins  []models.Pin  `json:"pins"`
	Ports []models.Port `json:"ports"`
}

// New initializes a board from a pin table. An empty table selects the
// Raspberry Pi 40-pin header.
func New(info Info, topology []models.Pin) (*Board, error) {
	if len(topology) == 0 {
		topology = RaspberryPiPins()
	}
	pins, err := NewPinRegistry(topology)
	if err != nil {
		return nil, errors.Wrap(err, "initialize pin registry")
	}
	return &Board{
		Info:  info,
		Pins:  pins,
		Ports: NewPortAllocator(pins),
	}, nil
}

// Snapshot returns the current pins and bound ports
func (b *Board) Snapshot() Snapshot {
	return Snapshot{
		Info:  b.Info,
		Pins:  b.Pins.Pins(),
		Ports: b.Ports.Ports(),
	}
}
