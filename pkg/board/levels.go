package board

import (
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/stianeikeland/go-rpio/v4"
)

// LevelReader reports the electrical level of a GPIO line
type LevelReader interface {
	Level(line int) (bool, error)
	Close() error
}

// RpioLevels reads GPIO levels through /dev/gpiomem
type RpioLevels struct{}

// OpenRpioLevels maps the GPIO registers. It fails off-device.
func OpenRpioLevels() (*RpioLevels, error) {
	if err := rpio.Open(); err != nil {
		return nil, errors.Wrap(err, "open gpio memory")
	}
	return &RpioLevels{}, nil
}

// Level reads the line without changing its mode
func (RpioLevels) Level(line int) (bool, error) {
	return rpio.Pin(line).Read() == rpio.High, nil
}

// Close unmaps the GPIO registers
func (RpioLevels) Close() error {
	return rpio.Close()
}

// PinLevels reads the level of every GPIO pin, keyed by pin number.
// Pins whose level cannot be read are left out.
func PinLevels(r LevelReader, pins []models.Pin) map[int]bool {
	levels := make(map[int]bool)
	for _, p := range pins {
		line, ok := p.GPIOLine()
		if !ok || p.Mode != models.PinModeGPIO {
			continue
		}
		high, err := r.Level(line)
		if err != nil {
			continue
		}
		levels[p.Number] = high
	}
	return levels
}
