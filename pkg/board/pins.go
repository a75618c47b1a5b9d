package board

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// PinRegistry tracks exclusive claims on the board's header pins.
// The mutex is only held for the duration of a single call.
type PinRegistry struct {
	mu   sync.Mutex
	pins map[int]*models.Pin
}

// NewPinRegistry populates the registry from a fixed topology table
func NewPinRegistry(topology []models.Pin) (*PinRegistry, error) {
	r := &PinRegistry{pins: make(map[int]*models.Pin, len(topology))}
	for _, p := range topology {
		if _, exists := r.pins[p.Number]; exists {
			return nil, errors.Wrapf(ErrDuplicatePin, "pin %d", p.Number)
		}
		pin := p
		pin.Claimed = false
		pin.Claimant = ""
		r.pins[p.Number] = &pin
	}
	return r, nil
}

// Claim grants claimant exclusive use of a GPIO pin
func (r *PinRegistry) Claim(number int, claimant string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin, ok := r.pins[number]
	if !ok {
		return errors.Wrapf(ErrNotFound, "pin %d", number)
	}
	if pin.Mode != models.PinModeGPIO {
		return errors.Wrapf(ErrNotGpio, "pin %d (%s) is %s", number, pin.Name, pin.Mode)
	}
	if pin.Claimed {
		return errors.Wrapf(ErrAlreadyClaimed, "pin %d held by %s", number, pin.Claimant)
	}

	pin.Claimed = true
	pin.Claimant = claimant
	return nil
}

// Release frees a pin. Releasing an unclaimed pin is a no-op.
func (r *PinRegistry) Release(number int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin, ok := r.pins[number]
	if !ok {
		return errors.Wrapf(ErrNotFound, "pin %d", number)
	}
	pin.Claimed = false
	pin.Claimant = ""
	return nil
}

// Get returns a snapshot of one pin
func (r *PinRegistry) Get(number int) (models.Pin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pin, ok := r.pins[number]
	if !ok {
		return models.Pin{}, errors.Wrapf(ErrNotFound, "pin %d", number)
	}
	return *pin, nil
}

// Pins returns a snapshot of all pins ordered by number
func (r *PinRegistry) Pins() []models.Pin {
	r.mu.Lock()
	pins := make([]models.Pin, 0, len(r.pins))
	for _, p := range r.pins {
		pins = append(pins, *p)
	}
	r.mu.Unlock()

	sort.Slice(pins, func(i, j int) bool { return pins[i].Number < pins[j].Number })
	return pins
}
