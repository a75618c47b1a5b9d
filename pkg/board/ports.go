package board

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// PortAllocator binds groups of pins to bus ports on top of a PinRegistry
type PortAllocator struct {
	pins *PinRegistry

	mu    sync.RWMutex
	ports map[string]models.Port
	order []string
}

// NewPortAllocator creates an allocator claiming pins from pins
func NewPortAllocator(pins *PinRegistry) *PortAllocator {
	return &PortAllocator{
		pins:  pins,
		ports: make(map[string]models.Port),
	}
}

// PortClaimant is the claimant recorded on pins owned by a port
func PortClaimant(name string) string {
	return "port:" + name
}

// BindPort claims every role pin for the named port. On any failure the pins
// claimed so far are released and the claim error is returned.
func (a *PortAllocator) BindPort(name string, kind models.PortKind, roles map[string]int) (models.Port, error) {
	info, ok := models.PortKindRegistry[kind]
	if !ok {
		return models.Port{}, errors.Wrapf(models.ErrUnknownKind, "port %s kind %q", name, kind)
	}
	for _, role := range info.Required {
		if _, ok := roles[role]; !ok {
			return models.Port{}, errors.Wrapf(ErrMissingRole, "port %s needs %s", name, role)
		}
	}
	known := kind.Roles()
	for role := range roles {
		if !contains(known, role) {
			return models.Port{}, errors.Wrapf(ErrUnknownRole, "port %s role %s", name, role)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.ports[name]; exists {
		return models.Port{}, errors.Wrapf(ErrPortExists, "port %s", name)
	}

	port := models.Port{Name: name, Kind: kind}
	claimant := PortClaimant(name)
	for _, role := range known {
		number, ok := roles[role]
		if !ok {
			continue
		}
		if err := a.pins.Claim(number, claimant); err != nil {
			a.rollback(port.Pins)
			return models.Port{}, errors.Wrapf(err, "bind port %s role %s", name, role)
		}
		port.Pins = append(port.Pins, models.PortPin{Role: role, Pin: number})
	}

	a.ports[name] = port
	a.order = append(a.order, name)
	return port, nil
}

func (a *PortAllocator) rollback(claimed []models.PortPin) {
	for _, pp := range claimed {
		_ = a.pins.Release(pp.Pin)
	}
}

// TearDown releases all pins of a port and forgets it
func (a *PortAllocator) TearDown(name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	port, ok := a.ports[name]
	if !ok {
		return errors.Wrapf(ErrPortNotFound, "port %s", name)
	}
	a.rollback(port.Pins)
	delete(a.ports, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns a bound port by name
func (a *PortAllocator) Get(name string) (models.Port, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	port, ok := a.ports[name]
	if !ok {
		return models.Port{}, errors.Wrapf(ErrPortNotFound, "port %s", name)
	}
	return port, nil
}

// Ports returns all bound ports in bind order
func (a *PortAllocator) Ports() []models.Port {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ports := make([]models.Port, 0, len(a.order))
	for _, name := range a.order {
		ports = append(ports, a.ports[name])
	}
	return ports
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
