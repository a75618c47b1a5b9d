package sensors

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/sguter90/pimaestro/pkg/logger"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Binding is either a single pin or a port plus bus address
type Binding struct {
	Pin     int
	Port    string
	Address uint16
}

// String renders the binding for error messages
func (b Binding) String() string {
	switch {
	case b.Pin != 0 && b.Port != "":
		return fmt.Sprintf("pin %d and port %s", b.Pin, b.Port)
	case b.Pin != 0:
		return fmt.Sprintf("pin %d", b.Pin)
	case b.Port != "":
		return fmt.Sprintf("%s@0x%02x", b.Port, b.Address)
	}
	return "no binding"
}

// Registration describes a sensor to attach. A zero ID is derived from the name.
type Registration struct {
	ID       uuid.UUID
	Name     string
	Kind     models.SensorKind
	Binding  Binding
	Interval time.Duration
}

// Poller starts and stops polling loops. Unschedule blocks until the
// in-flight read is done.
type Poller interface {
	Schedule(sensor models.Sensor) error
	Unschedule(id uuid.UUID) error
}

// Registry attaches sensors to the board and hands them to the poller
type Registry struct {
	board  *board.Board
	poller Poller
	logger *logger.Logger

	mu        sync.Mutex
	sensors   map[uuid.UUID]models.Sensor
	order     []uuid.UUID
	addresses map[models.PortRef]uuid.UUID
}

// NewRegistry creates a registry. poller may be nil.
func NewRegistry(b *board.Board, poller Poller, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.Nop()
	}
	return &Registry{
		board:     b,
		poller:    poller,
		logger:    log.WithComponent("sensors"),
		sensors:   make(map[uuid.UUID]models.Sensor),
		addresses: make(map[models.PortRef]uuid.UUID),
	}
}

// SensorClaimant is the claimant recorded on pins owned by a sensor
func SensorClaimant(id uuid.UUID) string {
	return "sensor:" + id.String()
}

// Register validates and claims the binding, then schedules polling
func (r *Registry) Register(reg Registration) (uuid.UUID, error) {
	if reg.Interval <= 0 {
		return uuid.Nil, errors.Wrapf(ErrInvalidInterval, "sensor %q interval %s", reg.Name, reg.Interval)
	}
	info, ok := reg.Kind.Info()
	if !ok {
		return uuid.Nil, errors.Wrapf(ErrUnknownKind, "sensor %q kind %q", reg.Name, reg.Kind)
	}

	id := reg.ID
	if id == uuid.Nil {
		if reg.Name != "" {
			id = models.SensorIDFromName(reg.Name)
		} else {
			id = uuid.New()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sensors[id]; exists {
		return uuid.Nil, errors.Wrapf(ErrDuplicateSensor, "sensor %s", id)
	}

	sensor := models.Sensor{
		ID:       id,
		Name:     reg.Name,
		Kind:     reg.Kind,
		Interval: reg.Interval,
		Channels: models.NewSensorValues(id, reg.Kind),
	}

	var err error
	if info.Port == "" {
		sensor.Input, err = r.claimPin(id, reg)
	} else {
		sensor.Port, err = r.claimPort(id, info, reg)
	}
	if err != nil {
		return uuid.Nil, err
	}

	r.sensors[id] = sensor
	r.order = append(r.order, id)

	if r.poller != nil {
		if err := r.poller.Schedule(sensor); err != nil {
			r.forget(id)
			r.release(sensor)
			return uuid.Nil, errors.Wrapf(err, "schedule sensor %q", sensor.Name)
		}
	}

	r.logger.Info(fmt.Sprintf("Registered %s sensor %q on %s", sensor.Kind, sensor.Name, sensor.Binding()))
	return id, nil
}

func (r *Registry) claimPin(id uuid.UUID, reg Registration) (*models.Input, error) {
	if reg.Binding.Pin == 0 || reg.Binding.Port != "" {
		err := errors.Wrapf(ErrBindingMismatch, "%s sensor %q needs a GPIO pin", reg.Kind, reg.Name)
		return nil, &BindingError{Binding: reg.Binding.String(), Err: err}
	}

	binding := fmt.Sprintf("pin %d", reg.Binding.Pin)
	if err := r.board.Pins.Claim(reg.Binding.Pin, SensorClaimant(id)); err != nil {
		return nil, &BindingError{Binding: binding, Err: err}
	}

	pin, err := r.board.Pins.Get(reg.Binding.Pin)
	if err != nil {
		_ = r.board.Pins.Release(reg.Binding.Pin)
		return nil, &BindingError{Binding: binding, Err: err}
	}
	line, ok := pin.GPIOLine()
	if !ok {
		_ = r.board.Pins.Release(reg.Binding.Pin)
		return nil, &BindingError{Binding: binding, Err: errors.Wrapf(board.ErrNotGpio, "pin %d has no GPIO line", pin.Number)}
	}

	return &models.Input{Pin: pin.Number, GPIO: line}, nil
}

func (r *Registry) claimPort(id uuid.UUID, info models.SensorKindInfo, reg Registration) (*models.PortRef, error) {
	if reg.Binding.Port == "" || reg.Binding.Pin != 0 {
		err := errors.Wrapf(ErrBindingMismatch, "%s sensor %q needs an %s port", reg.Kind, reg.Name, info.Port)
		return nil, &BindingError{Binding: reg.Binding.String(), Err: err}
	}

	ref := models.PortRef{Name: reg.Binding.Port, Address: reg.Binding.Address}
	if ref.Address == 0 {
		ref.Address = info.DefaultAddress
	}
	binding := fmt.Sprintf("%s@0x%02x", ref.Name, ref.Address)

	port, err := r.board.Ports.Get(ref.Name)
	if err != nil {
		return nil, &BindingError{Binding: binding, Err: err}
	}
	if port.Kind != info.Port {
		err := errors.Wrapf(ErrBindingMismatch, "port %s is %s, %s sensor %q needs %s", port.Name, port.Kind, reg.Kind, reg.Name, info.Port)
		return nil, &BindingError{Binding: binding, Err: err}
	}
	if holder, taken := r.addresses[ref]; taken {
		return nil, &BindingError{Binding: binding, Err: errors.Wrapf(board.ErrAlreadyClaimed, "address held by %s", SensorClaimant(holder))}
	}

	r.addresses[ref] = id
	return &ref, nil
}

// release frees the claims of a sensor. The caller holds r.mu.
func (r *Registry) release(sensor models.Sensor) {
	if sensor.Input != nil {
		if err := r.board.Pins.Release(sensor.Input.Pin); err != nil {
			r.logger.WarnWithError(err, "Failed to release pin")
		}
	}
	if sensor.Port != nil {
		delete(r.addresses, *sensor.Port)
	}
}

// forget drops a sensor from the listing. The caller holds r.mu.
func (r *Registry) forget(id uuid.UUID) {
	delete(r.sensors, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Deregister stops polling, waiting for the in-flight read, and only then
// releases the sensor's pin or bus address
func (r *Registry) Deregister(id uuid.UUID) error {
	r.mu.Lock()
	sensor, ok := r.sensors[id]
	if ok {
		r.forget(id)
	}
	r.mu.Unlock()

	if !ok {
		return errors.Wrapf(ErrSensorNotFound, "sensor %s", id)
	}

	if r.poller != nil {
		if err := r.poller.Unschedule(id); err != nil {
			r.logger.WarnWithError(err, "Unschedule failed")
		}
	}

	r.mu.Lock()
	r.release(sensor)
	r.mu.Unlock()

	r.logger.Info(fmt.Sprintf("Deregistered sensor %q", sensor.Name))
	return nil
}

// Get returns a registered sensor
func (r *Registry) Get(id uuid.UUID) (models.Sensor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sensor, ok := r.sensors[id]
	if !ok {
		return models.Sensor{}, errors.Wrapf(ErrSensorNotFound, "sensor %s", id)
	}
	return sensor, nil
}

// List returns all sensors in registration order
func (r *Registry) List() []models.Sensor {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := make([]models.Sensor, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.sensors[id])
	}
	return list
}
