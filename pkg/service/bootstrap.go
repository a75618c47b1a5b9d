package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/board"
	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/models"
	"github.com/sguter90/pimaestro/pkg/sensors"
)

// ChannelEnsurer is implemented by stores that keep channel metadata
type ChannelEnsurer interface {
	EnsureChannels(ctx context.Context, sensor models.Sensor) error
}

// NewBoard builds the board described by a board file. Pin overrides replace
// entries of the default header table by number. A number may be overridden once.
func NewBoard(bf *config.BoardFile) (*board.Board, error) {
	pins := board.RaspberryPiPins()
	overridden := make(map[int]bool, len(bf.Pins))
	for _, pc := range bf.Pins {
		if overridden[pc.Number] {
			return nil, errors.Wrapf(board.ErrDuplicatePin, "pin %d overridden twice", pc.Number)
		}
		overridden[pc.Number] = true

		mode, err := models.ParsePinMode(pc.Mode)
		if err != nil {
			return nil, errors.Wrapf(err, "pin %d", pc.Number)
		}
		override := models.Pin{Number: pc.Number, Name: pc.Name, Mode: mode}

		replaced := false
		for i := range pins {
			if pins[i].Number == pc.Number {
				pins[i] = override
				replaced = true
				break
			}
		}
		if !replaced {
			pins = append(pins, override)
		}
	}

	return board.New(board.Info{Name: bf.Name, Model: bf.Model}, pins)
}

// Bootstrap binds the configured ports and registers the configured sensors.
// A bad item is reported and skipped. It never aborts the rest.
func (s *Service) Bootstrap(ctx context.Context, bf *config.BoardFile) []error {
	var errs []error

	for _, spec := range portSpecs(bf, &errs) {
		if _, err := s.board.Ports.BindPort(spec.Name, spec.Kind, spec.Roles); err != nil {
			s.logger.WithField("port", spec.Name).WarnWithError(err, "Port not bound")
			errs = append(errs, err)
			continue
		}
		s.logger.WithField("port", spec.Name).Debug("Bound port")
	}

	for _, sc := range bf.Sensors {
		sensor, err := s.registerSensor(sc)
		if err != nil {
			err = errors.Wrapf(err, "sensor %q", sc.Name)
			s.logger.WithField("sensor", sc.Name).WarnWithError(err, "Sensor not registered")
			errs = append(errs, err)
			continue
		}

		if ce, ok := s.store.(ChannelEnsurer); ok {
			if err := ce.EnsureChannels(ctx, sensor); err != nil {
				err = errors.Wrapf(err, "sensor %q", sc.Name)
				s.logger.WithField("sensor", sc.Name).WarnWithError(err, "Channel metadata not stored")
				errs = append(errs, err)
			}
		}
	}

	return errs
}

// Teardown deregisters every sensor, then releases every port
func (s *Service) Teardown() {
	for _, sensor := range s.sensors.List() {
		if err := s.sensors.Deregister(sensor.ID); err != nil {
			s.logger.WithField("sensor", sensor.Name).WarnWithError(err, "Deregister failed")
		}
	}
	for _, port := range s.board.Ports.Ports() {
		if err := s.board.Ports.TearDown(port.Name); err != nil {
			s.logger.WithField("port", port.Name).WarnWithError(err, "Port teardown failed")
		}
	}
}

// portSpecs resolves the configured ports. No ports means the full default table.
func portSpecs(bf *config.BoardFile, errs *[]error) []board.PortSpec {
	if len(bf.Ports) == 0 {
		return board.RaspberryPiPorts()
	}

	specs := make([]board.PortSpec, 0, len(bf.Ports))
	for _, pc := range bf.Ports {
		if pc.Kind == "" {
			spec, ok := board.LookupPortSpec(pc.Name)
			if !ok {
				*errs = append(*errs, errors.Wrapf(board.ErrPortNotFound, "port %s is not a default port", pc.Name))
				continue
			}
			specs = append(specs, spec)
			continue
		}

		kind, err := models.ParsePortKind(pc.Kind)
		if err != nil {
			*errs = append(*errs, errors.Wrapf(err, "port %s", pc.Name))
			continue
		}
		specs = append(specs, board.PortSpec{Name: pc.Name, Kind: kind, Roles: pc.Pins})
	}
	return specs
}

func (s *Service) registerSensor(sc config.SensorConfig) (models.Sensor, error) {
	kind, err := models.ParseSensorKind(sc.Kind)
	if err != nil {
		return models.Sensor{}, err
	}

	var id uuid.UUID
	if sc.ID != "" {
		if id, err = uuid.Parse(sc.ID); err != nil {
			return models.Sensor{}, errors.Wrapf(err, "invalid id %q", sc.ID)
		}
	}

	id, err = s.sensors.Register(sensors.Registration{
		ID:       id,
		Name:     sc.Name,
		Kind:     kind,
		Binding:  sensors.Binding{Pin: sc.Pin, Port: sc.Port, Address: sc.Address},
		Interval: sc.PollInterval(),
	})
	if err != nil {
		return models.Sensor{}, err
	}

	return s.sensors.Get(id)
}
