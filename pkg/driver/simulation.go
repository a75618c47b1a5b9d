package driver

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

// Simulation produces plausible readings without hardware
type Simulation struct {
	kind models.SensorKind
	mu   sync.Mutex
	rnd  *rand.Rand
}

// NewSimulation creates a simulated driver for the sensor's kind
func NewSimulation(sensor models.Sensor) (Driver, error) {
	if _, ok := models.SensorKindRegistry[sensor.Kind]; !ok {
		return nil, Fatal(errors.Wrapf(models.ErrUnknownKind, "no simulation for %q", sensor.Kind))
	}
	seed := int64(0)
	for _, b := range sensor.ID {
		seed = seed<<8 | int64(b)
	}
	return &Simulation{kind: sensor.Kind, rnd: rand.New(rand.NewSource(seed))}, nil
}

// Read returns jittered values around typical indoor conditions
func (s *Simulation) Read(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, Transient(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case models.SensorKindDHT22:
		return Valid(map[string]float64{
			models.SensorTypeTemperature: s.around(21.5, 0.5),
			models.SensorTypeHumidity:    s.around(45, 2),
		}), nil
	case models.SensorKindBMP085:
		pa := s.around(101325, 150)
		return Valid(map[string]float64{
			models.SensorTypeTemperature: s.around(20, 0.5),
			models.SensorTypePressure:    pa / 100,
			models.SensorTypeAltitude:    altitude(pa),
		}), nil
	}
	return Invalid("unsupported kind"), nil
}

func (s *Simulation) around(center, spread float64) float64 {
	return center + (s.rnd.Float64()*2-1)*spread
}

// Close is a no-op
func (s *Simulation) Close() error { return nil }
