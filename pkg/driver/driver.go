package driver

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
	"periph.io/x/host/v3"
)

// Driver reads one physical sensor. A driver is owned by a single polling
// loop and is never called concurrently.
type Driver interface {
	// Read performs one measurement. Physical failures are returned as a
	// *Fault or as an Invalid result, never as a panic.
	Read(ctx context.Context) (Result, error)
	Close() error
}

// Result is the outcome of a completed read
type Result struct {
	Valid  bool
	Values map[string]float64
	Reason string
}

// Valid builds a successful result keyed by channel name
func Valid(values map[string]float64) Result {
	return Result{Valid: true, Values: values}
}

// Invalid builds a result for a read that completed but produced unusable data
func Invalid(reason string) Result {
	return Result{Reason: reason}
}

// Factory creates the driver for a sensor
type Factory func(sensor models.Sensor) (Driver, error)

// Builder creates the driver for one sensor kind
type Builder func(sensor models.Sensor) (Driver, error)

var hardwareBuilders = map[models.SensorKind]Builder{
	models.SensorKindDHT22:  openDHT22,
	models.SensorKindBMP085: openBMP085,
}

var (
	hostOnce sync.Once
	hostErr  error
)

func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostErr = errors.Wrap(err, "host init")
		}
	})
	return hostErr
}

// NewFactory returns the hardware factory, or the simulation factory when
// simulate is set.
func NewFactory(simulate bool) Factory {
	if simulate {
		return NewSimulation
	}
	return newFromBuilders(hardwareBuilders, initHost)
}

func newFromBuilders(builders map[models.SensorKind]Builder, setup func() error) Factory {
	return func(sensor models.Sensor) (Driver, error) {
		build, ok := builders[sensor.Kind]
		if !ok {
			return nil, Fatal(errors.Wrapf(models.ErrUnknownKind, "no driver for %q", sensor.Kind))
		}
		if setup != nil {
			if err := setup(); err != nil {
				return nil, Fatal(err)
			}
		}
		return build(sensor)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
