package driver

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
)

type stubDriver struct{}

func (stubDriver) Read(ctx context.Context) (Result, error) { return Invalid("stub"), nil }
func (stubDriver) Close() error                             { return nil }

func TestFactory_ClosedRegistry(t *testing.T) {
	builds := 0
	builders := map[models.SensorKind]Builder{
		models.SensorKindDHT22: func(models.Sensor) (Driver, error) {
			builds++
			return stubDriver{}, nil
		},
	}
	factory := newFromBuilders(builders, nil)

	if _, err := factory(models.Sensor{Kind: models.SensorKindDHT22}); err != nil {
		t.Fatalf("Expected DHT22 to build, got %v", err)
	}
	if builds != 1 {
		t.Errorf("Expected builder to be called once, got %d", builds)
	}

	_, err := factory(models.Sensor{Kind: models.SensorKind("__import__('os')")})
	if !IsFatal(err) || !errors.Is(err, models.ErrUnknownKind) {
		t.Errorf("Expected fatal unknown kind, got %v", err)
	}
}

func TestFactory_SetupFailure(t *testing.T) {
	builders := map[models.SensorKind]Builder{
		models.SensorKindDHT22: func(models.Sensor) (Driver, error) { return stubDriver{}, nil },
	}
	factory := newFromBuilders(builders, func() error { return errors.New("no /dev/gpiomem") })

	_, err := factory(models.Sensor{Kind: models.SensorKindDHT22})
	if !IsFatal(err) {
		t.Errorf("Expected setup failure to be fatal, got %v", err)
	}
}

func TestSimulation_Read(t *testing.T) {
	tests := []struct {
		kind     models.SensorKind
		channels []string
	}{
		{models.SensorKindDHT22, []string{models.SensorTypeTemperature, models.SensorTypeHumidity}},
		{models.SensorKindBMP085, []string{models.SensorTypeTemperature, models.SensorTypePressure, models.SensorTypeAltitude}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			d, err := NewFactory(true)(models.Sensor{ID: uuid.New(), Kind: tt.kind})
			if err != nil {
				t.Fatalf("Failed to create simulation: %v", err)
			}
			defer d.Close()

			res, err := d.Read(context.Background())
			if err != nil || !res.Valid {
				t.Fatalf("Expected valid result, got %+v, %v", res, err)
			}
			for _, ch := range tt.channels {
				if _, ok := res.Values[ch]; !ok {
					t.Errorf("Missing channel %s", ch)
				}
			}
		})
	}
}

func TestSimulation_Ranges(t *testing.T) {
	d, _ := NewSimulation(models.Sensor{ID: uuid.New(), Kind: models.SensorKindBMP085})

	for i := 0; i < 100; i++ {
		res, _ := d.Read(context.Background())
		p := res.Values[models.SensorTypePressure]
		if p < 1011 || p > 1015 {
			t.Fatalf("Pressure %v outside simulated range", p)
		}
		if alt := res.Values[models.SensorTypeAltitude]; alt < -20 || alt > 20 {
			t.Fatalf("Altitude %v inconsistent with pressure %v", alt, p)
		}
	}
}

func TestSimulation_UnknownKind(t *testing.T) {
	_, err := NewSimulation(models.Sensor{Kind: "BME680"})
	if !IsFatal(err) {
		t.Errorf("Expected fatal fault, got %v", err)
	}
}
