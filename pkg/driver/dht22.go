package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/models"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

const (
	dhtStartSignal = 1100 * time.Microsecond
	dhtEdgeTimeout = time.Millisecond
	// response preamble (2 edges) plus 40 bits of 2 edges each, plus slack
	dhtMaxEdges = 86
	// high pulses longer than this encode a 1 bit (26-28us is 0, 70us is 1)
	dhtBitThreshold = 50 * time.Microsecond
)

// DHT22 reads an AM2302/DHT22 over a single GPIO line
type DHT22 struct {
	pin gpio.PinIO
}

// NewDHT22 creates a driver on an already resolved pin
func NewDHT22(pin gpio.PinIO) *DHT22 {
	return &DHT22{pin: pin}
}

func openDHT22(sensor models.Sensor) (Driver, error) {
	if sensor.Input == nil {
		return nil, Fatal(errors.Errorf("sensor %s: DHT22 needs a pin binding", sensor.Name))
	}
	name := fmt.Sprintf("GPIO%d", sensor.Input.GPIO)
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, Fatal(errors.Wrapf(ErrDeviceMissing, "gpio line %s", name))
	}
	return NewDHT22(pin), nil
}

type dhtEdge struct {
	at    time.Duration
	level gpio.Level
}

// Read sends the start signal and decodes the 40-bit answer
func (d *DHT22) Read(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, Transient(err)
	}

	if err := d.pin.Out(gpio.Low); err != nil {
		return Result{}, Transient(errors.Wrap(err, "drive start signal"))
	}
	time.Sleep(dhtStartSignal)
	if err := d.pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return Result{}, Transient(errors.Wrap(err, "release line"))
	}

	edges := d.captureEdges(ctx)

	frame, err := decodeDHTPulses(dhtHighPulses(edges))
	if err != nil {
		return Invalid(err.Error()), nil
	}
	humidity, temperature, err := decodeDHTFrame(frame)
	if err != nil {
		return Invalid(err.Error()), nil
	}

	return Valid(map[string]float64{
		models.SensorTypeTemperature: temperature,
		models.SensorTypeHumidity:    humidity,
	}), nil
}

func (d *DHT22) captureEdges(ctx context.Context) []dhtEdge {
	edges := make([]dhtEdge, 0, dhtMaxEdges)
	start := time.Now()
	for len(edges) < dhtMaxEdges {
		if ctx.Err() != nil {
			break
		}
		if !d.pin.WaitForEdge(dhtEdgeTimeout) {
			break
		}
		edges = append(edges, dhtEdge{at: time.Since(start), level: d.pin.Read()})
	}
	return edges
}

// Close stops edge detection on the line
func (d *DHT22) Close() error {
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

// dhtHighPulses returns the width of every high phase bounded by two edges
func dhtHighPulses(edges []dhtEdge) []time.Duration {
	var pulses []time.Duration
	for i := 0; i+1 < len(edges); i++ {
		if edges[i].level == gpio.High {
			pulses = append(pulses, edges[i+1].at-edges[i].at)
		}
	}
	return pulses
}

// decodeDHTPulses turns the last 40 high pulses into the 5-byte frame
func decodeDHTPulses(pulses []time.Duration) ([5]byte, error) {
	var frame [5]byte
	if len(pulses) < 40 {
		return frame, errors.Errorf("short frame: %d of 40 bits", len(pulses))
	}
	bits := pulses[len(pulses)-40:]
	for i, width := range bits {
		frame[i/8] <<= 1
		if width > dhtBitThreshold {
			frame[i/8] |= 1
		}
	}
	return frame, nil
}

// decodeDHTFrame verifies the checksum and converts the frame to
// relative humidity (%) and temperature (°C)
func decodeDHTFrame(frame [5]byte) (humidity, temperature float64, err error) {
	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return 0, 0, errors.Errorf("checksum mismatch: got 0x%02x, want 0x%02x", frame[4], sum)
	}

	humidity = float64(uint16(frame[0])<<8|uint16(frame[1])) / 10
	temperature = float64(uint16(frame[2]&0x7f)<<8|uint16(frame[3])) / 10
	if frame[2]&0x80 != 0 {
		temperature = -temperature
	}

	if humidity < 0 || humidity > 100 {
		return 0, 0, errors.Errorf("humidity %.1f out of range", humidity)
	}
	if temperature < -40 || temperature > 80 {
		return 0, 0, errors.Errorf("temperature %.1f out of range", temperature)
	}
	return humidity, temperature, nil
}
