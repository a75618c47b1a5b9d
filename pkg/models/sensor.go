package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sensorNamespace seeds deterministic ids for sensors configured by name
var sensorNamespace = uuid.MustParse("5b0d5c3e-8f0e-4a53-9a55-0c7b5f3e9d21")

// SensorState is the lifecycle state of a sensor's polling loop
type SensorState string

// Sensor states
const (
	SensorStateIdle     SensorState = "Idle"
	SensorStateRunning  SensorState = "Running"
	SensorStateDegraded SensorState = "Degraded"
	SensorStateStopped  SensorState = "Stopped"
)

// Sensor represents a physical sensor attached to the board
type Sensor struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Kind     SensorKind    `json:"kind"`
	Interval time.Duration `json:"interval"`
	Input    *Input        `json:"input,omitempty"`
	Port     *PortRef      `json:"port,omitempty"`
	Channels []SensorValue `json:"channels"`
}

// SensorValue is one measurement channel of a sensor
type SensorValue struct {
	ID       uuid.UUID `json:"id"`
	SensorID uuid.UUID `json:"sensor_id"`
	Name     string    `json:"name"`
	Unit     string    `json:"unit"`
}

// SensorIDFromName derives a stable sensor id from its configured name
func SensorIDFromName(name string) uuid.UUID {
	return uuid.NewSHA1(sensorNamespace, []byte(name))
}

// ChannelID derives the id of a sensor's channel. The same sensor id and
// channel name always yield the same channel id.
func ChannelID(sensorID uuid.UUID, channel string) uuid.UUID {
	return uuid.NewSHA1(sensorID, []byte(channel))
}

// NewSensorValues builds the static channel set for a sensor kind
func NewSensorValues(sensorID uuid.UUID, kind SensorKind) []SensorValue {
	info, ok := SensorKindRegistry[kind]
	if !ok {
		return nil
	}
	values := make([]SensorValue, 0, len(info.Channels))
	for _, name := range info.Channels {
		values = append(values, SensorValue{
			ID:       ChannelID(sensorID, name),
			SensorID: sensorID,
			Name:     name,
			Unit:     SensorTypeRegistry[name].Unit,
		})
	}
	return values
}

// Binding describes where the sensor is attached
func (s Sensor) Binding() string {
	switch {
	case s.Input != nil:
		return fmt.Sprintf("pin %d (GPIO%d)", s.Input.Pin, s.Input.GPIO)
	case s.Port != nil:
		return fmt.Sprintf("%s@0x%02x", s.Port.Name, s.Port.Address)
	default:
		return "unbound"
	}
}
