package models

import (
	"strings"

	"github.com/pkg/errors"
)

// SensorType constants for the measurement channels the supported chips provide
const (
	SensorTypeTemperature = "Temperature"
	SensorTypeHumidity    = "Humidity"
	SensorTypePressure    = "Pressure"
	SensorTypeAltitude    = "Altitude"
)

// SensorTypeInfo holds metadata about sensor types
type SensorTypeInfo struct {
	Name string
	Unit string
}

// SensorTypeRegistry maps sensor type names to their information
var SensorTypeRegistry = map[string]SensorTypeInfo{
	SensorTypeTemperature: {
		Name: SensorTypeTemperature,
		Unit: "°C",
	},
	SensorTypeHumidity: {
		Name: SensorTypeHumidity,
		Unit: "%",
	},
	SensorTypePressure: {
		Name: SensorTypePressure,
		Unit: "hPa",
	},
	SensorTypeAltitude: {
		Name: SensorTypeAltitude,
		Unit: "m",
	},
}

// SensorKind identifies a supported sensor chip
type SensorKind string

// Supported sensor kinds
const (
	SensorKindDHT22  SensorKind = "DHT22"
	SensorKindBMP085 SensorKind = "BMP085"
)

// SensorKindInfo describes how a sensor kind is wired and what it measures
type SensorKindInfo struct {
	Kind SensorKind
	// Port is the port kind the sensor attaches to; empty for single-pin sensors
	Port PortKind
	// DefaultAddress is the bus address used when the configuration omits one
	DefaultAddress uint16
	// Channels lists the SensorTypeRegistry names the kind reports, in order
	Channels []string
}

// SensorKindRegistry is the closed set of sensor kinds the system can drive
var SensorKindRegistry = map[SensorKind]SensorKindInfo{
	SensorKindDHT22: {
		Kind:     SensorKindDHT22,
		Channels: []string{SensorTypeTemperature, SensorTypeHumidity},
	},
	SensorKindBMP085: {
		Kind:           SensorKindBMP085,
		Port:           PortKindI2C,
		DefaultAddress: 0x77,
		Channels:       []string{SensorTypeTemperature, SensorTypePressure, SensorTypeAltitude},
	},
}

// ErrUnknownKind is returned when a kind name is not part of a closed registry
var ErrUnknownKind = errors.New("unknown kind")

// ParseSensorKind resolves a kind name case-insensitively
func ParseSensorKind(name string) (SensorKind, error) {
	for kind := range SensorKindRegistry {
		if strings.EqualFold(string(kind), name) {
			return kind, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownKind, "sensor kind %q", name)
}

// Info returns the registry entry for the kind
func (k SensorKind) Info() (SensorKindInfo, bool) {
	info, ok := SensorKindRegistry[k]
	return info, ok
}
