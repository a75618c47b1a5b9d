package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
)

// DefaultSensorInterval is used for sensors that do not set an interval
const DefaultSensorInterval = 60 * time.Second

// BoardFile describes the board, the ports to bind and the attached sensors
type BoardFile struct {
	Name    string         `json:"name"`
	Model   string         `json:"model"`
	Pins    []PinConfig    `json:"pins,omitempty"`
	Ports   []PortConfig   `json:"ports,omitempty"`
	Sensors []SensorConfig `json:"sensors"`
}

// PinConfig overrides one entry of the default pin table
type PinConfig struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	Mode   string `json:"mode"`
}

// PortConfig names a port to bind. Kind and Pins may be omitted for ports
// of the default topology.
type PortConfig struct {
	Name string         `json:"name"`
	Kind string         `json:"kind,omitempty"`
	Pins map[string]int `json:"pins,omitempty"`
}

// SensorConfig describes one attached sensor
type SensorConfig struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Pin     int    `json:"pin,omitempty"`
	Port    string `json:"port,omitempty"`
	Address uint16 `json:"address,omitempty"`
	// Interval in seconds
	Interval *int `json:"interval,omitempty"`
}

// PollInterval returns the configured interval, or DefaultSensorInterval when unset
func (s SensorConfig) PollInterval() time.Duration {
	if s.Interval == nil {
		return DefaultSensorInterval
	}
	return time.Duration(*s.Interval) * time.Second
}

// LoadBoardFile reads and validates a JSON board file
func LoadBoardFile(path string) (*BoardFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read board file %s", path)
	}
	return ParseBoardFile(data)
}

// ParseBoardFile decodes and validates a board description
func ParseBoardFile(data []byte) (*BoardFile, error) {
	var bf BoardFile
	if err := json.Unmarshal(data, &bf); err != nil {
		return nil, errors.Wrap(err, "decode board file")
	}
	if err := bf.Validate(); err != nil {
		return nil, err
	}
	return &bf, nil
}

// Validate checks the structural rules of the board file. Binding conflicts
// are left to the board and sensor registries.
func (bf *BoardFile) Validate() error {
	pins := make(map[int]bool, len(bf.Pins))
	for _, p := range bf.Pins {
		if p.Number <= 0 {
			return errors.Errorf("pin override %q: number must be positive", p.Name)
		}
		if pins[p.Number] {
			return errors.Errorf("pin %d listed twice", p.Number)
		}
		pins[p.Number] = true
	}

	ports := make(map[string]bool, len(bf.Ports))
	for i, p := range bf.Ports {
		if p.Name == "" {
			return errors.Errorf("port #%d: name is required", i)
		}
		if ports[p.Name] {
			return errors.Errorf("port %q listed twice", p.Name)
		}
		ports[p.Name] = true
		if (p.Kind == "") != (len(p.Pins) == 0) {
			return errors.Errorf("port %q: kind and pins must be given together", p.Name)
		}
	}

	names := make(map[string]bool, len(bf.Sensors))
	for i, s := range bf.Sensors {
		if s.Name == "" {
			return errors.Errorf("sensor #%d: name is required", i)
		}
		if names[s.Name] {
			return errors.Errorf("sensor %q listed twice", s.Name)
		}
		names[s.Name] = true
		if s.Kind == "" {
			return errors.Errorf("sensor %q: kind is required", s.Name)
		}
		if s.Pin != 0 && s.Port != "" {
			return errors.Errorf("sensor %q: pin and port are mutually exclusive", s.Name)
		}
	}
	return nil
}
