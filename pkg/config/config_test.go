package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DRIVER_MODE", "STORE", "READ_TIMEOUT", "BOARD_CONFIG", "MQTT_SERVER", "INFLUX_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.DriverMode != DriverModeHardware {
		t.Errorf("Expected driver mode %q, got %q", DriverModeHardware, cfg.Scheduler.DriverMode)
	}
	if cfg.Scheduler.ReadTimeout != 5*time.Second {
		t.Errorf("Expected read timeout 5s, got %v", cfg.Scheduler.ReadTimeout)
	}
	if cfg.Store != StoreMemory {
		t.Errorf("Expected store %q, got %q", StoreMemory, cfg.Store)
	}
	if cfg.BoardFile != "board.json" {
		t.Errorf("Expected board file board.json, got %q", cfg.BoardFile)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DRIVER_MODE", "simulation")
	t.Setenv("READ_TIMEOUT", "750ms")
	t.Setenv("STORE", "postgres")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CONSOLE_OUTPUT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Scheduler.DriverMode != DriverModeSimulation {
		t.Errorf("Expected simulation mode, got %q", cfg.Scheduler.DriverMode)
	}
	if cfg.Scheduler.ReadTimeout != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %v", cfg.Scheduler.ReadTimeout)
	}
	if cfg.Database.Port != 6543 {
		t.Errorf("Expected DB port 6543, got %d", cfg.Database.Port)
	}
	if !cfg.ConsoleOutput {
		t.Error("Expected console output to be enabled")
	}
	if !strings.Contains(cfg.Database.DatabaseDSN(), "port=6543") {
		t.Errorf("Expected DSN to carry the port, got %q", cfg.Database.DatabaseDSN())
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Scheduler: SchedulerConfig{DriverMode: DriverModeHardware, ReadTimeout: time.Second},
			Store:     StoreMemory,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad driver mode", func(c *Config) { c.Scheduler.DriverMode = "magic" }, true},
		{"bad store", func(c *Config) { c.Store = "mongo" }, true},
		{"zero timeout", func(c *Config) { c.Scheduler.ReadTimeout = 0 }, true},
		{"influx without org", func(c *Config) { c.Influx.URL = "http://localhost:8086" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseBoardFile(t *testing.T) {
	data := []byte(`{
		"name": "greenhouse",
		"model": "Raspberry Pi 4 Model B",
		"ports": [{"name": "I2C-1"}],
		"sensors": [
			{"name": "air", "kind": "DHT22", "pin": 7, "interval": 30},
			{"name": "baro", "kind": "BMP085", "port": "I2C-1"}
		]
	}`)

	bf, err := ParseBoardFile(data)
	if err != nil {
		t.Fatalf("ParseBoardFile failed: %v", err)
	}

	if bf.Name != "greenhouse" {
		t.Errorf("Expected name greenhouse, got %q", bf.Name)
	}
	if len(bf.Sensors) != 2 {
		t.Fatalf("Expected 2 sensors, got %d", len(bf.Sensors))
	}
	if got := bf.Sensors[0].PollInterval(); got != 30*time.Second {
		t.Errorf("Expected 30s interval, got %v", got)
	}
	if got := bf.Sensors[1].PollInterval(); got != DefaultSensorInterval {
		t.Errorf("Expected default interval, got %v", got)
	}
}

func TestParseBoardFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad json":          `{`,
		"unnamed sensor":    `{"sensors":[{"kind":"DHT22","pin":7}]}`,
		"duplicate sensor":  `{"sensors":[{"name":"a","kind":"DHT22","pin":7},{"name":"a","kind":"DHT22","pin":11}]}`,
		"missing kind":      `{"sensors":[{"name":"a","pin":7}]}`,
		"pin and port":      `{"sensors":[{"name":"a","kind":"BMP085","pin":7,"port":"I2C-1"}]}`,
		"duplicate port":    `{"ports":[{"name":"I2C-1"},{"name":"I2C-1"}]}`,
		"kind without pins": `{"ports":[{"name":"X","kind":"I2C"}]}`,
		"duplicate pin":     `{"pins":[{"number":7,"name":"GPIO4","mode":"GPIO"},{"number":7,"name":"5V","mode":"Power"}]}`,
		"zero pin number":   `{"pins":[{"number":0,"name":"GPIO4","mode":"GPIO"}]}`,
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseBoardFile([]byte(data)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestLoadBoardFile_Missing(t *testing.T) {
	_, err := LoadBoardFile(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !os.IsNotExist(errors.Cause(err)) {
		t.Errorf("Expected not-exist cause, got %v", err)
	}
}
