package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Driver modes
const (
	DriverModeHardware   = "hardware"
	DriverModeSimulation = "simulation"
)

// Store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the process configuration read from the environment
type Config struct {
	Logging   LoggingConfig
	Scheduler SchedulerConfig
	Database  DatabaseConfig
	MQTT      MQTTConfig
	Influx    InfluxConfig

	// BoardFile is the path of the JSON board description
	BoardFile string
	// Store selects the reading store backend
	Store string
	// ConsoleOutput mirrors every reading to stdout
	ConsoleOutput bool
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string
	Format       string
	Output       string
	EnableCaller bool
}

// SchedulerConfig holds polling-related configuration
type SchedulerConfig struct {
	DriverMode  string
	ReadTimeout time.Duration
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	HealthInterval time.Duration
}

// MQTTConfig holds the MQTT mirror settings. An empty Server disables the output.
type MQTTConfig struct {
	Server   string
	ClientID string
	Username string
	Password string
	Topic    string
}

// InfluxConfig holds the InfluxDB mirror settings. An empty URL disables the output.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Load loads configuration from environment variables with fallback defaults
func Load() (*Config, error) {
	// A missing .env file is fine, variables may be set directly
	_ = godotenv.Load()

	cfg := &Config{
		Logging: LoggingConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			Format:       getEnv("LOG_FORMAT", "text"),
			Output:       getEnv("LOG_OUTPUT", "stdout"),
			EnableCaller: getBool("LOG_ENABLE_CALLER", false),
		},
		Scheduler: SchedulerConfig{
			DriverMode:  getEnv("DRIVER_MODE", DriverModeHardware),
			ReadTimeout: getDuration("READ_TIMEOUT", 5*time.Second),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "pimaestro"),
			Password:       getEnv("DB_PASSWORD", "pimaestro"),
			DBName:         getEnv("DB_NAME", "pimaestro"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			HealthInterval: getDuration("DB_HEALTH_INTERVAL", 30*time.Second),
		},
		MQTT: MQTTConfig{
			Server:   getEnv("MQTT_SERVER", ""),
			ClientID: getEnv("MQTT_CLIENT_ID", "pimaestro"),
			Username: getEnv("MQTT_USERNAME", ""),
			Password: getEnv("MQTT_PASSWORD", ""),
			Topic:    getEnv("MQTT_TOPIC", "pimaestro"),
		},
		Influx: InfluxConfig{
			URL:    getEnv("INFLUX_URL", ""),
			Token:  getEnv("INFLUX_TOKEN", ""),
			Org:    getEnv("INFLUX_ORG", ""),
			Bucket: getEnv("INFLUX_BUCKET", "pimaestro"),
		},
		BoardFile:     getEnv("BOARD_CONFIG", "board.json"),
		Store:         getEnv("STORE", StoreMemory),
		ConsoleOutput: getBool("CONSOLE_OUTPUT", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return cfg, nil
}

// Validate checks the configuration for values the process cannot run with
func (c *Config) Validate() error {
	switch c.Scheduler.DriverMode {
	case DriverModeHardware, DriverModeSimulation:
	default:
		return errors.Errorf("invalid DRIVER_MODE %q (expected %s or %s)", c.Scheduler.DriverMode, DriverModeHardware, DriverModeSimulation)
	}
	switch c.Store {
	case StoreMemory, StorePostgres:
	default:
		return errors.Errorf("invalid STORE %q (expected %s or %s)", c.Store, StoreMemory, StorePostgres)
	}
	if c.Scheduler.ReadTimeout <= 0 {
		return errors.New("READ_TIMEOUT must be positive")
	}
	if c.Influx.URL != "" && c.Influx.Org == "" {
		return errors.New("INFLUX_ORG is required when INFLUX_URL is set")
	}
	return nil
}

// DatabaseDSN returns the lib/pq connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	switch value {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
