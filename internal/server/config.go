package server

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/driftsync/driftsync/internal/core/observability/log"
)

// Config holds server configuration.
type Config struct {
	// Network settings
	ListenAddr string `yaml:"listen_addr"`
	Transport  string `yaml:"transport"` // "websocket" or "quic"

	// Simulation timing
	TickRate       int     `yaml:"tick_rate"`        // world ticks per second
	FixedDeltaTime float64 `yaml:"fixed_delta_time"` // gameplay step, seconds
	MaxDeltaTime   float64 `yaml:"max_delta_time"`   // stall clamp, seconds

	// Replication settings. Full packets are the default: deltas assume
	// a link that never drops frames, and both supported transports can.
	AlwaysFullPackets bool `yaml:"always_full_packets"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8080",
		Transport:         "websocket",
		TickRate:          60,
		FixedDeltaTime:    1.0 / 30.0,
		MaxDeltaTime:      0.25,
		AlwaysFullPackets: true,
		LogLevel:          "info",
	}
}

// LoadConfig reads a YAML config, with defaults for absent fields.
func LoadConfig(r io.Reader) (Config, error) {
	config := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&config); err != nil && err != io.EOF {
		return config, fmt.Errorf("parse config: %w", err)
	}
	return config, config.validate()
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultConfig(), err
	}
	defer f.Close()
	return LoadConfig(f)
}

func (c Config) validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("invalid tick_rate %d", c.TickRate)
	}
	if c.FixedDeltaTime <= 0 {
		return fmt.Errorf("invalid fixed_delta_time %f", c.FixedDeltaTime)
	}
	switch c.Transport {
	case "websocket", "quic":
	default:
		return fmt.Errorf("unsupported transport %q", c.Transport)
	}
	return nil
}

// TickInterval converts the tick rate to a ticker period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Level parses the configured log level.
func (c Config) Level() log.Level {
	switch c.LogLevel {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}
