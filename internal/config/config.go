// Package config loads and validates monitor configuration via Viper.
//
// Configuration covers only the monitoring side: the hub, sinks, the control
// server, and logging. The simulated-task fixture reads no configuration at
// all; its output contract is fixed.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all monitor configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Hub     HubConfig     `mapstructure:"hub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the control-surface HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HubConfig governs event buffering and batching.
type HubConfig struct {
	BufferSize     int           `mapstructure:"buffer_size"`
	MaxBatchEvents int           `mapstructure:"max_batch_events"`
	MaxBatchWait   time.Duration `mapstructure:"max_batch_wait"`
	SinkTimeout    time.Duration `mapstructure:"sink_timeout"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an optional file plus environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TASKMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("hub.buffer_size", 1024)
	v.SetDefault("hub.max_batch_events", 256)
	v.SetDefault("hub.max_batch_wait", "250ms")
	v.SetDefault("hub.sink_timeout", "5s")
	v.SetDefault("logging.development", false)
}

// Validate rejects values the monitor cannot run with.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d outside 1..65535", c.Server.Port)
	}
	if c.Hub.BufferSize <= 0 {
		return fmt.Errorf("hub.buffer_size must be > 0, got %d", c.Hub.BufferSize)
	}
	if c.Hub.MaxBatchEvents <= 0 {
		return fmt.Errorf("hub.max_batch_events must be > 0, got %d", c.Hub.MaxBatchEvents)
	}
	if c.Hub.MaxBatchWait <= 0 {
		return fmt.Errorf("hub.max_batch_wait must be > 0, got %s", c.Hub.MaxBatchWait)
	}
	if c.Hub.SinkTimeout <= 0 {
		return fmt.Errorf("hub.sink_timeout must be > 0, got %s", c.Hub.SinkTimeout)
	}
	return nil
}
