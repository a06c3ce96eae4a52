// Package config loads server and engine configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the sync server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig configures the HTTP/WebSocket listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the optional snapshot store. An empty URL
// disables persistence entirely.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// EngineConfig configures per-session engine behavior.
type EngineConfig struct {
	HistoryWindow         int           `mapstructure:"history_window"`
	DeltaSavingsThreshold float64       `mapstructure:"delta_savings_threshold"`
	SnapshotInterval      time.Duration `mapstructure:"snapshot_interval"`
}

// Load reads configuration from the given file, applying defaults and
// SYNCD_* environment overrides. A missing file is not an error: defaults
// and environment alone are a valid configuration.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("engine.history_window", 100)
	v.SetDefault("engine.delta_savings_threshold", 0.0)
	v.SetDefault("engine.snapshot_interval", 30*time.Second)

	v.SetEnvPrefix("SYNCD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Engine.HistoryWindow < 2 {
		return nil, fmt.Errorf("engine.history_window must be at least 2, got %d", cfg.Engine.HistoryWindow)
	}

	return &cfg, nil
}
