// Package config loads server configuration from a YAML file with
// environment overrides for deployment-specific settings.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all bloodstock server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API server
type ServerConfig struct {
	ListenAddr      string `yaml:"listen_addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures persistence. Driver is "sqlite" or "memory".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "15s",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "bloodstock.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, falling back to defaults when path is
// empty or the file does not exist. Environment variables override file
// values: BLOODSTOCK_LISTEN_ADDR, BLOODSTOCK_DB_DRIVER, BLOODSTOCK_DB_PATH,
// BLOODSTOCK_LOG_LEVEL.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BLOODSTOCK_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("BLOODSTOCK_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("BLOODSTOCK_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BLOODSTOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func validate(cfg Config) error {
	switch cfg.Database.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown database driver %q (want sqlite or memory)", cfg.Database.Driver)
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		return fmt.Errorf("database path is required for the sqlite driver")
	}
	return nil
}
