// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SecretEnv overrides auth.secret when set.
const SecretEnv = "PANTRY_AUTH_SECRET"

// Config represents the application configuration
type Config struct {
	Port            int           `yaml:"port"`
	MetricsPort     int           `yaml:"metrics_port"`
	LogLevel        string        `yaml:"log_level"`
	LogDevelopment  bool          `yaml:"log_development"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Auth struct {
		Secret string `yaml:"secret"`
	} `yaml:"auth"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`

	Events struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"events"`

	Seed Seed `yaml:"seed"`
}

// Seed lists groceries and recipes loaded at startup.
type Seed struct {
	Groceries []Grocery `yaml:"groceries"`
	Recipes   []Recipe  `yaml:"recipes"`
}

// Grocery is a seed batch. Amounts and prices are decimal strings. Expiry is a
// YYYY-MM-DD date; when it is empty, ExpiresIn counts days from startup.
type Grocery struct {
	Name      string `yaml:"name"`
	Price     string `yaml:"price"`
	Amount    string `yaml:"amount"`
	Unit      string `yaml:"unit"`
	Expiry    string `yaml:"expiry"`
	ExpiresIn int    `yaml:"expires_in"`
}

// Recipe is a seed recipe
type Recipe struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Process     string       `yaml:"process"`
	Ingredients []Ingredient `yaml:"ingredients"`
}

// Ingredient is one line of a seed recipe
type Ingredient struct {
	Name   string `yaml:"name"`
	Amount string `yaml:"amount"`
	Unit   string `yaml:"unit"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{
		Port:            8080,
		MetricsPort:     9090,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.Events.Enabled = true
	return cfg
}

// Load reads path over the defaults and applies the environment override.
// An empty path yields the defaults. Callers run Validate once their own
// overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if secret, ok := os.LookupEnv(SecretEnv); ok {
		cfg.Auth.Secret = secret
	}
	return cfg, nil
}

// Validate checks ports, timeout and metrics path.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Metrics.Enabled {
		if c.MetricsPort < 1 || c.MetricsPort > 65535 {
			errs = append(errs, fmt.Errorf("metrics_port %d out of range", c.MetricsPort))
		}
		if c.MetricsPort == c.Port {
			errs = append(errs, fmt.Errorf("metrics_port must differ from port"))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, fmt.Errorf("metrics path %q must start with /", c.Metrics.Path))
		}
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// AuthEnabled reports whether mutating routes require a token.
func (c *Config) AuthEnabled() bool {
	return c.Auth.Secret != ""
}
