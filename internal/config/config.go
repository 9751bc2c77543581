// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and SQUAD_ environment variables over New().
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Storage selects the roster backend: memory or sqlite.
	Storage string `koanf:"storage"`

	// SQLitePath is the database file used when Storage is sqlite.
	SQLitePath string `koanf:"sqlite_path"`

	// RosterPath optionally names a JSON roster imported at start.
	RosterPath string `koanf:"roster_path"`

	// MaxGroupSize caps the target size accepted by the group endpoints.
	MaxGroupSize int `koanf:"max_group_size"`

	// RefinementFactor scales the groups² × size swap attempt cap.
	RefinementFactor int `koanf:"refinement_factor"`

	// RandomSeed makes balancing reproducible when non-zero.
	RandomSeed uint64 `koanf:"random_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Storage:          StorageMemory,
		SQLitePath:       "squad.db",
		MaxGroupSize:     64,
		RefinementFactor: 2,
	}
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Storage != StorageMemory && c.Storage != StorageSQLite:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	case c.Storage == StorageSQLite && strings.TrimSpace(c.SQLitePath) == "":
		return fmt.Errorf("%w: sqlite_path is required for sqlite storage", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxGroupSize < 1:
		return fmt.Errorf("%w: max_group_size must be positive", ErrInvalidConfig)
	case c.RefinementFactor < 1:
		return fmt.Errorf("%w: refinement_factor must be positive", ErrInvalidConfig)
	}
	return nil
}
