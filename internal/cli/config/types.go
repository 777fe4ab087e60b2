// Package config loads tinyquery CLI configuration.
//
// Values are layered, lowest precedence first: built-in defaults, the
// tinyquery.yaml file, TINYQUERY_* environment variables and finally
// command-line flags that were set explicitly.
package config

import (
	"log/slog"
	"time"
)

// Output modes.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)

// Defaults.
const (
	DefaultMaxViewDepth    = 32
	DefaultOutput          = OutputAuto
	DefaultLogLevel        = "warn"
	DefaultServerAddr      = ":8080"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultConcurrency     = 4
)

// Config holds all CLI configuration options.
type Config struct {
	Catalog      string       `koanf:"catalog"`
	FunctionsDir string       `koanf:"functions_dir"`
	MaxViewDepth int          `koanf:"max_view_depth"`
	Output       string       `koanf:"output"`
	LogLevel     slog.Level   `koanf:"log_level"`
	Store        StoreConfig  `koanf:"store"`
	Server       ServerConfig `koanf:"server"`
	Check        CheckConfig  `koanf:"check"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// StoreConfig selects the SQL catalog store. An empty driver disables it.
type StoreConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// Enabled reports whether a store is configured.
func (s StoreConfig) Enabled() bool { return s.Driver != "" }

// ServerConfig configures `tinyquery serve`.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// CheckConfig configures `tinyquery check`.
type CheckConfig struct {
	Concurrency int `koanf:"concurrency"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"catalog":                 "",
		"functions_dir":           "",
		"max_view_depth":          DefaultMaxViewDepth,
		"output":                  DefaultOutput,
		"log_level":               DefaultLogLevel,
		"store.driver":            "",
		"store.dsn":               "",
		"server.addr":             DefaultServerAddr,
		"server.shutdown_timeout": DefaultShutdownTimeout.String(),
		"check.concurrency":       DefaultConcurrency,
	}
}
