package config

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/catalog"
)

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case "", catalog.DriverSQLite, catalog.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q (want %s or %s)",
			c.Store.Driver, catalog.DriverSQLite, catalog.DriverPostgres))
	}
	if c.Store.Driver != "" && c.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required when store.driver is set"))
	}

	switch c.Output {
	case OutputAuto, OutputText, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("output: unknown mode %q (want auto, text or json)", c.Output))
	}

	if c.MaxViewDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_view_depth must be positive, got %d", c.MaxViewDepth))
	}
	if c.Check.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("check.concurrency must be positive, got %d", c.Check.Concurrency))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout))
	}
	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
