// Package engine wires a catalog, a function registry and a compiler into
// the unit the CLI and the HTTP service work with.
//
// The catalog is assembled from the SQL store (when configured) overlaid with
// the YAML catalog file (when configured). Reload rebuilds it in place, so
// compilers that already hold the catalog see the new entries.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/leapstack-labs/tinyquery/pkg/binder"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// Engine owns the catalog and the compiler built over it.
type Engine struct {
	catalogPath string
	logger      *slog.Logger

	store    *catalog.Store
	catalog  *catalog.Memory
	funcs    *functions.Registry
	compiler *binder.Compiler

	reloadMu sync.Mutex
}

// Config holds engine configuration.
type Config struct {
	// CatalogPath is a YAML catalog file (optional).
	CatalogPath string
	// FunctionsDir holds Starlark function files (optional).
	FunctionsDir string
	// StoreDriver and StoreDSN select the SQL catalog store. An empty driver
	// disables it.
	StoreDriver string
	StoreDSN    string
	// MaxViewDepth bounds view inlining; zero means binder.DefaultMaxViewDepth.
	MaxViewDepth int
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New opens the store, loads functions and the catalog, and builds the
// compiler.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Debug("initializing engine",
		"catalog", cfg.CatalogPath, "functions_dir", cfg.FunctionsDir, "store", cfg.StoreDriver)

	funcs, err := loadFunctions(cfg.FunctionsDir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		catalogPath: cfg.CatalogPath,
		logger:      logger,
		catalog:     catalog.NewMemory(),
		funcs:       funcs,
	}

	if cfg.StoreDriver != "" {
		e.store, err = catalog.OpenStore(ctx, cfg.StoreDriver, cfg.StoreDSN, logger)
		if err != nil {
			return nil, err
		}
	}

	if err := e.Reload(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	depth := cfg.MaxViewDepth
	if depth <= 0 {
		depth = binder.DefaultMaxViewDepth
	}
	e.compiler = binder.New(e.catalog,
		binder.WithFunctions(funcs),
		binder.WithLogger(logger),
		binder.WithMaxViewDepth(depth))
	return e, nil
}

func loadFunctions(dir string) (*functions.Registry, error) {
	if dir == "" {
		return functions.Default(), nil
	}
	mods, err := functions.LoadStarlarkDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load functions: %w", err)
	}
	return functions.Default().Extend("tinyquery").Modules(mods...).Build(), nil
}

// Close releases the store, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Compile compiles one query.
func (e *Engine) Compile(query string) (*plan.Select, error) {
	return e.compiler.Compile(query)
}

// Compiler returns the compiler over the live catalog.
func (e *Engine) Compiler() *binder.Compiler { return e.compiler }

// Catalog returns the live catalog.
func (e *Engine) Catalog() *catalog.Memory { return e.catalog }

// Functions returns the function registry.
func (e *Engine) Functions() *functions.Registry { return e.funcs }

// Store returns the SQL store, or nil when none is configured.
func (e *Engine) Store() *catalog.Store { return e.store }

// CatalogPath returns the YAML catalog file, if any.
func (e *Engine) CatalogPath() string { return e.catalogPath }

// DefineView compiles query and registers it as a view, persisting it when a
// store is configured.
func (e *Engine) DefineView(ctx context.Context, name, query string) error {
	if err := e.compiler.DefineView(e.catalog, name, query); err != nil {
		return err
	}
	if e.store != nil {
		return e.store.SaveView(ctx, &catalog.View{Name: name, Query: query})
	}
	return nil
}
