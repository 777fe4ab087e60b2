package commands

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tinyquery/internal/cli/config"
	"github.com/leapstack-labs/tinyquery/internal/cli/output"
	"github.com/leapstack-labs/tinyquery/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutEngine(cmd)

	eng, err := createEngine(cmd, cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Engine = eng

	cleanup := func() {
		_ = eng.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need the catalog.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// getConfig returns the configuration loaded by the root command, or the
// defaults when a command runs on its own.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	return config.Default()
}

func createEngine(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	return engine.New(cmd.Context(), engine.Config{
		CatalogPath:  cfg.Catalog,
		FunctionsDir: cfg.FunctionsDir,
		StoreDriver:  cfg.Store.Driver,
		StoreDSN:     cfg.Store.DSN,
		MaxViewDepth: cfg.MaxViewDepth,
		Logger:       logger,
	})
}

// readQuery returns the query from args, the --file flag or stdin, in that
// order. A trailing semicolon is dropped.
func readQuery(cmd *cobra.Command, args []string, file string) (string, error) {
	var text string
	switch {
	case len(args) > 0:
		text = strings.Join(args, " ")
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // G304: query file is named by the user
		if err != nil {
			return "", err
		}
		text = string(data)
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", err
		}
		text = string(data)
	}
	return strings.TrimSuffix(strings.TrimSpace(text), ";"), nil
}
