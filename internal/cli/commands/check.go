package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tinyquery/internal/cli/output"
	"github.com/leapstack-labs/tinyquery/internal/engine"
)

// ErrCheckFailed is returned when at least one file does not compile.
var ErrCheckFailed = errors.New("check failed")

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Compile query files and report which fail",
		Long: `Compile one query per file, several files at a time, and report the
status of each. Exits non-zero when any file fails to compile.`,
		Example: `  tinyquery check queries/*.sql
  tinyquery check --concurrency 8 -o json queries/*.sql`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, concurrency)
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "files compiled in parallel (default from check.concurrency)")
	return cmd
}

type checkResult struct {
	Path     string `json:"path"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

func runCheck(cmd *cobra.Command, paths []string, concurrency int) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if concurrency <= 0 {
		concurrency = cmdCtx.Cfg.Check.Concurrency
	}
	results, err := cmdCtx.Engine.CompileFiles(cmd.Context(), paths, concurrency)
	if err != nil {
		return err
	}

	failed := renderCheck(cmdCtx.Renderer, results)
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrCheckFailed, failed, len(results))
	}
	return nil
}

func renderCheck(r *output.Renderer, results []engine.FileResult) int {
	failed := 0
	out := make([]checkResult, len(results))
	for i, res := range results {
		out[i] = checkResult{Path: res.Path, OK: res.OK(), Duration: res.Duration.Round(time.Microsecond).String()}
		if !res.OK() {
			failed++
			out[i].Error = res.Err.Error()
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(out)
		return failed
	}

	for _, res := range out {
		if res.OK {
			r.Success(res.Path)
			continue
		}
		r.Fail(res.Path)
		r.Println(output.Indent(res.Error, "     "))
	}
	r.Println("")
	r.Printf("%d files, %d failed\n", len(out), failed)
	return failed
}
