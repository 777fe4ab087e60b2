package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// FileResult is the outcome of compiling one query file.
type FileResult struct {
	Path     string
	Plan     *plan.Select
	Err      error
	Duration time.Duration
}

// OK reports whether the file compiled.
func (r FileResult) OK() bool { return r.Err == nil }

// CompileFiles compiles the query in each file with at most concurrency
// files in flight. Results keep the order of paths. A failing file does not
// stop the others; only cancellation of ctx does.
func (e *Engine) CompileFiles(ctx context.Context, paths []string, concurrency int) ([]FileResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.compileFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	e.logger.Debug("checked files", "files", len(paths), "failed", failed)
	return results, nil
}

func (e *Engine) compileFile(path string) FileResult {
	start := time.Now()
	data, err := os.ReadFile(path) //nolint:gosec // G304: query files are named by the user
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("failed to read query: %w", err)}
	}
	query := strings.TrimSuffix(strings.TrimSpace(string(data)), ";")
	sel, err := e.Compile(query)
	return FileResult{Path: path, Plan: sel, Err: err, Duration: time.Since(start)}
}
