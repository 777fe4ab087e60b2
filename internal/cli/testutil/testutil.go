// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/tinyquery/internal/cli/output"
)

// CatalogYAML is the catalog written by SetupTestCatalog.
const CatalogYAML = `tables:
  - name: table1
    columns:
      - {name: value, type: INTEGER}
      - {name: value2, type: INTEGER}
  - name: table2
    columns:
      - {name: value, type: INTEGER}
      - {name: value3, type: STRING}
  - name: analytics.events
    columns:
      - {name: name, type: STRING}
      - {name: ts, type: INTEGER}
views:
  - name: big_values
    query: SELECT value FROM table1 WHERE value > 3
`

// SetupTestCatalog creates a temporary directory holding catalog.yaml and a
// queries/ directory with one compiling and one failing query. It returns
// the directory.
func SetupTestCatalog(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	queries := filepath.Join(tmpDir, "queries")
	if err := os.MkdirAll(queries, 0o750); err != nil {
		t.Fatalf("failed to create directory %s: %v", queries, err)
	}

	files := map[string]string{
		"catalog.yaml":          CatalogYAML,
		"queries/good.sql":      "SELECT value, SUM(value2) AS total\nFROM table1\nGROUP BY value;\n",
		"queries/bad.sql":       "SELECT missing FROM table1;\n",
		"queries/view_join.sql": "SELECT t1.value, t2.value3 FROM table1 t1 JOIN table2 t2 ON t1.value = t2.value;\n",
	}
	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a test renderer in text mode without a TTY.
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, false)
}

// NewTestRendererJSON creates a test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
