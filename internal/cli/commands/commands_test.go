package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tinyquery/internal/cli/config"
	"github.com/leapstack-labs/tinyquery/internal/cli/testutil"
	"github.com/leapstack-labs/tinyquery/internal/engine"
)

func TestNewCompileCommand(t *testing.T) {
	cmd := NewCompileCommand()

	assert.Equal(t, "compile [query]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	assert.NotNil(t, cmd.Flags().ShorthandLookup("f"))
}

func TestNewCheckCommand(t *testing.T) {
	cmd := NewCheckCommand()

	assert.Equal(t, "check FILE...", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("concurrency"))
	assert.Error(t, cmd.Args(cmd, nil), "check needs at least one file")
}

func TestNewCatalogCommand(t *testing.T) {
	cmd := NewCatalogCommand()

	assert.Equal(t, "catalog", cmd.Use)
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show", "import", "define-view", "remove"}, names)

	rm, _, err := cmd.Find([]string{"rm"})
	require.NoError(t, err)
	assert.Equal(t, "remove", rm.Name())
}

func TestNewReplCommand(t *testing.T) {
	cmd := NewReplCommand()

	assert.Equal(t, "repl", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("history"))
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	flags := []string{"addr", "no-watch"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

// runCommand executes cmd on its own with cfg in its context.
func runCommand(t *testing.T, cmd *cobra.Command, cfg *config.Config, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	if args == nil {
		// nil would make cobra read os.Args
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetContext(config.WithConfig(context.Background(), cfg))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func testConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := testutil.SetupTestCatalog(t)
	cfg := config.Default()
	cfg.Catalog = filepath.Join(dir, "catalog.yaml")
	cfg.Output = config.OutputText
	return cfg, dir
}

func TestCompile_Text(t *testing.T) {
	cfg, _ := testConfig(t)

	out, _, err := runCommand(t, NewCompileCommand(), cfg, "", "SELECT value, SUM(value2) AS total FROM table1 GROUP BY value;")
	require.NoError(t, err)
	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, "Result scope")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "INTEGER")
	testutil.AssertNoANSI(t, out)
}

func TestCompile_Sources(t *testing.T) {
	cfg, dir := testConfig(t)
	cfg.Output = config.OutputJSON

	t.Run("file", func(t *testing.T) {
		out, _, err := runCommand(t, NewCompileCommand(), cfg, "", "-f", filepath.Join(dir, "queries", "good.sql"))
		require.NoError(t, err)
		assert.True(t, json.Valid([]byte(out)), out)
	})

	t.Run("stdin", func(t *testing.T) {
		out, _, err := runCommand(t, NewCompileCommand(), cfg, "SELECT 1 + 2 AS three;\n")
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Contains(t, doc, "scope")
	})

	t.Run("both", func(t *testing.T) {
		_, _, err := runCommand(t, NewCompileCommand(), cfg, "", "-f", "x.sql", "SELECT 1")
		assert.ErrorContains(t, err, "not both")
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := runCommand(t, NewCompileCommand(), cfg, "  ;  ")
		assert.ErrorContains(t, err, "no query given")
	})
}

func TestCompile_Error(t *testing.T) {
	cfg, _ := testConfig(t)

	_, _, err := runCommand(t, NewCompileCommand(), cfg, "", "SELECT missing FROM table1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCheck(t *testing.T) {
	cfg, dir := testConfig(t)
	good := filepath.Join(dir, "queries", "good.sql")
	bad := filepath.Join(dir, "queries", "bad.sql")

	t.Run("all pass", func(t *testing.T) {
		out, _, err := runCommand(t, NewCheckCommand(), cfg, "", good, filepath.Join(dir, "queries", "view_join.sql"))
		require.NoError(t, err)
		assert.Contains(t, out, "ok   "+good)
		assert.Contains(t, out, "2 files, 0 failed")
	})

	t.Run("failure", func(t *testing.T) {
		out, _, err := runCommand(t, NewCheckCommand(), cfg, "", "-j", "2", good, bad)
		require.ErrorIs(t, err, ErrCheckFailed)
		assert.Contains(t, err.Error(), "1 of 2 files")
		assert.Contains(t, out, "FAIL "+bad)
		assert.Contains(t, out, "2 files, 1 failed")
	})

	t.Run("json", func(t *testing.T) {
		jsonCfg := *cfg
		jsonCfg.Output = config.OutputJSON
		out, _, err := runCommand(t, NewCheckCommand(), &jsonCfg, "", good, bad)
		require.ErrorIs(t, err, ErrCheckFailed)

		var results []checkResult
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.Len(t, results, 2)
		assert.Equal(t, good, results[0].Path)
		assert.True(t, results[0].OK)
		assert.False(t, results[1].OK)
		assert.NotEmpty(t, results[1].Error)
	})
}

func TestCatalog_ListAndShow(t *testing.T) {
	cfg, _ := testConfig(t)

	out, _, err := runCommand(t, NewCatalogCommand(), cfg, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog (4 entries)")
	assert.Contains(t, out, "analytics.events")
	assert.Contains(t, out, "big_values")

	out, _, err = runCommand(t, NewCatalogCommand(), cfg, "", "list", "--dataset", "analytics")
	require.NoError(t, err)
	assert.Contains(t, out, "Dataset analytics (1 tables)")
	assert.Contains(t, out, "events")

	out, _, err = runCommand(t, NewCatalogCommand(), cfg, "", "show", "table2")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: table")
	assert.Contains(t, out, "value3")

	out, _, err = runCommand(t, NewCatalogCommand(), cfg, "", "show", "big_values")
	require.NoError(t, err)
	assert.Contains(t, out, "kind: view")
	assert.Contains(t, out, "query: SELECT value FROM table1 WHERE value > 3")

	_, _, err = runCommand(t, NewCatalogCommand(), cfg, "", "show", "nope")
	assert.ErrorContains(t, err, "table not found: nope")
}

func TestCatalog_StoreCommands(t *testing.T) {
	cfg, dir := testConfig(t)

	_, _, err := runCommand(t, NewCatalogCommand(), cfg, "", "define-view", "v", "SELECT 1")
	require.ErrorIs(t, err, errNoStore)

	storeCfg := *cfg
	storeCfg.Catalog = ""
	storeCfg.Store = config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(dir, "catalog.db")}

	out, _, err := runCommand(t, NewCatalogCommand(), &storeCfg, "", "import", cfg.Catalog)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 4 entries")

	out, _, err = runCommand(t, NewCatalogCommand(), &storeCfg, "", "define-view", "totals", "SELECT value, COUNT(*) AS n FROM table1 GROUP BY value")
	require.NoError(t, err)
	assert.Contains(t, out, "defined view totals")

	_, _, err = runCommand(t, NewCatalogCommand(), &storeCfg, "", "define-view", "broken", "SELECT nope FROM table1")
	require.Error(t, err)

	out, _, err = runCommand(t, NewCatalogCommand(), &storeCfg, "", "rm", "table2")
	require.NoError(t, err)
	assert.Contains(t, out, "removed table2")

	out, _, err = runCommand(t, NewCatalogCommand(), &storeCfg, "", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "totals")
	assert.NotContains(t, out, "table2")
	assert.NotContains(t, out, "broken")
}

func newTestSession(t *testing.T, input string) (*replSession, *testutil.TestRenderer) {
	t.Helper()
	cfg, _ := testConfig(t)
	eng, err := engine.New(context.Background(), engine.Config{CatalogPath: cfg.Catalog})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	tr := testutil.NewTestRendererText()
	return &replSession{
		eng: eng,
		r:   tr.Renderer,
		in:  &scanReader{sc: bufio.NewScanner(strings.NewReader(input))},
	}, tr
}

func TestReplSession(t *testing.T) {
	input := strings.Join([]string{
		".tables",
		"SELECT value,",
		"  value2 + 1 AS bumped",
		"FROM table1;",
		"SELECT nope FROM table1;",
		".schema table1",
		".schema",
		".bogus",
		".quit",
		"SELECT never_compiled FROM table1;",
	}, "\n")

	s, tr := newTestSession(t, input)
	require.NoError(t, s.run(context.Background()))

	out := tr.Output()
	assert.Contains(t, out, "Catalog (4 entries)")
	assert.Contains(t, out, "bumped")
	assert.Contains(t, out, "kind: table")

	errOut := tr.ErrorOutput()
	assert.Contains(t, errOut, "nope")
	assert.Contains(t, errOut, "usage: .schema <name>")
	assert.Contains(t, errOut, "unknown command: .bogus")
	assert.NotContains(t, errOut, "never_compiled")
}

func TestReplSession_Reload(t *testing.T) {
	s, tr := newTestSession(t, ".reload\n")
	require.NoError(t, s.run(context.Background()))
	assert.Contains(t, tr.Output(), "catalog reloaded (4 entries)")
}

func TestReplSession_EOFMidQuery(t *testing.T) {
	s, tr := newTestSession(t, "SELECT value\nFROM table1")
	require.NoError(t, s.run(context.Background()))
	assert.Empty(t, tr.ErrorOutput())
	assert.NotContains(t, tr.Output(), "Plan")
}
