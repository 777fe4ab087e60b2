package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/tinyquery/internal/cli/commands"
	"github.com/leapstack-labs/tinyquery/internal/cli/testutil"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	for _, name := range []string{"compile", "check", "catalog", "repl", "serve", "version", "completion"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	flags := []string{"config", "catalog", "functions-dir", "store-driver", "store-dsn", "max-view-depth", "log-level", "verbose", "output"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_Compile(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)
	catalog := filepath.Join(dir, "catalog.yaml")

	out, _, err := execute(t, "", "--catalog", catalog, "-o", "json", "compile", "SELECT t1.value FROM table1 t1 JOIN table2 t2 ON t1.value = t2.value")
	require.NoError(t, err)

	var doc struct {
		Scope struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
		} `json:"scope"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	require.Len(t, doc.Scope.Columns, 1)
	assert.Equal(t, "value", doc.Scope.Columns[0].Name)
}

func TestRoot_CompileView(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)

	out, _, err := execute(t, "SELECT value FROM big_values;", "--catalog", filepath.Join(dir, "catalog.yaml"), "compile")
	require.NoError(t, err)
	assert.Contains(t, out, "Result scope")
	testutil.AssertNoANSI(t, out)
}

func TestRoot_CheckFails(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)

	_, _, err := execute(t, "",
		"--catalog", filepath.Join(dir, "catalog.yaml"),
		"check", filepath.Join(dir, "queries", "good.sql"), filepath.Join(dir, "queries", "bad.sql"))
	require.ErrorIs(t, err, commands.ErrCheckFailed)
}

func TestRoot_ConfigFile(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)
	cfgPath := filepath.Join(dir, "tinyquery.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("catalog: catalog.yaml\noutput: json\n"), 0o600))

	out, _, err := execute(t, "", "--config", cfgPath, "catalog", "list")
	require.NoError(t, err)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries), out)
	assert.Len(t, entries, 4)
}

func TestRoot_MaxViewDepthFlag(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)

	_, _, err := execute(t, "", "--catalog", filepath.Join(dir, "catalog.yaml"), "--max-view-depth", "0", "compile", "SELECT 1")
	assert.ErrorContains(t, err, "max_view_depth")
}

func TestRoot_Repl(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)

	out, _, err := execute(t, "SELECT value2 FROM table1;\n.quit\n",
		"--catalog", filepath.Join(dir, "catalog.yaml"), "repl", "--history", "")
	require.NoError(t, err)
	assert.Contains(t, out, "tinyquery REPL (4 catalog entries)")
	assert.Contains(t, out, "value2")
}

func TestRoot_VerboseLogsToStderr(t *testing.T) {
	dir := testutil.SetupTestCatalog(t)

	_, errOut, err := execute(t, "", "-v", "--catalog", filepath.Join(dir, "catalog.yaml"), "compile", "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "level=DEBUG")
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := execute(t, "", "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "tinyquery")

	_, _, err = execute(t, "", "completion", "tcsh")
	assert.Error(t, err)
}
