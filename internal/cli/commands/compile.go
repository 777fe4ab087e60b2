package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCompileCommand creates the compile command.
func NewCompileCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a query and print its typed plan",
		Long: `Compile a query against the catalog and print the typed plan and the
result scope.

The query is read from the arguments, from --file, or from stdin.`,
		Example: `  # Compile a query given inline
  tinyquery compile --catalog catalog.yaml 'SELECT value, COUNT(*) FROM table1 GROUP BY value'

  # Compile a query file and print the plan as JSON
  tinyquery compile -f query.sql -o json

  # Read the query from stdin
  echo 'SELECT 1 + 2' | tinyquery compile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the query from a file")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string, file string) error {
	if len(args) > 0 && file != "" {
		return errors.New("pass the query as an argument or with --file, not both")
	}
	query, err := readQuery(cmd, args, file)
	if err != nil {
		return fmt.Errorf("failed to read query: %w", err)
	}
	if query == "" {
		return errors.New("no query given")
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sel, err := cmdCtx.Engine.Compile(query)
	if err != nil {
		return err
	}
	return renderPlan(cmdCtx.Renderer, sel)
}
