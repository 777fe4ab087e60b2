package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tinyquery/internal/cli/output"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/core"
)

var errNoStore = errors.New("no catalog store configured (set store.driver and store.dsn)")

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage the table catalog",
		Long: `Inspect the tables and views queries are compiled against, and manage
the SQL catalog store.`,
	}

	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogShowCommand())
	cmd.AddCommand(newCatalogImportCommand())
	cmd.AddCommand(newCatalogDefineViewCommand())
	cmd.AddCommand(newCatalogRemoveCommand())
	return cmd
}

func newCatalogListCommand() *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables and views",
		Example: `  tinyquery catalog list
  tinyquery catalog list --dataset analytics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			cat := cmdCtx.Engine.Catalog()
			if !cmd.Flags().Changed("dataset") {
				return renderEntries(cmdCtx.Renderer, cat.Entries())
			}
			return renderDataset(cmdCtx.Renderer, dataset, cat.DatasetTables(dataset))
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "only list tables of this dataset")
	return cmd
}

func renderDataset(r *output.Renderer, dataset string, tables []string) error {
	if r.EffectiveMode() == output.ModeJSON {
		if tables == nil {
			tables = []string{}
		}
		return r.JSON(map[string]any{"dataset": dataset, "tables": tables})
	}
	rows := make([][]string, len(tables))
	for i, name := range tables {
		rows[i] = []string{name}
	}
	r.Header(fmt.Sprintf("Dataset %s (%d tables)", dataset, len(tables)))
	r.Table([]string{"table"}, rows)
	return nil
}

func newCatalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show the columns of a table or the query of a view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			entry, ok := cmdCtx.Engine.Catalog().Lookup(args[0])
			if !ok {
				return core.Errorf(core.KindNotFound, "table not found: %s", args[0])
			}
			r := cmdCtx.Renderer
			if err := renderEntry(r, entry); err != nil {
				return err
			}
			if _, isView := entry.(*catalog.View); isView && r.EffectiveMode() != output.ModeJSON {
				sel, err := cmdCtx.Engine.Compile("SELECT * FROM " + args[0])
				if err != nil {
					return err
				}
				renderScope(r, sel.Scope)
			}
			return nil
		},
	}
}

func newCatalogImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a YAML catalog file into the catalog store",
		Long: `Read a YAML catalog file and save every table and view in it to the SQL
catalog store, replacing entries of the same name.`,
		Example: `  tinyquery catalog import --store-driver sqlite --store-dsn catalog.db catalog.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Store()
			if store == nil {
				return errNoStore
			}
			mem, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			if err := store.Save(cmd.Context(), mem); err != nil {
				return err
			}
			cmdCtx.Logger.Info("imported catalog", "file", args[0], "entries", mem.Len())
			cmdCtx.Renderer.Success(fmt.Sprintf("imported %d entries from %s", mem.Len(), args[0]))
			return nil
		},
	}
}

func newCatalogDefineViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "define-view NAME QUERY",
		Short: "Compile a query and save it as a view",
		Long: `Compile QUERY against the catalog and, if it compiles, register it as the
view NAME. The view is saved to the catalog store when one is configured.`,
		Example: `  tinyquery catalog define-view big_values 'SELECT value FROM table1 WHERE value > 3'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cmdCtx.Engine.Store() == nil {
				return errNoStore
			}
			if err := cmdCtx.Engine.DefineView(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("defined view " + args[0])
			return nil
		},
	}
}

func newCatalogRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a table or view from the catalog store",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			store := cmdCtx.Engine.Store()
			if store == nil {
				return errNoStore
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("removed " + args[0])
			return nil
		},
	}
}
