// Package catalog holds the table schemas and view definitions queries are
// compiled against.
//
// Memory is the in-process catalog. It can be filled from YAML files
// (LoadFile) or from a SQL-backed Store, and is safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Catalog resolves table and view names.
type Catalog interface {
	Lookup(name string) (Entry, bool)
}

// Entry is a *Table or a *View.
type Entry interface {
	catalogEntry()
	EntryName() string
}

// Column is a named, typed table column.
type Column struct {
	Name string    `json:"name" yaml:"name"`
	Type core.Type `json:"type" yaml:"type"`
}

// Table is a base table with ordered columns.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// View is a stored query, inlined wherever its name is referenced.
type View struct {
	Name  string `json:"name"`
	Query string `json:"query"`
}

func (*Table) catalogEntry() {}
func (*View) catalogEntry()  {}

// EntryName implements Entry.
func (t *Table) EntryName() string { return t.Name }

// EntryName implements Entry.
func (v *View) EntryName() string { return v.Name }

// Validation errors.
var (
	ErrEmptyName       = errors.New("name must not be empty")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrInvalidType     = errors.New("invalid column type")
	ErrEmptyQuery      = errors.New("view query must not be empty")
)

// Validate checks the table name and its columns.
func (t *Table) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table: %w", ErrEmptyName)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if col.Name == "" {
			return fmt.Errorf("table %s: column %w", t.Name, ErrEmptyName)
		}
		if seen[col.Name] {
			return fmt.Errorf("table %s: %w %q", t.Name, ErrDuplicateColumn, col.Name)
		}
		seen[col.Name] = true
		if col.Type == core.TypeInvalid || col.Type == core.TypeNone {
			return fmt.Errorf("table %s: column %q: %w %s", t.Name, col.Name, ErrInvalidType, col.Type)
		}
	}
	return nil
}

// Validate checks the view name and query.
func (v *View) Validate() error {
	if v.Name == "" {
		return fmt.Errorf("view: %w", ErrEmptyName)
	}
	if v.Query == "" {
		return fmt.Errorf("view %s: %w", v.Name, ErrEmptyQuery)
	}
	return nil
}
