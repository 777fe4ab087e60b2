package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Supported store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const (
	kindTable = "table"
	kindView  = "view"
)

// Store persists catalog entries in a SQL database.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// OpenStore opens the database, runs pending migrations and returns the store.
func OpenStore(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if driver == DriverSQLite {
		// In-memory sqlite databases are per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", driver, err)
	}

	s := NewStore(db, driver, logger)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database. It does not run migrations.
func NewStore(db *sql.DB, driver string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, driver: driver, logger: logger}
}

// Migrate runs all pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	dialect := "sqlite3"
	if s.driver == DriverPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// bind rewrites ? placeholders to $n for postgres.
func (s *Store) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveTable inserts or replaces a table.
func (s *Store) SaveTable(ctx context.Context, t *Table) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.replaceEntry(ctx, tx, t.Name, kindTable, ""); err != nil {
			return err
		}
		for i, col := range t.Columns {
			_, err := tx.ExecContext(ctx,
				s.bind(`INSERT INTO catalog_columns (entry_name, position, name, column_type) VALUES (?, ?, ?, ?)`),
				t.Name, i, col.Name, col.Type.String())
			if err != nil {
				return fmt.Errorf("failed to save column %s.%s: %w", t.Name, col.Name, err)
			}
		}
		s.logger.Debug("saved table", "name", t.Name, "columns", len(t.Columns))
		return nil
	})
}

// SaveView inserts or replaces a view.
func (s *Store) SaveView(ctx context.Context, v *View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.replaceEntry(ctx, tx, v.Name, kindView, v.Query); err != nil {
			return err
		}
		s.logger.Debug("saved view", "name", v.Name)
		return nil
	})
}

// Save stores every entry of mem.
func (s *Store) Save(ctx context.Context, mem *Memory) error {
	for _, e := range mem.Entries() {
		var err error
		switch e := e.(type) {
		case *Table:
			err = s.SaveTable(ctx, e)
		case *View:
			err = s.SaveView(ctx, e)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an entry; deleting a missing name is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.deleteEntry(ctx, tx, name)
	})
}

func (s *Store) replaceEntry(ctx context.Context, tx *sql.Tx, name, kind, query string) error {
	if err := s.deleteEntry(ctx, tx, name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		s.bind(`INSERT INTO catalog_entries (name, kind, query) VALUES (?, ?, ?)`),
		name, kind, query)
	if err != nil {
		return fmt.Errorf("failed to save %s %s: %w", kind, name, err)
	}
	return nil
}

func (s *Store) deleteEntry(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM catalog_columns WHERE entry_name = ?`), name); err != nil {
		return fmt.Errorf("failed to delete columns of %s: %w", name, err)
	}
	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM catalog_entries WHERE name = ?`), name); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Load reads every stored entry into a new Memory catalog.
func (s *Store) Load(ctx context.Context) (*Memory, error) {
	columns, err := s.loadColumns(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, kind, query FROM catalog_entries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog entries: %w", err)
	}
	defer rows.Close()

	mem := NewMemory()
	for rows.Next() {
		var name, kind, query string
		if err := rows.Scan(&name, &kind, &query); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		switch kind {
		case kindTable:
			err = mem.AddTable(&Table{Name: name, Columns: columns[name]})
		case kindView:
			err = mem.AddView(&View{Name: name, Query: query})
		default:
			err = fmt.Errorf("entry %s has unknown kind %q", name, kind)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog entries: %w", err)
	}

	s.logger.Debug("loaded catalog from store", "entries", mem.Len())
	return mem, nil
}

func (s *Store) loadColumns(ctx context.Context) (map[string][]Column, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_name, name, column_type FROM catalog_columns ORDER BY entry_name, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string][]Column)
	for rows.Next() {
		var entry, name, typeName string
		if err := rows.Scan(&entry, &name, &typeName); err != nil {
			return nil, fmt.Errorf("failed to scan catalog column: %w", err)
		}
		t, err := core.ParseType(typeName)
		if err != nil {
			return nil, fmt.Errorf("column %s.%s: %w", entry, name, err)
		}
		columns[entry] = append(columns[entry], Column{Name: name, Type: t})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog columns: %w", err)
	}
	return columns, nil
}
