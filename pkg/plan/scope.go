package plan

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Column is one entry of a Scope. Table is "" for an unqualified column.
type Column struct {
	Table string
	Name  string
	Type  core.Type
}

// FullName returns "table.name", or just the name when unqualified.
func (c Column) FullName() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

type key struct {
	table string
	name  string
}

// Scope is the set of columns visible at some point of a query, with their
// types. Scopes are immutable; every operation returns a new Scope.
//
// A Scope may link to an aggregate scope, visible inside aggregate function
// arguments, and to an implicit scope, consulted when a name has no match
// among the columns themselves.
type Scope struct {
	columns   []Column
	index     map[key]int
	byName    map[string][]int
	aggregate *Scope
	implicit  *Scope
}

// ScopeOption configures NewScope.
type ScopeOption func(*Scope)

// WithAggregate links the scope used for aggregate function arguments.
func WithAggregate(agg *Scope) ScopeOption {
	return func(s *Scope) { s.aggregate = agg }
}

// WithImplicit links the fallback scope for otherwise unknown names.
func WithImplicit(implicit *Scope) ScopeOption {
	return func(s *Scope) { s.implicit = implicit }
}

// NewScope builds a scope from ordered columns. A repeated (table, name)
// pair is an Ambiguous error.
func NewScope(columns []Column, opts ...ScopeOption) (*Scope, error) {
	s := &Scope{
		columns: make([]Column, 0, len(columns)),
		index:   make(map[key]int, len(columns)),
		byName:  make(map[string][]int),
	}
	for _, col := range columns {
		k := key{col.Table, col.Name}
		if _, dup := s.index[k]; dup {
			return nil, core.Errorf(core.KindAmbiguous, "ambiguous field: %s", col.FullName())
		}
		s.index[k] = len(s.columns)
		s.byName[col.Name] = append(s.byName[col.Name], len(s.columns))
		s.columns = append(s.columns, col)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EmptyScope returns a scope with no columns.
func EmptyScope() *Scope {
	s, _ := NewScope(nil)
	return s
}

// mustScope is for column lists already known to be free of duplicates.
func mustScope(columns []Column, opts ...ScopeOption) *Scope {
	s, err := NewScope(columns, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Columns returns a copy of the columns in order.
func (s *Scope) Columns() []Column {
	return slices.Clone(s.columns)
}

// Len returns the number of columns.
func (s *Scope) Len() int { return len(s.columns) }

// Aggregate returns the aggregate scope, or nil.
func (s *Scope) Aggregate() *Scope { return s.aggregate }

// Implicit returns the implicit scope, or nil.
func (s *Scope) Implicit() *Scope { return s.implicit }

// Resolve finds the column a name refers to.
//
// A dotted name is tried at every dot as (table, column), and the whole name
// also matches a column of that bare name when exactly one exists. More than
// one distinct match is Ambiguous. With no match the implicit scope is
// consulted; after that the name is Ambiguous if several columns share it as a
// bare name, and NotFound otherwise.
func (s *Scope) Resolve(name string) (*ColumnRef, error) {
	var matches []int
	add := func(i int) {
		if !slices.Contains(matches, i) {
			matches = append(matches, i)
		}
	}

	for i := 0; i < len(name); i++ {
		if name[i] != '.' {
			continue
		}
		if idx, ok := s.index[key{name[:i], name[i+1:]}]; ok {
			add(idx)
		}
	}
	if idx := s.byName[name]; len(idx) == 1 {
		add(idx[0])
	}

	switch len(matches) {
	case 1:
		col := s.columns[matches[0]]
		return &ColumnRef{Table: col.Table, Column: col.Name, Type: col.Type}, nil
	case 0:
	default:
		return nil, core.Errorf(core.KindAmbiguous, "ambiguous field: %s", name)
	}

	if s.implicit != nil {
		ref, err := s.implicit.Resolve(name)
		if err == nil || !errors.Is(err, core.ErrNotFound) {
			return ref, err
		}
	}
	if len(s.byName[name]) > 1 {
		return nil, core.Errorf(core.KindAmbiguous, "ambiguous field: %s", name)
	}
	return nil, core.Errorf(core.KindNotFound, "field not found: %s", name)
}

// WithFullAlias qualifies every column and every implicit column with alias.
// The aggregate link is dropped.
func (s *Scope) WithFullAlias(alias string) (*Scope, error) {
	cols := requalify(s.columns, alias)
	var opts []ScopeOption
	if s.implicit != nil {
		opts = append(opts, WithImplicit(mustScope(dedupe(requalify(s.implicit.columns, alias)))))
	}
	return NewScope(cols, opts...)
}

// WithSubqueryAlias keeps the columns reachable by their current names and
// makes alias.column reachable through the implicit scope. The aggregate link
// is dropped.
func (s *Scope) WithSubqueryAlias(alias string) *Scope {
	implicit := requalify(s.columns, alias)
	if s.implicit != nil {
		implicit = append(implicit, requalify(s.implicit.columns, alias)...)
	}
	return mustScope(s.columns, WithImplicit(mustScope(dedupe(implicit))))
}

// JoinScopes concatenates scopes, keeping qualifiers. A (table, name) pair
// present on two sides is Ambiguous.
func JoinScopes(scopes ...*Scope) (*Scope, error) {
	var cols []Column
	for _, s := range scopes {
		cols = append(cols, s.columns...)
	}
	return NewScope(cols)
}

// UnionScopes merges scopes by bare column name, in order of first
// appearance. Qualifiers are dropped. A name seen with two types is a
// TypeError.
func UnionScopes(scopes ...*Scope) (*Scope, error) {
	var cols []Column
	seen := make(map[string]core.Type)
	for _, s := range scopes {
		for _, col := range s.columns {
			if t, ok := seen[col.Name]; ok {
				if t != col.Type {
					return nil, core.Errorf(core.KindTypeError,
						"incompatible types for field %s: %s and %s", col.Name, t, col.Type)
				}
				continue
			}
			seen[col.Name] = col.Type
			cols = append(cols, Column{Name: col.Name, Type: col.Type})
		}
	}
	return NewScope(cols)
}

// Names returns, sorted, the names that resolve in this scope without the
// implicit fallback.
func (s *Scope) Names() []string {
	set := make(map[string]struct{})
	for _, col := range s.columns {
		set[col.FullName()] = struct{}{}
		if len(s.byName[col.Name]) == 1 {
			set[col.Name] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// AddressableNames is Names plus everything reachable through the implicit
// scope.
func (s *Scope) AddressableNames() []string {
	set := make(map[string]struct{})
	for _, n := range s.Names() {
		set[n] = struct{}{}
	}
	if s.implicit != nil {
		for _, n := range s.implicit.AddressableNames() {
			set[n] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// String renders the scope as "[t.a INTEGER, b STRING]".
func (s *Scope) String() string {
	parts := make([]string, len(s.columns))
	for i, col := range s.columns {
		parts[i] = col.FullName() + " " + col.Type.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func requalify(cols []Column, alias string) []Column {
	out := make([]Column, len(cols))
	for i, col := range cols {
		out[i] = Column{Table: alias, Name: col.Name, Type: col.Type}
	}
	return out
}

// dedupe keeps the first occurrence of every (table, name) pair.
func dedupe(cols []Column) []Column {
	seen := make(map[key]bool, len(cols))
	out := cols[:0:0]
	for _, col := range cols {
		k := key{col.Table, col.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, col)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	return slices.Sorted(maps.Keys(set))
}
