package plan

import "slices"

// TableExpr is a typed FROM clause item.
type TableExpr interface {
	ResultScope() *Scope
	planTable()
}

// NoTable is the source of a SELECT without FROM.
type NoTable struct {
	Scope *Scope
}

// Table is a base table read from the catalog.
type Table struct {
	Name  string
	Scope *Scope
}

// TableUnion is a comma-separated FROM list. Its Scope holds unqualified
// column names only.
type TableUnion struct {
	Tables []TableExpr
	Scope  *Scope
}

// JoinFields is one equality of a join condition; Left belongs to the left
// side of the join.
type JoinFields struct {
	Left  *ColumnRef
	Right *ColumnRef
}

// Join combines two aliased table expressions. Conditions is empty for a
// cross join.
type Join struct {
	Left       TableExpr
	Right      TableExpr
	Conditions []JoinFields
	LeftOuter  bool
	Scope      *Scope
}

// SelectField is a typed output column.
type SelectField struct {
	Expr  Expr
	Alias string
}

// Ordering is one resolved ORDER BY key.
type Ordering struct {
	Column    *ColumnRef
	Ascending bool
}

// Select is a compiled SELECT. Where is never nil. GroupSet is nil when the
// query does not aggregate.
type Select struct {
	Fields    []SelectField
	Table     TableExpr
	Where     Expr
	GroupSet  *GroupSet
	Orderings []Ordering
	Limit     *int64
	Scope     *Scope
}

func (*NoTable) planTable()    {}
func (*Table) planTable()      {}
func (*TableUnion) planTable() {}
func (*Join) planTable()       {}
func (*Select) planTable()     {}

func (t *NoTable) ResultScope() *Scope    { return t.Scope }
func (t *Table) ResultScope() *Scope      { return t.Scope }
func (t *TableUnion) ResultScope() *Scope { return t.Scope }
func (t *Join) ResultScope() *Scope       { return t.Scope }
func (s *Select) ResultScope() *Scope     { return s.Scope }

// WithScope returns a shallow copy of t carrying scope.
func WithScope(t TableExpr, scope *Scope) TableExpr {
	switch n := t.(type) {
	case *NoTable:
		c := *n
		c.Scope = scope
		return &c
	case *Table:
		c := *n
		c.Scope = scope
		return &c
	case *TableUnion:
		c := *n
		c.Scope = scope
		return &c
	case *Join:
		c := *n
		c.Scope = scope
		return &c
	case *Select:
		c := *n
		c.Scope = scope
		return &c
	default:
		panic("plan: unexpected table expression")
	}
}

// GroupSet describes the grouping of a Select. AliasGroups are output aliases
// used as keys; FieldGroups are columns of the source table. A GroupSet with
// neither is trivial: everything falls in one group.
type GroupSet struct {
	AliasGroups []string
	FieldGroups []*ColumnRef
}

// TrivialGroupSet returns the group set of an aggregate query without GROUP BY.
func TrivialGroupSet() *GroupSet {
	return &GroupSet{AliasGroups: []string{}, FieldGroups: []*ColumnRef{}}
}

// NewGroupSet builds a group set; alias groups are kept sorted and unique.
func NewGroupSet(aliases []string, fields []*ColumnRef) *GroupSet {
	gs := TrivialGroupSet()
	for _, a := range aliases {
		if !slices.Contains(gs.AliasGroups, a) {
			gs.AliasGroups = append(gs.AliasGroups, a)
		}
	}
	slices.Sort(gs.AliasGroups)
	gs.FieldGroups = append(gs.FieldGroups, fields...)
	return gs
}

// HasAlias reports whether alias is a grouping key.
func (g *GroupSet) HasAlias(alias string) bool {
	return slices.Contains(g.AliasGroups, alias)
}

// IsTrivial reports whether the group set puts every row in one group.
func (g *GroupSet) IsTrivial() bool {
	return len(g.AliasGroups) == 0 && len(g.FieldGroups) == 0
}
