// Package ast defines the untyped syntax tree produced by the parser.
//
// Expressions and table expressions are closed sets: the marker methods are
// unexported, so only this package can add variants. Consumers dispatch through
// ExprVisitor and TableVisitor, which makes a new variant a build failure for
// every visitor until it is handled.
package ast

// Expr is an untyped expression.
type Expr interface {
	exprNode()
	String() string
}

// Literal is a constant. Value is one of bool, int64, float64, string or nil.
type Literal struct {
	Value any
}

// ColumnID names a column, possibly qualified ("value", "t1.value").
type ColumnID struct {
	Name string
}

// UnaryOp applies a unary operator ("-", "not", "is_null", "is_not_null").
type UnaryOp struct {
	Op   string
	Expr Expr
}

// BinaryOp applies a binary operator ("+", "=", "and", ...).
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

// FuncCall calls a function by lowercase name.
type FuncCall struct {
	Name string
	Args []Expr
}

func (*Literal) exprNode()  {}
func (*ColumnID) exprNode() {}
func (*UnaryOp) exprNode()  {}
func (*BinaryOp) exprNode() {}
func (*FuncCall) exprNode() {}

// SelectItem is an entry of a select list: a SelectField or a Star.
type SelectItem interface {
	selectItem()
}

// SelectField is an expression with an optional alias ("" when absent).
type SelectField struct {
	Expr  Expr
	Alias string
}

// Star is the `*` wildcard.
type Star struct{}

func (*SelectField) selectItem() {}
func (*Star) selectItem()        {}

// TableExpr is anything that can appear in a FROM clause.
type TableExpr interface {
	tableExpr()
	// TableAlias returns the explicit alias, or "" when there is none.
	TableAlias() string
}

// TableID names a catalog table or view ("table1", "dataset.table1").
type TableID struct {
	Name  string
	Alias string
}

// TableUnion is a comma-separated FROM list.
type TableUnion struct {
	Tables []TableExpr
}

// Join is an equi-join with an ON condition.
type Join struct {
	Left      TableExpr
	Right     TableExpr
	Condition Expr
	LeftOuter bool
}

// CrossJoin is a join without a condition.
type CrossJoin struct {
	Left  TableExpr
	Right TableExpr
}

// Ordering is one ORDER BY key.
type Ordering struct {
	Column    *ColumnID
	Ascending bool
}

// Select is a SELECT statement. It is also a table expression when nested.
type Select struct {
	Fields  []SelectItem
	From    TableExpr   // nil when there is no FROM clause
	Where   Expr        // nil when there is no WHERE clause
	GroupBy []*ColumnID // nil when there is no GROUP BY clause
	OrderBy []*Ordering
	Limit   *int64
	Alias   string
}

func (*TableID) tableExpr()    {}
func (*TableUnion) tableExpr() {}
func (*Join) tableExpr()       {}
func (*CrossJoin) tableExpr()  {}
func (*Select) tableExpr()     {}

// TableAlias implements TableExpr.
func (t *TableID) TableAlias() string { return t.Alias }

// TableAlias implements TableExpr. Unions are never aliased.
func (*TableUnion) TableAlias() string { return "" }

// TableAlias implements TableExpr. Joins are never aliased.
func (*Join) TableAlias() string { return "" }

// TableAlias implements TableExpr. Joins are never aliased.
func (*CrossJoin) TableAlias() string { return "" }

// TableAlias implements TableExpr.
func (s *Select) TableAlias() string { return s.Alias }
