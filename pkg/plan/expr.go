// Package plan defines the typed plan produced by the binder.
//
// Every expression carries its resolved type and every table expression its
// result Scope. Expr and TableExpr are closed: their marker methods are
// unexported.
package plan

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
)

// Expr is a typed expression.
type Expr interface {
	ResultType() core.Type
	String() string
	planExpr()
}

// Literal is a typed constant.
type Literal struct {
	Value any
	Type  core.Type
}

// NewLiteral infers the type of a constant. Value must be a bool, int64,
// float64, string or nil.
func NewLiteral(value any) (*Literal, error) {
	switch value.(type) {
	case bool:
		return &Literal{Value: value, Type: core.TypeBool}, nil
	case int64:
		return &Literal{Value: value, Type: core.TypeInt}, nil
	case float64:
		return &Literal{Value: value, Type: core.TypeFloat}, nil
	case string:
		return &Literal{Value: value, Type: core.TypeString}, nil
	case nil:
		return &Literal{Value: nil, Type: core.TypeNone}, nil
	default:
		return nil, fmt.Errorf("unsupported literal %v of type %T", value, value)
	}
}

// True is the filter of a Select without WHERE.
func True() *Literal {
	return &Literal{Value: true, Type: core.TypeBool}
}

// ColumnRef is a resolved column. Table is "" when the column is unqualified.
type ColumnRef struct {
	Table  string
	Column string
	Type   core.Type
}

// FullName returns "table.column", or the column alone when unqualified.
func (c *ColumnRef) FullName() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// FunctionCall applies a function or operator.
type FunctionCall struct {
	Func functions.Function
	Args []Expr
	Type core.Type
}

// AggregateFunctionCall applies an aggregate. Its arguments were bound
// against the pre-grouping scope.
type AggregateFunctionCall struct {
	Func functions.Function
	Args []Expr
	Type core.Type
}

func (*Literal) planExpr()               {}
func (*ColumnRef) planExpr()             {}
func (*FunctionCall) planExpr()          {}
func (*AggregateFunctionCall) planExpr() {}

func (l *Literal) ResultType() core.Type               { return l.Type }
func (c *ColumnRef) ResultType() core.Type             { return c.Type }
func (f *FunctionCall) ResultType() core.Type          { return f.Type }
func (a *AggregateFunctionCall) ResultType() core.Type { return a.Type }

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *ColumnRef) String() string { return c.FullName() }

func (f *FunctionCall) String() string {
	return formatCall(f.Func.Name(), f.Args)
}

func (a *AggregateFunctionCall) String() string {
	return formatCall(a.Func.Name(), a.Args)
}

func formatCall(name string, args []Expr) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.String()
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}

// ColumnRefs returns the column references in e, depth-first, in order of
// first occurrence.
func ColumnRefs(e Expr) []*ColumnRef {
	var refs []*ColumnRef
	seen := make(map[ColumnRef]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *ColumnRef:
			if !seen[*n] {
				seen[*n] = true
				refs = append(refs, n)
			}
		case *FunctionCall:
			for _, arg := range n.Args {
				walk(arg)
			}
		case *AggregateFunctionCall:
			for _, arg := range n.Args {
				walk(arg)
			}
		}
	}
	walk(e)
	return refs
}
