package binder

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// tableCompiler compiles FROM clause items.
type tableCompiler struct {
	s *session
}

var _ ast.TableVisitor[plan.TableExpr] = tableCompiler{}

func (s *session) compileTable(t ast.TableExpr) (plan.TableExpr, error) {
	if t == nil {
		return &plan.NoTable{Scope: plan.EmptyScope()}, nil
	}
	return ast.AcceptTable[plan.TableExpr](t, tableCompiler{s: s})
}

func (tc tableCompiler) VisitTableID(t *ast.TableID) (plan.TableExpr, error) {
	entry, ok := tc.s.catalog.Lookup(t.Name)
	if !ok {
		return nil, core.Errorf(core.KindNotFound, "table not found: %s", t.Name)
	}
	alias := t.Alias
	if alias == "" {
		alias = t.Name
	}

	switch e := entry.(type) {
	case *catalog.Table:
		cols := make([]plan.Column, len(e.Columns))
		for i, c := range e.Columns {
			cols[i] = plan.Column{Table: alias, Name: c.Name, Type: c.Type}
		}
		scope, err := plan.NewScope(cols)
		if err != nil {
			return nil, err
		}
		return &plan.Table{Name: t.Name, Scope: scope}, nil
	case *catalog.View:
		return tc.s.inlineView(e, alias)
	default:
		return nil, core.Errorf(core.KindNotFound, "unsupported catalog entry %s", t.Name)
	}
}

// inlineView compiles a view's query in place. Unlike a subquery alias, the
// alias of a view qualifies every column it returns.
func (s *session) inlineView(v *catalog.View, alias string) (plan.TableExpr, error) {
	chain := strings.Join(append(slices.Clone(s.views), v.Name), " -> ")
	if slices.Contains(s.views, v.Name) {
		return nil, core.Errorf(core.KindViewDepthExceeded, "recursive view: %s", chain)
	}
	if len(s.views) >= s.maxViewDepth {
		return nil, core.Errorf(core.KindViewDepthExceeded,
			"view nesting exceeds depth %d: %s", s.maxViewDepth, chain)
	}

	tree, err := s.parse(v.Query)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("inlining view", "view", v.Name, "alias", alias, "depth", len(s.views)+1)
	s.views = append(s.views, v.Name)
	sel, err := s.compileSelect(tree)
	s.views = s.views[:len(s.views)-1]
	if err != nil {
		return nil, err
	}

	scope, err := sel.Scope.WithFullAlias(alias)
	if err != nil {
		return nil, err
	}
	return plan.WithScope(sel, scope), nil
}

func (tc tableCompiler) VisitTableUnion(t *ast.TableUnion) (plan.TableExpr, error) {
	tables := make([]plan.TableExpr, len(t.Tables))
	scopes := make([]*plan.Scope, len(t.Tables))
	for i, sub := range t.Tables {
		compiled, err := tc.s.compileTable(sub)
		if err != nil {
			return nil, err
		}
		tables[i] = compiled
		scopes[i] = compiled.ResultScope()
	}
	scope, err := plan.UnionScopes(scopes...)
	if err != nil {
		return nil, err
	}
	return &plan.TableUnion{Tables: tables, Scope: scope}, nil
}

func (tc tableCompiler) VisitCrossJoin(t *ast.CrossJoin) (plan.TableExpr, error) {
	left, _, err := tc.joinSide(t.Left)
	if err != nil {
		return nil, err
	}
	right, _, err := tc.joinSide(t.Right)
	if err != nil {
		return nil, err
	}
	scope, err := plan.JoinScopes(left.ResultScope(), right.ResultScope())
	if err != nil {
		return nil, err
	}
	return &plan.Join{Left: left, Right: right, Conditions: []plan.JoinFields{}, Scope: scope}, nil
}

func (tc tableCompiler) VisitJoin(t *ast.Join) (plan.TableExpr, error) {
	left, leftAlias, err := tc.joinSide(t.Left)
	if err != nil {
		return nil, err
	}
	right, rightAlias, err := tc.joinSide(t.Right)
	if err != nil {
		return nil, err
	}

	jc := joinConditions{
		left: left.ResultScope(), right: right.ResultScope(),
		leftAlias: leftAlias, rightAlias: rightAlias,
	}
	conds, err := jc.compile(t.Condition)
	if err != nil {
		return nil, err
	}

	scope, err := plan.JoinScopes(left.ResultScope(), right.ResultScope())
	if err != nil {
		return nil, err
	}
	return &plan.Join{Left: left, Right: right, Conditions: conds, LeftOuter: t.LeftOuter, Scope: scope}, nil
}

// joinSide compiles one side of a join and qualifies all of its columns with
// the side's alias. A bare table reference is aliased by its name.
func (tc tableCompiler) joinSide(t ast.TableExpr) (plan.TableExpr, string, error) {
	compiled, err := tc.s.compileTable(t)
	if err != nil {
		return nil, "", err
	}
	alias := t.TableAlias()
	if id, ok := t.(*ast.TableID); ok && alias == "" {
		alias = id.Name
	}
	if alias == "" {
		return nil, "", core.Errorf(core.KindInvalidJoinCondition, "table expression must have an alias name")
	}
	scope, err := compiled.ResultScope().WithFullAlias(alias)
	if err != nil {
		return nil, "", err
	}
	return plan.WithScope(compiled, scope), alias, nil
}

func (tc tableCompiler) VisitSelect(t *ast.Select) (plan.TableExpr, error) {
	sel, err := tc.s.compileSelect(t)
	if err != nil {
		return nil, err
	}
	if t.Alias == "" {
		return sel, nil
	}
	return plan.WithScope(sel, sel.Scope.WithSubqueryAlias(t.Alias)), nil
}

type joinConditions struct {
	left, right           *plan.Scope
	leftAlias, rightAlias string
}

// compile splits an ON expression into equalities between the two sides.
func (jc joinConditions) compile(e ast.Expr) ([]plan.JoinFields, error) {
	if op, ok := e.(*ast.BinaryOp); ok {
		switch op.Op {
		case "and":
			l, err := jc.compile(op.Left)
			if err != nil {
				return nil, err
			}
			r, err := jc.compile(op.Right)
			if err != nil {
				return nil, err
			}
			return append(l, r...), nil
		case "=":
			id1, ok1 := op.Left.(*ast.ColumnID)
			id2, ok2 := op.Right.(*ast.ColumnID)
			if ok1 && ok2 {
				if strings.HasPrefix(id1.Name, jc.rightAlias+".") || strings.HasPrefix(id2.Name, jc.leftAlias+".") {
					id1, id2 = id2, id1
				}
				ref1, err := jc.left.Resolve(id1.Name)
				if err != nil {
					return nil, err
				}
				ref2, err := jc.right.Resolve(id2.Name)
				if err != nil {
					return nil, err
				}
				return []plan.JoinFields{{Left: ref1, Right: ref2}}, nil
			}
		}
	}
	return nil, core.Errorf(core.KindInvalidJoinCondition,
		"join conditions must consist of an AND of = comparisons, got %s", e)
}
