package binder

import (
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

func (s *session) compileSelect(sel *ast.Select) (*plan.Select, error) {
	table, err := s.compileTable(sel.From)
	if err != nil {
		return nil, err
	}
	tableScope := table.ResultScope()

	where, err := s.compileWhere(sel.Where, tableScope)
	if err != nil {
		return nil, err
	}

	fields := expandStar(sel.Fields, table)
	aliases, err := assignAliases(fields)
	if err != nil {
		return nil, err
	}

	groupSet, err := s.compileGroups(sel.GroupBy, fields, aliases, tableScope)
	if err != nil {
		return nil, err
	}

	compiled := make([]plan.SelectField, len(fields))
	grouped := make([]bool, len(fields))

	var groupCols []plan.Column
	if groupSet != nil {
		for _, fg := range groupSet.FieldGroups {
			groupCols = append(groupCols, plan.Column{Table: fg.Table, Name: fg.Column, Type: fg.Type})
		}
	}
	var implicitCols []plan.Column
	for i, f := range fields {
		if groupSet != nil && !groupSet.HasAlias(aliases[i]) {
			continue
		}
		e, err := s.compileExpr(f.Expr, tableScope)
		if err != nil {
			return nil, err
		}
		compiled[i] = plan.SelectField{Expr: e, Alias: aliases[i]}
		grouped[i] = true
		groupCols = append(groupCols, plan.Column{Name: aliases[i], Type: e.ResultType()})
		for _, ref := range plan.ColumnRefs(e) {
			implicitCols = append(implicitCols, plan.Column{Table: ref.Table, Name: ref.Column, Type: ref.Type})
		}
	}

	aggScope, err := plan.NewScope(firstOccurrences(groupCols), plan.WithAggregate(tableScope))
	if err != nil {
		return nil, err
	}
	implicit, err := plan.NewScope(firstOccurrences(implicitCols))
	if err != nil {
		return nil, err
	}

	if groupSet != nil {
		for i, f := range fields {
			if grouped[i] {
				continue
			}
			e, err := s.compileExpr(f.Expr, aggScope)
			if err != nil {
				return nil, err
			}
			compiled[i] = plan.SelectField{Expr: e, Alias: aliases[i]}
		}
	}

	resultCols := make([]plan.Column, len(compiled))
	for i, f := range compiled {
		resultCols[i] = plan.Column{Name: f.Alias, Type: f.Expr.ResultType()}
	}
	resultScope, err := plan.NewScope(resultCols, plan.WithImplicit(implicit))
	if err != nil {
		return nil, err
	}

	orderings, err := compileOrderings(sel.OrderBy, resultScope)
	if err != nil {
		return nil, err
	}

	return &plan.Select{
		Fields:    compiled,
		Table:     table,
		Where:     where,
		GroupSet:  groupSet,
		Orderings: orderings,
		Limit:     sel.Limit,
		Scope:     resultScope,
	}, nil
}

func (s *session) compileWhere(where ast.Expr, scope *plan.Scope) (plan.Expr, error) {
	if where == nil {
		return plan.True(), nil
	}
	return s.compileExpr(where, scope)
}

// expandStar replaces `*` by one field per column of the table scope. Over a
// join the fields are aliased by their qualified name.
func expandStar(items []ast.SelectItem, table plan.TableExpr) []*ast.SelectField {
	_, isJoin := table.(*plan.Join)
	var fields []*ast.SelectField
	for _, item := range items {
		switch it := item.(type) {
		case *ast.SelectField:
			fields = append(fields, it)
		case *ast.Star:
			for _, col := range table.ResultScope().Columns() {
				alias := col.Name
				if isJoin {
					alias = col.FullName()
				}
				fields = append(fields, &ast.SelectField{
					Expr:  &ast.ColumnID{Name: col.FullName()},
					Alias: alias,
				})
			}
		}
	}
	return fields
}

// assignAliases gives every field an output name: its explicit alias, the
// name of a bare column, or the lowest free f<N>_.
func assignAliases(fields []*ast.SelectField) ([]string, error) {
	used := make(map[string]bool)
	proposed := make([]string, len(fields))
	for i, f := range fields {
		alias := f.Alias
		if alias == "" {
			if id, ok := f.Expr.(*ast.ColumnID); ok {
				alias = id.Name
			}
		}
		if alias == "" {
			continue
		}
		if used[alias] {
			return nil, core.Errorf(core.KindAmbiguous, "ambiguous column name %s", alias)
		}
		used[alias] = true
		proposed[i] = alias
	}

	n := 0
	aliases := make([]string, len(fields))
	for i, alias := range proposed {
		if alias == "" {
			for used[fmt.Sprintf("f%d_", n)] {
				n++
			}
			alias = fmt.Sprintf("f%d_", n)
			n++
		}
		aliases[i] = alias
	}
	return aliases, nil
}

// compileGroups decides how the query groups. Without GROUP BY a query groups
// everything into one group when any field aggregates, and not at all
// otherwise. GROUP BY names that are output aliases become alias groups; the
// rest resolve against the table scope.
func (s *session) compileGroups(groupBy []*ast.ColumnID, fields []*ast.SelectField, aliases []string, tableScope *plan.Scope) (*plan.GroupSet, error) {
	if groupBy == nil {
		for _, f := range fields {
			if s.containsAggregate(f.Expr) {
				return plan.TrivialGroupSet(), nil
			}
		}
		return nil, nil
	}

	isAlias := make(map[string]bool, len(aliases))
	for _, a := range aliases {
		isAlias[a] = true
	}
	var aliasGroups []string
	var fieldGroups []*plan.ColumnRef
	for _, g := range groupBy {
		if isAlias[g.Name] {
			aliasGroups = append(aliasGroups, g.Name)
			continue
		}
		ref, err := tableScope.Resolve(g.Name)
		if err != nil {
			return nil, err
		}
		fieldGroups = append(fieldGroups, ref)
	}
	return plan.NewGroupSet(aliasGroups, fieldGroups), nil
}

func compileOrderings(orderBy []*ast.Ordering, scope *plan.Scope) ([]plan.Ordering, error) {
	if len(orderBy) == 0 {
		return nil, nil
	}
	out := make([]plan.Ordering, 0, len(orderBy))
	for _, o := range orderBy {
		ref, err := scope.Resolve(o.Column.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, plan.Ordering{Column: ref, Ascending: o.Ascending})
	}
	return out, nil
}

// firstOccurrences drops repeated (table, name) pairs, keeping the first.
func firstOccurrences(cols []plan.Column) []plan.Column {
	type key struct{ table, name string }
	seen := make(map[key]bool, len(cols))
	out := make([]plan.Column, 0, len(cols))
	for _, c := range cols {
		k := key{c.Table, c.Name}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
