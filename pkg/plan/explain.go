package plan

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/list"
)

// Explain renders a Select as an indented tree.
func Explain(sel *Select) string {
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedLight)
	explainSelect(l, sel)
	return l.Render()
}

func explainSelect(l list.Writer, sel *Select) {
	l.AppendItem("Select " + sel.Scope.String())
	l.Indent()
	defer l.UnIndent()

	l.AppendItem("fields")
	l.Indent()
	for _, f := range sel.Fields {
		l.AppendItem(fmt.Sprintf("%s: %s %s", f.Alias, f.Expr, f.Expr.ResultType()))
	}
	l.UnIndent()

	l.AppendItem("from")
	l.Indent()
	explainTable(l, sel.Table)
	l.UnIndent()

	l.AppendItem("where: " + sel.Where.String())

	if sel.GroupSet != nil {
		if sel.GroupSet.IsTrivial() {
			l.AppendItem("group: all rows")
		} else {
			keys := slicesConcat(sel.GroupSet.AliasGroups, sel.GroupSet.FieldGroups)
			l.AppendItem("group: " + strings.Join(keys, ", "))
		}
	}
	if len(sel.Orderings) > 0 {
		keys := make([]string, len(sel.Orderings))
		for i, o := range sel.Orderings {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			keys[i] = o.Column.FullName() + " " + dir
		}
		l.AppendItem("order: " + strings.Join(keys, ", "))
	}
	if sel.Limit != nil {
		l.AppendItem(fmt.Sprintf("limit: %d", *sel.Limit))
	}
	if implicit := sel.Scope.Implicit(); implicit != nil && implicit.Len() > 0 {
		l.AppendItem("implicit: " + implicit.String())
	}
}

func explainTable(l list.Writer, t TableExpr) {
	switch n := t.(type) {
	case *NoTable:
		l.AppendItem("(no table)")
	case *Table:
		l.AppendItem("Table " + n.Name + " " + n.Scope.String())
	case *TableUnion:
		l.AppendItem("Union " + n.Scope.String())
		l.Indent()
		for _, sub := range n.Tables {
			explainTable(l, sub)
		}
		l.UnIndent()
	case *Join:
		kind := "Join"
		switch {
		case len(n.Conditions) == 0:
			kind = "Cross Join"
		case n.LeftOuter:
			kind = "Left Outer Join"
		}
		l.AppendItem(kind + " " + n.Scope.String())
		l.Indent()
		for _, c := range n.Conditions {
			l.AppendItem("on " + c.Left.FullName() + " = " + c.Right.FullName())
		}
		explainTable(l, n.Left)
		explainTable(l, n.Right)
		l.UnIndent()
	case *Select:
		explainSelect(l, n)
	}
}

func slicesConcat(aliases []string, fields []*ColumnRef) []string {
	out := make([]string, 0, len(aliases)+len(fields))
	out = append(out, aliases...)
	for _, f := range fields {
		out = append(out, f.FullName())
	}
	return out
}
