package plan

import (
	"encoding/json"
	"fmt"
)

// ScopeColumn is the JSON form of a scope column.
type ScopeColumn struct {
	Table string `json:"table,omitempty"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// ScopeJSON is the JSON form of a Scope.
type ScopeJSON struct {
	Columns  []ScopeColumn `json:"columns"`
	Implicit []ScopeColumn `json:"implicit,omitempty"`
}

type exprJSON struct {
	Kind      string      `json:"kind"`
	Type      string      `json:"type"`
	Value     any         `json:"value,omitempty"`
	Table     string      `json:"table,omitempty"`
	Column    string      `json:"column,omitempty"`
	Function  string      `json:"function,omitempty"`
	Args      []*exprJSON `json:"args,omitempty"`
	Aggregate bool        `json:"aggregate,omitempty"`
}

type fieldJSON struct {
	Alias string    `json:"alias"`
	Expr  *exprJSON `json:"expr"`
}

type joinFieldsJSON struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type tableJSON struct {
	Kind       string           `json:"kind"`
	Name       string           `json:"name,omitempty"`
	Tables     []*tableJSON     `json:"tables,omitempty"`
	Left       *tableJSON       `json:"left,omitempty"`
	Right      *tableJSON       `json:"right,omitempty"`
	Conditions []joinFieldsJSON `json:"conditions,omitempty"`
	LeftOuter  bool             `json:"left_outer,omitempty"`
	Select     *selectJSON      `json:"select,omitempty"`
	Scope      ScopeJSON        `json:"scope"`
}

type groupJSON struct {
	Aliases []string `json:"aliases"`
	Fields  []string `json:"fields"`
}

type orderingJSON struct {
	Column    string `json:"column"`
	Ascending bool   `json:"ascending"`
}

type selectJSON struct {
	Fields    []fieldJSON    `json:"fields"`
	From      *tableJSON     `json:"from"`
	Where     *exprJSON      `json:"where"`
	GroupSet  *groupJSON     `json:"group_set,omitempty"`
	Orderings []orderingJSON `json:"orderings,omitempty"`
	Limit     *int64         `json:"limit,omitempty"`
	Scope     ScopeJSON      `json:"scope"`
}

// MarshalSelect encodes a compiled Select as indented JSON.
func MarshalSelect(sel *Select) ([]byte, error) {
	data, err := json.MarshalIndent(selectToJSON(sel), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	return data, nil
}

// ScopeToJSON converts a Scope to its JSON form.
func ScopeToJSON(s *Scope) ScopeJSON {
	out := ScopeJSON{Columns: scopeColumns(s.columns)}
	if s.implicit != nil && s.implicit.Len() > 0 {
		out.Implicit = scopeColumns(s.implicit.columns)
	}
	return out
}

func scopeColumns(cols []Column) []ScopeColumn {
	out := make([]ScopeColumn, len(cols))
	for i, c := range cols {
		out[i] = ScopeColumn{Table: c.Table, Name: c.Name, Type: c.Type.String()}
	}
	return out
}

func selectToJSON(sel *Select) *selectJSON {
	out := &selectJSON{
		Fields: make([]fieldJSON, len(sel.Fields)),
		From:   tableToJSON(sel.Table),
		Where:  exprToJSON(sel.Where),
		Limit:  sel.Limit,
		Scope:  ScopeToJSON(sel.Scope),
	}
	for i, f := range sel.Fields {
		out.Fields[i] = fieldJSON{Alias: f.Alias, Expr: exprToJSON(f.Expr)}
	}
	if gs := sel.GroupSet; gs != nil {
		out.GroupSet = &groupJSON{Aliases: gs.AliasGroups, Fields: make([]string, len(gs.FieldGroups))}
		for i, f := range gs.FieldGroups {
			out.GroupSet.Fields[i] = f.FullName()
		}
	}
	for _, o := range sel.Orderings {
		out.Orderings = append(out.Orderings, orderingJSON{Column: o.Column.FullName(), Ascending: o.Ascending})
	}
	return out
}

func tableToJSON(t TableExpr) *tableJSON {
	out := &tableJSON{Scope: ScopeToJSON(t.ResultScope())}
	switch n := t.(type) {
	case *NoTable:
		out.Kind = "none"
	case *Table:
		out.Kind = "table"
		out.Name = n.Name
	case *TableUnion:
		out.Kind = "union"
		for _, sub := range n.Tables {
			out.Tables = append(out.Tables, tableToJSON(sub))
		}
	case *Join:
		out.Kind = "join"
		out.Left = tableToJSON(n.Left)
		out.Right = tableToJSON(n.Right)
		out.LeftOuter = n.LeftOuter
		for _, c := range n.Conditions {
			out.Conditions = append(out.Conditions, joinFieldsJSON{Left: c.Left.FullName(), Right: c.Right.FullName()})
		}
	case *Select:
		out.Kind = "select"
		out.Select = selectToJSON(n)
	}
	return out
}

func exprToJSON(e Expr) *exprJSON {
	out := &exprJSON{Type: e.ResultType().String()}
	switch n := e.(type) {
	case *Literal:
		out.Kind = "literal"
		out.Value = n.Value
	case *ColumnRef:
		out.Kind = "column"
		out.Table = n.Table
		out.Column = n.Column
	case *FunctionCall:
		out.Kind = "call"
		out.Function = n.Func.Name()
		out.Args = argsToJSON(n.Args)
	case *AggregateFunctionCall:
		out.Kind = "call"
		out.Function = n.Func.Name()
		out.Args = argsToJSON(n.Args)
		out.Aggregate = true
	}
	return out
}

func argsToJSON(args []Expr) []*exprJSON {
	out := make([]*exprJSON, len(args))
	for i, a := range args {
		out[i] = exprToJSON(a)
	}
	return out
}
