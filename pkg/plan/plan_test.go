package plan_test

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLiteral(t *testing.T) {
	tests := []struct {
		value any
		want  core.Type
	}{
		{true, core.TypeBool},
		{int64(3), core.TypeInt},
		{1.5, core.TypeFloat},
		{"x", core.TypeString},
		{nil, core.TypeNone},
	}
	for _, tt := range tests {
		lit, err := plan.NewLiteral(tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, lit.ResultType())
	}

	_, err := plan.NewLiteral(3)
	assert.Error(t, err, "plain int is not a literal value")
}

func TestGroupSet(t *testing.T) {
	assert.True(t, plan.TrivialGroupSet().IsTrivial())

	gs := plan.NewGroupSet([]string{"b", "a", "b"}, []*plan.ColumnRef{{Table: "t", Column: "c", Type: core.TypeInt}})
	assert.Equal(t, []string{"a", "b"}, gs.AliasGroups)
	assert.True(t, gs.HasAlias("a"))
	assert.False(t, gs.HasAlias("c"))
	assert.False(t, gs.IsTrivial())
}

func TestColumnRefs(t *testing.T) {
	plus, err := functions.Default().LookupBinaryOperator("+")
	require.NoError(t, err)
	sum, err := functions.Default().LookupFunction("sum")
	require.NoError(t, err)

	a := &plan.ColumnRef{Table: "t", Column: "a", Type: core.TypeInt}
	b := &plan.ColumnRef{Column: "b", Type: core.TypeInt}
	e := &plan.FunctionCall{Func: plus, Type: core.TypeInt, Args: []plan.Expr{
		&plan.AggregateFunctionCall{Func: sum, Type: core.TypeInt, Args: []plan.Expr{a}},
		&plan.FunctionCall{Func: plus, Type: core.TypeInt, Args: []plan.Expr{b, a}},
	}}

	assert.Equal(t, []*plan.ColumnRef{a, b}, plan.ColumnRefs(e))
	assert.Equal(t, "+(sum(t.a), +(b, t.a))", e.String())
}

func sampleSelect(t *testing.T) *plan.Select {
	t.Helper()
	gt, err := functions.Default().LookupBinaryOperator(">")
	require.NoError(t, err)

	tableScope := scope(t, []plan.Column{col("table1", "value", core.TypeInt)})
	ref := &plan.ColumnRef{Table: "table1", Column: "value", Type: core.TypeInt}
	limit := int64(10)
	return &plan.Select{
		Fields: []plan.SelectField{{Expr: ref, Alias: "value"}},
		Table:  &plan.Table{Name: "table1", Scope: tableScope},
		Where: &plan.FunctionCall{Func: gt, Type: core.TypeBool, Args: []plan.Expr{
			ref, &plan.Literal{Value: int64(3), Type: core.TypeInt},
		}},
		Orderings: []plan.Ordering{{Column: &plan.ColumnRef{Column: "value", Type: core.TypeInt}}},
		Limit:     &limit,
		Scope: scope(t, []plan.Column{col("", "value", core.TypeInt)},
			plan.WithImplicit(scope(t, []plan.Column{col("table1", "value", core.TypeInt)}))),
	}
}

func TestExplain(t *testing.T) {
	out := plan.Explain(sampleSelect(t))
	for _, want := range []string{
		"Select [value INTEGER]",
		"value: table1.value INTEGER",
		"Table table1 [table1.value INTEGER]",
		"where: >(table1.value, 3)",
		"order: value DESC",
		"limit: 10",
		"implicit: [table1.value INTEGER]",
	} {
		assert.Contains(t, out, want)
	}
}

func TestMarshalSelect(t *testing.T) {
	data, err := plan.MarshalSelect(sampleSelect(t))
	require.NoError(t, err)

	var doc struct {
		Fields []struct {
			Alias string `json:"alias"`
			Expr  struct {
				Kind   string `json:"kind"`
				Table  string `json:"table"`
				Column string `json:"column"`
				Type   string `json:"type"`
			} `json:"expr"`
		} `json:"fields"`
		From struct {
			Kind string `json:"kind"`
			Name string `json:"name"`
		} `json:"from"`
		Where struct {
			Function string `json:"function"`
			Type     string `json:"type"`
		} `json:"where"`
		Limit int64          `json:"limit"`
		Scope plan.ScopeJSON `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.Fields, 1)
	assert.Equal(t, "value", doc.Fields[0].Alias)
	assert.Equal(t, "column", doc.Fields[0].Expr.Kind)
	assert.Equal(t, "table1", doc.Fields[0].Expr.Table)
	assert.Equal(t, "INTEGER", doc.Fields[0].Expr.Type)
	assert.Equal(t, "table", doc.From.Kind)
	assert.Equal(t, "table1", doc.From.Name)
	assert.Equal(t, ">", doc.Where.Function)
	assert.Equal(t, "BOOLEAN", doc.Where.Type)
	assert.Equal(t, int64(10), doc.Limit)
	assert.Equal(t, []plan.ScopeColumn{{Table: "table1", Name: "value", Type: "INTEGER"}}, doc.Scope.Implicit)
}

func TestWithScope(t *testing.T) {
	orig := &plan.Table{Name: "t", Scope: plan.EmptyScope()}
	s := scope(t, []plan.Column{col("x", "a", core.TypeInt)})

	got := plan.WithScope(orig, s)
	assert.Same(t, s, got.ResultScope())
	assert.Equal(t, 0, orig.Scope.Len())
	assert.NotSame(t, orig, got)
}
