package functions_test

import (
	"testing"

	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	i = core.TypeInt
	f = core.TypeFloat
	b = core.TypeBool
	s = core.TypeString
	n = core.TypeNone
)

func TestDefault_CheckTypes(t *testing.T) {
	reg := functions.Default()

	tests := []struct {
		kind    string // "unary", "binary" or "func"
		name    string
		args    []core.Type
		want    core.Type
		wantErr bool
	}{
		{"unary", "-", []core.Type{i}, i, false},
		{"unary", "-", []core.Type{f}, f, false},
		{"unary", "-", []core.Type{s}, 0, true},
		{"unary", "not", []core.Type{b}, b, false},
		{"unary", "not", []core.Type{i}, 0, true},
		{"unary", "is_null", []core.Type{s}, b, false},
		{"unary", "is_not_null", []core.Type{n}, b, false},

		{"binary", "+", []core.Type{i, i}, i, false},
		{"binary", "+", []core.Type{i, f}, f, false},
		{"binary", "/", []core.Type{f, i}, f, false},
		{"binary", "%", []core.Type{i, s}, 0, true},
		{"binary", "*", []core.Type{b, i}, 0, true},
		{"binary", "=", []core.Type{s, i}, 0, true},
		{"binary", "=", []core.Type{s, s}, b, false},
		{"binary", ">", []core.Type{i, f}, b, false},
		{"binary", "<=", []core.Type{b, i}, 0, true},
		{"binary", "!=", []core.Type{n, s}, b, false},
		{"binary", "==", []core.Type{b, n}, b, false},
		{"binary", "<>", []core.Type{i, i}, b, false},
		{"binary", "and", []core.Type{b, b}, b, false},
		{"binary", "OR", []core.Type{b, b}, b, false},

		{"func", "abs", []core.Type{i}, i, false},
		{"func", "abs", []core.Type{f}, 0, true},
		{"func", "floor", []core.Type{i}, f, false},
		{"func", "rand", nil, f, false},
		{"func", "rand", []core.Type{i}, 0, true},
		{"func", "nth", []core.Type{i, s}, i, false},
		{"func", "nth", []core.Type{s, s}, 0, true},
		{"func", "concat", []core.Type{s, s, s}, s, false},
		{"func", "concat", []core.Type{s, i}, 0, true},
		{"func", "string", []core.Type{f}, s, false},
		{"func", "pow", []core.Type{i, f}, f, false},
		{"func", "now", nil, i, false},
		{"func", "in", []core.Type{i, i, i}, b, false},
		{"func", "in", nil, 0, true},
		{"func", "if", []core.Type{b, i, i}, i, false},
		{"func", "if", []core.Type{b, n, s}, s, false},
		{"func", "if", []core.Type{b, f, n}, f, false},
		{"func", "if", []core.Type{b, i, s}, 0, true},
		{"func", "if", []core.Type{i, i, i}, 0, true},
		{"func", "ifnull", []core.Type{n, i}, i, false},
		{"func", "ifnull", []core.Type{s, i}, 0, true},
		{"func", "hash", []core.Type{s}, i, false},

		{"func", "sum", []core.Type{b}, i, false},
		{"func", "sum", []core.Type{f}, f, false},
		{"func", "sum", []core.Type{s}, 0, true},
		{"func", "min", []core.Type{s}, s, false},
		{"func", "MAX", []core.Type{f}, f, false},
		{"func", "count", []core.Type{s}, i, false},
		{"func", "count", []core.Type{s, s}, 0, true},
		{"func", "avg", []core.Type{i}, f, false},
		{"func", "count_distinct", []core.Type{s}, i, false},
		{"func", "stddev_samp", []core.Type{i}, f, false},
		{"func", "quantiles", []core.Type{f, i}, i, false},
		{"func", "quantiles", []core.Type{f, f}, 0, true},
		{"func", "first", []core.Type{b}, b, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.name+functions.FormatTypes(tt.args), func(t *testing.T) {
			var fn functions.Function
			var err error
			switch tt.kind {
			case "unary":
				fn, err = reg.LookupUnaryOperator(tt.name)
			case "binary":
				fn, err = reg.LookupBinaryOperator(tt.name)
			default:
				fn, err = reg.LookupFunction(tt.name)
			}
			require.NoError(t, err)

			got, err := fn.CheckTypes(tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				var sigErr *functions.SignatureError
				assert.ErrorAs(t, err, &sigErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault_Arity(t *testing.T) {
	fn, err := functions.Default().LookupFunction("if")
	require.NoError(t, err)

	_, err = fn.CheckTypes(core.TypeBool, core.TypeInt)
	require.Error(t, err)
	assert.ErrorIs(t, err, functions.ErrArity)
	assert.Contains(t, err.Error(), "if[BOOLEAN, INTEGER]")
}

func TestDefault_IsAggregate(t *testing.T) {
	reg := functions.Default()
	for _, name := range []string{"sum", "min", "max", "count", "avg", "count_distinct", "stddev_samp", "quantiles", "first", "COUNT"} {
		assert.True(t, reg.IsAggregate(name), name)
	}
	for _, name := range []string{"abs", "if", "concat", "nope"} {
		assert.False(t, reg.IsAggregate(name), name)
	}
}

func TestDefault_UnknownNames(t *testing.T) {
	reg := functions.Default()

	_, err := reg.LookupFunction("no_such_fn")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownFunction)
	assert.Contains(t, err.Error(), "no_such_fn")

	_, err = reg.LookupUnaryOperator("~")
	assert.ErrorIs(t, err, core.ErrUnknownFunction)

	_, err = reg.LookupBinaryOperator("||")
	assert.ErrorIs(t, err, core.ErrUnknownFunction)
}

func TestDefault_IsShared(t *testing.T) {
	assert.Same(t, functions.Default(), functions.Default())
}
