package functions

import (
	"sync"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Default returns the legacy BigQuery builtins.
func Default() *Registry {
	return defaultRegistry()
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewBuilder("bigquery").
		Unary(
			negate{},
			boolUnary{name: "not"},
			fixed{name: "is_null", arity: 1, result: core.TypeBool},
			fixed{name: "is_not_null", arity: 1, result: core.TypeBool},
		).
		Binary(
			arithmetic{name: "+"},
			arithmetic{name: "-"},
			arithmetic{name: "*"},
			arithmetic{name: "/"},
			arithmetic{name: "%"},
			comparison{name: "="},
			comparison{name: "!="},
			comparison{name: ">"},
			comparison{name: "<"},
			comparison{name: ">="},
			comparison{name: "<="},
			fixed{name: "and", arity: 2, result: core.TypeBool},
			fixed{name: "or", arity: 2, result: core.TypeBool},
		).
		Scalars(
			intUnary{name: "abs"},
			floorFunc{},
			fixed{name: "rand", arity: 0, result: core.TypeFloat},
			nthFunc{},
			concatFunc{},
			fixed{name: "string", arity: 1, result: core.TypeString},
			arithmetic{name: "pow"},
			fixed{name: "now", arity: 0, result: core.TypeInt},
			fixed{name: "in", arity: variadic, result: core.TypeBool},
			ifFunc{},
			ifNullFunc{},
			fixed{name: "hash", arity: 1, result: core.TypeInt},
		).
		Aggregates(
			sumFunc{},
			identity{name: "min"},
			identity{name: "max"},
			fixed{name: "count", arity: 1, result: core.TypeInt},
			fixed{name: "avg", arity: 1, result: core.TypeFloat},
			fixed{name: "count_distinct", arity: 1, result: core.TypeInt},
			fixed{name: "stddev_samp", arity: 1, result: core.TypeFloat},
			quantilesFunc{},
			identity{name: "first"},
		).
		Aliases(map[string]string{
			"<>": "!=",
			"==": "=",
		}).
		Build()
})

// variadic marks a fixed function that takes one or more arguments.
const variadic = -1

// fixed accepts any argument types and always returns result.
type fixed struct {
	name   string
	arity  int
	result core.Type
}

func (f fixed) Name() string { return f.name }

func (f fixed) CheckTypes(args ...core.Type) (core.Type, error) {
	var err error
	if f.arity == variadic {
		err = checkMinArity(f.name, args, 1)
	} else {
		err = checkArity(f.name, args, f.arity)
	}
	if err != nil {
		return core.TypeInvalid, err
	}
	return f.result, nil
}

// arithmetic is FLOAT when either side is FLOAT, INTEGER otherwise.
type arithmetic struct {
	name string
}

func (a arithmetic) Name() string { return a.name }

func (a arithmetic) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity(a.name, args, 2); err != nil {
		return core.TypeInvalid, err
	}
	if !args[0].IsNumeric() || !args[1].IsNumeric() {
		return core.TypeInvalid, reject(a.name, args, "expected int or float type")
	}
	if args[0] == core.TypeFloat || args[1] == core.TypeFloat {
		return core.TypeFloat, nil
	}
	return core.TypeInt, nil
}

// comparison accepts two numbers, two values of one type, or NULL against
// anything.
type comparison struct {
	name string
}

func (c comparison) Name() string { return c.name }

func (c comparison) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity(c.name, args, 2); err != nil {
		return core.TypeInvalid, err
	}
	a, b := args[0], args[1]
	switch {
	case a == b:
	case a.IsNumeric() && b.IsNumeric():
	case a == core.TypeNone || b == core.TypeNone:
	default:
		return core.TypeInvalid, reject(c.name, args, "cannot compare %s with %s", a, b)
	}
	return core.TypeBool, nil
}

type negate struct{}

func (negate) Name() string { return "-" }

func (negate) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("-", args, 1); err != nil {
		return core.TypeInvalid, err
	}
	if !args[0].IsNumeric() {
		return core.TypeInvalid, reject("-", args, "expected int or float type")
	}
	return args[0], nil
}

type boolUnary struct {
	name string
}

func (b boolUnary) Name() string { return b.name }

func (b boolUnary) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity(b.name, args, 1); err != nil {
		return core.TypeInvalid, err
	}
	if args[0] != core.TypeBool {
		return core.TypeInvalid, reject(b.name, args, "expected bool type")
	}
	return core.TypeBool, nil
}

type intUnary struct {
	name string
}

func (i intUnary) Name() string { return i.name }

func (i intUnary) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity(i.name, args, 1); err != nil {
		return core.TypeInvalid, err
	}
	if args[0] != core.TypeInt {
		return core.TypeInvalid, reject(i.name, args, "expected int type")
	}
	return core.TypeInt, nil
}

type floorFunc struct{}

func (floorFunc) Name() string { return "floor" }

func (floorFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("floor", args, 1); err != nil {
		return core.TypeInvalid, err
	}
	if !args[0].IsNumeric() {
		return core.TypeInvalid, reject("floor", args, "expected int or float type")
	}
	return core.TypeFloat, nil
}

// nthFunc is NTH(index, repeated): the index must be an integer.
type nthFunc struct{}

func (nthFunc) Name() string { return "nth" }

func (nthFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("nth", args, 2); err != nil {
		return core.TypeInvalid, err
	}
	if args[0] != core.TypeInt {
		return core.TypeInvalid, reject("nth", args, "expected an int index")
	}
	return core.TypeInt, nil
}

type concatFunc struct{}

func (concatFunc) Name() string { return "concat" }

func (concatFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	for _, t := range args {
		if t != core.TypeString {
			return core.TypeInvalid, reject("concat", args, "only takes string arguments")
		}
	}
	return core.TypeString, nil
}

// mergeBranches returns the common type of two branches; a NONETYPE branch
// takes the other branch's type.
func mergeBranches(name string, args []core.Type, a, b core.Type) (core.Type, error) {
	switch {
	case a == core.TypeNone:
		return b, nil
	case b == core.TypeNone:
		return a, nil
	case a != b:
		return core.TypeInvalid, reject(name, args, "expected types to be the same")
	}
	return a, nil
}

type ifFunc struct{}

func (ifFunc) Name() string { return "if" }

func (ifFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("if", args, 3); err != nil {
		return core.TypeInvalid, err
	}
	if args[0] != core.TypeBool {
		return core.TypeInvalid, reject("if", args, "expected bool condition")
	}
	return mergeBranches("if", args, args[1], args[2])
}

type ifNullFunc struct{}

func (ifNullFunc) Name() string { return "ifnull" }

func (ifNullFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("ifnull", args, 2); err != nil {
		return core.TypeInvalid, err
	}
	return mergeBranches("ifnull", args, args[0], args[1])
}

// identity returns its argument's type (MIN, MAX, FIRST).
type identity struct {
	name string
}

func (i identity) Name() string { return i.name }

func (i identity) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity(i.name, args, 1); err != nil {
		return core.TypeInvalid, err
	}
	return args[0], nil
}

type sumFunc struct{}

func (sumFunc) Name() string { return "sum" }

func (sumFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("sum", args, 1); err != nil {
		return core.TypeInvalid, err
	}
	switch args[0] {
	case core.TypeBool:
		return core.TypeInt, nil
	case core.TypeInt, core.TypeFloat:
		return args[0], nil
	}
	return core.TypeInvalid, reject("sum", args, "unexpected type")
}

type quantilesFunc struct{}

func (quantilesFunc) Name() string { return "quantiles" }

func (quantilesFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	if err := checkArity("quantiles", args, 2); err != nil {
		return core.TypeInvalid, err
	}
	if args[1] != core.TypeInt {
		return core.TypeInvalid, reject("quantiles", args, "expected an int number of quantiles")
	}
	return core.TypeInt, nil
}
