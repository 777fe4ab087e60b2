// Package functions resolves operator and function names to type-checked
// signatures.
//
// A Registry is built once with a Builder and is read-only afterwards, so a
// single registry can be shared by concurrent compilations. Default returns
// the legacy BigQuery builtins; LoadStarlarkDir adds user-defined functions
// whose signatures are written in Starlark.
package functions

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Function is a named operator or function that infers its result type from
// its argument types.
type Function interface {
	Name() string
	// CheckTypes returns the result type for the given argument types, or an
	// error when the function does not accept them.
	CheckTypes(args ...core.Type) (core.Type, error)
}

// Resolver is the read-only view of a registry the binder consumes.
type Resolver interface {
	LookupFunction(name string) (Function, error)
	LookupUnaryOperator(name string) (Function, error)
	LookupBinaryOperator(name string) (Function, error)
	IsAggregate(name string) bool
}

// ErrArity is wrapped by SignatureError when the argument count is wrong.
var ErrArity = errors.New("wrong number of arguments")

// SignatureError reports argument types a function rejected.
type SignatureError struct {
	Func   string
	Args   []core.Type
	Reason string
	Err    error
}

func (e *SignatureError) Error() string {
	msg := e.Reason
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s%s: %s", e.Func, FormatTypes(e.Args), msg)
}

func (e *SignatureError) Unwrap() error {
	return e.Err
}

// FormatTypes renders argument types as "[INTEGER, STRING]".
func FormatTypes(args []core.Type) string {
	names := make([]string, len(args))
	for i, t := range args {
		names[i] = t.String()
	}
	return "[" + strings.Join(names, ", ") + "]"
}

func reject(name string, args []core.Type, format string, a ...any) error {
	return &SignatureError{Func: name, Args: args, Reason: fmt.Sprintf(format, a...)}
}

func checkArity(name string, args []core.Type, want int) error {
	if len(args) != want {
		return &SignatureError{
			Func:   name,
			Args:   args,
			Reason: fmt.Sprintf("expected %d arguments, got %d", want, len(args)),
			Err:    ErrArity,
		}
	}
	return nil
}

func checkMinArity(name string, args []core.Type, least int) error {
	if len(args) < least {
		return &SignatureError{
			Func:   name,
			Args:   args,
			Reason: fmt.Sprintf("expected at least %d arguments, got %d", least, len(args)),
			Err:    ErrArity,
		}
	}
	return nil
}
