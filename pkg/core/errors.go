package core

import "fmt"

// ErrorKind classifies a compile error.
type ErrorKind int

// Compile error kinds.
const (
	// KindNotFound means a column or table name has no match.
	KindNotFound ErrorKind = iota + 1
	// KindAmbiguous means a name matches more than one entry, or output aliases collide.
	KindAmbiguous
	// KindInvalidJoinCondition means an ON clause is not an AND of cross-side equalities.
	KindInvalidJoinCondition
	// KindUnboundAggregate means an aggregate call appears with no aggregate context.
	KindUnboundAggregate
	// KindTypeError means a function or operator rejected its argument types.
	KindTypeError
	// KindUnknownFunction means the function registry has no such name.
	KindUnknownFunction
	// KindViewDepthExceeded means view inlining went deeper than the configured limit.
	KindViewDepthExceeded
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAmbiguous:
		return "ambiguous"
	case KindInvalidJoinCondition:
		return "invalid join condition"
	case KindUnboundAggregate:
		return "unbound aggregate"
	case KindTypeError:
		return "type error"
	case KindUnknownFunction:
		return "unknown function"
	case KindViewDepthExceeded:
		return "view depth exceeded"
	default:
		return "unknown"
	}
}

// CompileError is the single error type produced by semantic analysis.
type CompileError struct {
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("compile error: %s", e.Kind)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// Is matches sentinel errors of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error regardless of its message.
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Errorf builds a CompileError of the given kind.
func Errorf(kind ErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound             = &CompileError{Kind: KindNotFound}
	ErrAmbiguous            = &CompileError{Kind: KindAmbiguous}
	ErrInvalidJoinCondition = &CompileError{Kind: KindInvalidJoinCondition}
	ErrUnboundAggregate     = &CompileError{Kind: KindUnboundAggregate}
	ErrTypeError            = &CompileError{Kind: KindTypeError}
	ErrUnknownFunction      = &CompileError{Kind: KindUnknownFunction}
	ErrViewDepthExceeded    = &CompileError{Kind: KindViewDepthExceeded}
)
