package binder

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// exprCompiler compiles expressions against one scope.
type exprCompiler struct {
	s     *session
	scope *plan.Scope
}

var _ ast.ExprVisitor[plan.Expr] = exprCompiler{}

func (s *session) compileExpr(e ast.Expr, scope *plan.Scope) (plan.Expr, error) {
	return ast.AcceptExpr[plan.Expr](e, exprCompiler{s: s, scope: scope})
}

func (ec exprCompiler) VisitLiteral(l *ast.Literal) (plan.Expr, error) {
	lit, err := plan.NewLiteral(l.Value)
	if err != nil {
		return nil, err
	}
	return lit, nil
}

func (ec exprCompiler) VisitColumnID(c *ast.ColumnID) (plan.Expr, error) {
	ref, err := ec.scope.Resolve(c.Name)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (ec exprCompiler) VisitUnaryOp(u *ast.UnaryOp) (plan.Expr, error) {
	fn, err := ec.s.funcs.LookupUnaryOperator(u.Op)
	if err != nil {
		return nil, err
	}
	arg, err := ec.s.compileExpr(u.Expr, ec.scope)
	if err != nil {
		return nil, err
	}
	t, err := checkTypes(fn, u.Op, []plan.Expr{arg})
	if err != nil {
		return nil, err
	}
	return &plan.FunctionCall{Func: fn, Args: []plan.Expr{arg}, Type: t}, nil
}

func (ec exprCompiler) VisitBinaryOp(b *ast.BinaryOp) (plan.Expr, error) {
	fn, err := ec.s.funcs.LookupBinaryOperator(b.Op)
	if err != nil {
		return nil, err
	}
	left, err := ec.s.compileExpr(b.Left, ec.scope)
	if err != nil {
		return nil, err
	}
	right, err := ec.s.compileExpr(b.Right, ec.scope)
	if err != nil {
		return nil, err
	}
	args := []plan.Expr{left, right}
	t, err := checkTypes(fn, b.Op, args)
	if err != nil {
		return nil, err
	}
	return &plan.FunctionCall{Func: fn, Args: args, Type: t}, nil
}

// VisitFuncCall compiles a call. The arguments of an innermost aggregate see
// the aggregate scope instead of the current one.
func (ec exprCompiler) VisitFuncCall(f *ast.FuncCall) (plan.Expr, error) {
	argScope := ec.scope
	aggregate := ec.s.isInnermostAggregate(f)
	if aggregate {
		argScope = ec.scope.Aggregate()
		if argScope == nil {
			return nil, core.Errorf(core.KindUnboundAggregate, "unexpected aggregate function %s", f.Name)
		}
	}

	fn, err := ec.s.funcs.LookupFunction(f.Name)
	if err != nil {
		return nil, err
	}
	args := make([]plan.Expr, len(f.Args))
	for i, a := range f.Args {
		if args[i], err = ec.s.compileExpr(a, argScope); err != nil {
			return nil, err
		}
	}
	t, err := checkTypes(fn, f.Name, args)
	if err != nil {
		return nil, err
	}
	if aggregate {
		return &plan.AggregateFunctionCall{Func: fn, Args: args, Type: t}, nil
	}
	return &plan.FunctionCall{Func: fn, Args: args, Type: t}, nil
}

func checkTypes(fn functions.Function, name string, args []plan.Expr) (core.Type, error) {
	types := make([]core.Type, len(args))
	for i, a := range args {
		types[i] = a.ResultType()
	}
	t, err := fn.CheckTypes(types...)
	if err == nil {
		return t, nil
	}
	msg := fmt.Sprintf("invalid types for function %s: %s", name, functions.FormatTypes(types))
	var sig *functions.SignatureError
	if errors.As(err, &sig) && sig.Reason != "" {
		msg += " (" + sig.Reason + ")"
	}
	return core.TypeInvalid, core.Errorf(core.KindTypeError, "%s", msg)
}

// containsAggregate reports whether e calls an aggregate anywhere.
func (s *session) containsAggregate(e ast.Expr) bool {
	found := false
	ast.Inspect(e, func(n ast.Expr) bool {
		if f, ok := n.(*ast.FuncCall); ok && s.funcs.IsAggregate(f.Name) {
			found = true
		}
		return !found
	})
	return found
}

// isInnermostAggregate reports whether f is an aggregate none of whose
// arguments aggregate.
func (s *session) isInnermostAggregate(f *ast.FuncCall) bool {
	if !s.funcs.IsAggregate(f.Name) {
		return false
	}
	for _, a := range f.Args {
		if s.containsAggregate(a) {
			return false
		}
	}
	return true
}
