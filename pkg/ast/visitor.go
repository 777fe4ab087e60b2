package ast

import "fmt"

// ExprVisitor handles every expression variant.
type ExprVisitor[T any] interface {
	VisitLiteral(*Literal) (T, error)
	VisitColumnID(*ColumnID) (T, error)
	VisitUnaryOp(*UnaryOp) (T, error)
	VisitBinaryOp(*BinaryOp) (T, error)
	VisitFuncCall(*FuncCall) (T, error)
}

// TableVisitor handles every table expression variant.
type TableVisitor[T any] interface {
	VisitTableID(*TableID) (T, error)
	VisitTableUnion(*TableUnion) (T, error)
	VisitJoin(*Join) (T, error)
	VisitCrossJoin(*CrossJoin) (T, error)
	VisitSelect(*Select) (T, error)
}

// AcceptExpr dispatches e to the matching visitor method.
func AcceptExpr[T any](e Expr, v ExprVisitor[T]) (T, error) {
	switch n := e.(type) {
	case *Literal:
		return v.VisitLiteral(n)
	case *ColumnID:
		return v.VisitColumnID(n)
	case *UnaryOp:
		return v.VisitUnaryOp(n)
	case *BinaryOp:
		return v.VisitBinaryOp(n)
	case *FuncCall:
		return v.VisitFuncCall(n)
	default:
		var zero T
		return zero, fmt.Errorf("unexpected expression %T", e)
	}
}

// AcceptTable dispatches t to the matching visitor method.
func AcceptTable[T any](t TableExpr, v TableVisitor[T]) (T, error) {
	switch n := t.(type) {
	case *TableID:
		return v.VisitTableID(n)
	case *TableUnion:
		return v.VisitTableUnion(n)
	case *Join:
		return v.VisitJoin(n)
	case *CrossJoin:
		return v.VisitCrossJoin(n)
	case *Select:
		return v.VisitSelect(n)
	default:
		var zero T
		return zero, fmt.Errorf("unexpected table expression %T", t)
	}
}

// Inspect walks an expression depth-first, calling fn for every node.
// Children are skipped when fn returns false.
func Inspect(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch n := e.(type) {
	case *UnaryOp:
		Inspect(n.Expr, fn)
	case *BinaryOp:
		Inspect(n.Left, fn)
		Inspect(n.Right, fn)
	case *FuncCall:
		for _, arg := range n.Args {
			Inspect(arg, fn)
		}
	}
}
