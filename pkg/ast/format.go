package ast

import (
	"strconv"
	"strings"
)

func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	default:
		return "?"
	}
}

func (c *ColumnID) String() string { return c.Name }

func (u *UnaryOp) String() string {
	switch u.Op {
	case "is_null":
		return "(" + u.Expr.String() + " IS NULL)"
	case "is_not_null":
		return "(" + u.Expr.String() + " IS NOT NULL)"
	case "not":
		return "(NOT " + u.Expr.String() + ")"
	default:
		return "(" + u.Op + u.Expr.String() + ")"
	}
}

func (b *BinaryOp) String() string {
	op := b.Op
	if op == "and" || op == "or" {
		op = strings.ToUpper(op)
	}
	return "(" + b.Left.String() + " " + op + " " + b.Right.String() + ")"
}

func (f *FuncCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}
