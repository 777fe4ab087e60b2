package parser

import (
	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// Expression parsing using a Pratt parser.
//
// Precedence levels:
//
//	precedenceOr         = 1
//	precedenceAnd        = 2
//	precedenceNot        = 3
//	precedenceComparison = 4  (=, !=, <>, <, >, <=, >=, IS [NOT] NULL, [NOT] IN)
//	precedenceAddition   = 5  (+, -)
//	precedenceMultiply   = 6  (*, /, %)
//	precedenceUnary      = 7  (-)
const (
	precedenceNone = iota
	precedenceOr
	precedenceAnd
	precedenceNot
	precedenceComparison
	precedenceAddition
	precedenceMultiply
	precedenceUnary
)

// binaryOps maps infix tokens to the operator names the function registry
// knows them by.
var binaryOps = map[token.TokenType]string{
	token.OR:      "or",
	token.AND:     "and",
	token.EQ:      "=",
	token.NE:      "!=",
	token.LT:      "<",
	token.GT:      ">",
	token.LE:      "<=",
	token.GE:      ">=",
	token.PLUS:    "+",
	token.MINUS:   "-",
	token.STAR:    "*",
	token.SLASH:   "/",
	token.PERCENT: "%",
}

func (p *Parser) parseExpression() ast.Expr {
	return p.parseExpressionWithPrecedence(precedenceNone + 1)
}

// parseExpressionWithPrecedence parses operators binding at least as tightly
// as minPrecedence. All binary operators are left-associative.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) ast.Expr {
	left := p.parsePrefixExpr()
	if left == nil {
		return nil
	}

	for {
		prec := p.infixPrecedence()
		if prec == precedenceNone || prec < minPrecedence {
			break
		}

		left = p.parseInfixExpr(left, prec)
		if left == nil {
			break
		}
	}

	return left
}

func (p *Parser) parsePrefixExpr() ast.Expr {
	switch p.token.Type {
	case token.NOT:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceNot)
		if expr == nil {
			return nil
		}
		return &ast.UnaryOp{Op: "not", Expr: expr}

	case token.MINUS:
		p.nextToken()
		expr := p.parseExpressionWithPrecedence(precedenceUnary)
		if expr == nil {
			return nil
		}
		return &ast.UnaryOp{Op: "-", Expr: expr}

	default:
		return p.parsePrimary()
	}
}

func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case token.OR:
		return precedenceOr
	case token.AND:
		return precedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE, token.IS, token.IN:
		return precedenceComparison
	case token.NOT:
		// Only NOT IN is an infix form.
		if p.checkPeek(token.IN) {
			return precedenceComparison
		}
		return precedenceNone
	case token.PLUS, token.MINUS:
		return precedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return precedenceMultiply
	}
	return precedenceNone
}

func (p *Parser) parseInfixExpr(left ast.Expr, prec int) ast.Expr {
	switch p.token.Type {
	case token.IS:
		return p.parseIsNull(left)
	case token.IN:
		p.nextToken()
		return p.parseInList(left)
	case token.NOT:
		p.nextToken() // NOT
		p.nextToken() // IN
		in := p.parseInList(left)
		if in == nil {
			return nil
		}
		return &ast.UnaryOp{Op: "not", Expr: in}
	}

	op := binaryOps[p.token.Type]
	p.nextToken()
	right := p.parseExpressionWithPrecedence(prec + 1)
	if right == nil {
		return nil
	}
	return &ast.BinaryOp{Op: op, Left: left, Right: right}
}

// parseIsNull parses IS [NOT] NULL.
func (p *Parser) parseIsNull(left ast.Expr) ast.Expr {
	p.nextToken() // IS
	op := "is_null"
	if p.match(token.NOT) {
		op = "is_not_null"
	}
	if !p.expect(token.NULL) {
		return nil
	}
	return &ast.UnaryOp{Op: op, Expr: left}
}

// parseInList parses "(" expr {"," expr} [","] ")" after IN and builds the
// call in(left, items...).
func (p *Parser) parseInList(left ast.Expr) ast.Expr {
	if !p.expect(token.LPAREN) {
		return nil
	}
	args := []ast.Expr{left}
	for !p.check(token.RPAREN) {
		item := p.parseExpression()
		if item == nil {
			return nil
		}
		args = append(args, item)
		if !p.match(token.COMMA) {
			break
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return &ast.FuncCall{Name: "in", Args: args}
}
