package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// Primary expression parsing: literals, column ids, function calls.
//
// Grammar:
//
//	primary   → literal | column_id | func_call | "(" expr ")"
//	literal   → NUMBER | STRING | TRUE | FALSE | NULL
//	column_id → IDENT                          (dotted: t1.value)
//	func_call → IDENT "(" [expr {"," expr}] ")"
//	          | COUNT "(" {"("} "*" {")"} ")"  (becomes count(1))

func (p *Parser) parsePrimary() ast.Expr {
	switch p.token.Type {
	case token.NUMBER:
		return p.parseNumber()

	case token.STRING:
		lit := &ast.Literal{Value: p.token.Literal}
		p.nextToken()
		return lit

	case token.TRUE:
		p.nextToken()
		return &ast.Literal{Value: true}

	case token.FALSE:
		p.nextToken()
		return &ast.Literal{Value: false}

	case token.NULL:
		p.nextToken()
		return &ast.Literal{Value: nil}

	case token.IDENT:
		if p.checkPeek(token.LPAREN) {
			return p.parseFuncCall()
		}
		col := &ast.ColumnID{Name: p.token.Literal}
		p.nextToken()
		return col

	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		if expr == nil {
			return nil
		}
		if !p.expect(token.RPAREN) {
			return nil
		}
		return expr
	}

	if !p.failed() {
		p.addError(fmt.Sprintf(ErrExpectedExpression, describe(p.token)))
	}
	return nil
}

// parseNumber parses an integer as int64 and anything with a fraction or
// exponent as float64.
func (p *Parser) parseNumber() ast.Expr {
	text := p.token.Literal
	var value any
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.addError(fmt.Sprintf(ErrInvalidNumber, text))
			return nil
		}
		value = f
	} else {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf(ErrInvalidNumber, text))
			return nil
		}
		value = n
	}
	p.nextToken()
	return &ast.Literal{Value: value}
}

func (p *Parser) parseFuncCall() ast.Expr {
	name := strings.ToLower(p.token.Literal)
	p.nextToken() // name
	p.nextToken() // (

	call := &ast.FuncCall{Name: name, Args: []ast.Expr{}}
	if name == "count" && p.parseStarArg() {
		call.Args = append(call.Args, &ast.Literal{Value: int64(1)})
		if !p.expect(token.RPAREN) {
			return nil
		}
		return call
	}

	for !p.check(token.RPAREN) {
		arg := p.parseExpression()
		if arg == nil {
			return nil
		}
		call.Args = append(call.Args, arg)
		if !p.match(token.COMMA) {
			break
		}
		if p.check(token.RPAREN) {
			p.addError(ErrTrailingArgComma)
			return nil
		}
	}
	if !p.expect(token.RPAREN) {
		return nil
	}
	return call
}

// parseStarArg consumes `*` wrapped in any number of balanced parentheses.
// On anything else it rewinds and reports false.
func (p *Parser) parseStarArg() bool {
	saved := p.save()
	depth := 0
	for p.match(token.LPAREN) {
		depth++
	}
	if !p.match(token.STAR) {
		p.restore(saved)
		return false
	}
	for range depth {
		if !p.match(token.RPAREN) {
			p.restore(saved)
			return false
		}
	}
	return true
}

type parserState struct {
	lexer              Lexer
	token, peek, peek2 token.Token
	errorCount         int
}

func (p *Parser) save() parserState {
	return parserState{
		lexer:      *p.lexer,
		token:      p.token,
		peek:       p.peek,
		peek2:      p.peek2,
		errorCount: len(p.errors),
	}
}

func (p *Parser) restore(s parserState) {
	*p.lexer = s.lexer
	p.token, p.peek, p.peek2 = s.token, s.peek, s.peek2
	p.errors = p.errors[:s.errorCount]
}
