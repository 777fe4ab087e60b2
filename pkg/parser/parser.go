// Package parser turns legacy BigQuery SQL text into the untyped syntax tree
// of package ast.
//
// # Usage
//
//	sel, err := parser.Parse("SELECT value FROM table1 WHERE value > 3")
//	if err != nil {
//	    // handle *ParseError
//	}
//
// # Grammar Overview
//
//	select     → SELECT field_list [FROM from] [WHERE expr]
//	             [GROUP [EACH] BY id_list] [ORDER BY ordering_list] [LIMIT int]
//	field_list → field {"," field} [","]
//	field      → "*" | expr [[AS] ident]
//
// See each file for detailed grammar rules for that section.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// Parser parses a single SELECT statement.
type Parser struct {
	lexer  *Lexer
	token  token.Token // current token
	peek   token.Token // lookahead token
	peek2  token.Token // second lookahead token
	errors []error
}

// NewParser creates a new parser for the given SQL input.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql)}
	// Read three tokens to initialize current, peek, and peek2
	p.nextToken()
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses text as one SELECT statement. The first error wins.
func Parse(sql string) (*ast.Select, error) {
	p := NewParser(sql)
	sel := p.ParseSelect()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return sel, nil
}

// ParseSelect parses a statement followed by end of input.
func (p *Parser) ParseSelect() *ast.Select {
	sel := p.parseSelect()
	if len(p.errors) == 0 && !p.check(token.EOF) {
		p.addError(fmt.Sprintf(ErrUnexpectedInput, describe(p.token)))
	}
	return sel
}

// Errors returns every error collected so far.
func (p *Parser) Errors() []error {
	return p.errors
}

// ---------- Token Helpers ----------

// nextToken advances to the next token. ILLEGAL tokens are recorded as errors
// as soon as they become current.
func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
	if p.token.Type == token.ILLEGAL {
		p.addError(p.token.Literal)
	}
}

func (p *Parser) check(t token.TokenType) bool {
	return p.token.Type == t
}

func (p *Parser) checkPeek(t token.TokenType) bool {
	return p.peek.Type == t
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), t))
	return false
}

func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.token.Pos,
		Message: msg,
	})
}

// failed reports whether parsing has already gone wrong; callers unwind early.
func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// isClauseEnd reports whether the current token ends a comma list, which is
// what makes a trailing comma legal.
func (p *Parser) isClauseEnd() bool {
	switch p.token.Type {
	case token.EOF, token.RPAREN, token.FROM, token.WHERE, token.GROUP,
		token.ORDER, token.LIMIT, token.JOIN, token.LEFT, token.CROSS:
		return true
	}
	return false
}

func describe(tok token.Token) string {
	switch tok.Type {
	case token.EOF:
		return "end of input"
	case token.IDENT, token.NUMBER:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	case token.STRING:
		return "STRING"
	}
	return tok.Type.String()
}
