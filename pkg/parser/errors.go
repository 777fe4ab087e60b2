package parser

import (
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// ParseError represents a parsing error with position information.
type ParseError struct {
	Pos     token.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Common error messages
const (
	ErrUnexpectedToken    = "unexpected token %s, expected %s"
	ErrUnexpectedInput    = "unexpected %s after end of query"
	ErrUnterminatedString = "unterminated string literal"
	ErrUnterminatedName   = "unterminated bracketed name"
	ErrInvalidNumber      = "invalid number literal %q"
	ErrIllegalCharacter   = "illegal character %q"
	ErrInvalidUTF8        = "invalid UTF-8 byte 0x%02x"
	ErrExpectedExpression = "expected expression, got %s"
	ErrExpectedSubquery   = "expected SELECT after '(' in FROM clause, got %s"
	ErrTrailingArgComma   = "trailing comma is not allowed in function arguments"
	ErrInvalidLimit       = "LIMIT requires a non-negative integer, got %q"
)
