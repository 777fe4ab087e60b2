// Package token defines the lexical tokens of the legacy BigQuery dialect.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // token.TokenType reads better than token.Type at call sites
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL

	// Literals
	IDENT  // identifier, possibly dotted or bracketed: dataset.table, [a.b]
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello' or "hello"

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // =
	NE      // != or <>
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	COMMA   // ,
	LPAREN  // (
	RPAREN  // )

	// Keywords (alphabetical)
	AND
	AS
	ASC
	BY
	CROSS
	DESC
	EACH
	FALSE
	FROM
	GROUP
	IN
	IS
	JOIN
	LEFT
	LIMIT
	NOT
	NULL
	ON
	OR
	ORDER
	OUTER
	SELECT
	TRUE
	WHERE
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",

	PLUS:    "+",
	MINUS:   "-",
	STAR:    "*",
	SLASH:   "/",
	PERCENT: "%",
	EQ:      "=",
	NE:      "!=",
	LT:      "<",
	GT:      ">",
	LE:      "<=",
	GE:      ">=",
	COMMA:   ",",
	LPAREN:  "(",
	RPAREN:  ")",

	AND:    "AND",
	AS:     "AS",
	ASC:    "ASC",
	BY:     "BY",
	CROSS:  "CROSS",
	DESC:   "DESC",
	EACH:   "EACH",
	FALSE:  "FALSE",
	FROM:   "FROM",
	GROUP:  "GROUP",
	IN:     "IN",
	IS:     "IS",
	JOIN:   "JOIN",
	LEFT:   "LEFT",
	LIMIT:  "LIMIT",
	NOT:    "NOT",
	NULL:   "NULL",
	ON:     "ON",
	OR:     "OR",
	ORDER:  "ORDER",
	OUTER:  "OUTER",
	SELECT: "SELECT",
	TRUE:   "TRUE",
	WHERE:  "WHERE",
}

// keywords maps lowercase keyword strings to their token types.
var keywords = map[string]TokenType{
	"and":    AND,
	"as":     AS,
	"asc":    ASC,
	"by":     BY,
	"cross":  CROSS,
	"desc":   DESC,
	"each":   EACH,
	"false":  FALSE,
	"from":   FROM,
	"group":  GROUP,
	"in":     IN,
	"is":     IS,
	"join":   JOIN,
	"left":   LEFT,
	"limit":  LIMIT,
	"not":    NOT,
	"null":   NULL,
	"on":     ON,
	"or":     OR,
	"order":  ORDER,
	"outer":  OUTER,
	"select": SELECT,
	"true":   TRUE,
	"where":  WHERE,
}

// LookupIdent returns the keyword token type for a lowercase identifier,
// or IDENT when it is not a keyword.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= AND && t <= WHERE
}

// IsOperator returns true if the token type is an operator or punctuation.
func IsOperator(t TokenType) bool {
	return t >= PLUS && t <= RPAREN
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}
