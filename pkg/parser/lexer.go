package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// Lexer tokenizes legacy BigQuery SQL.
//
// Dotted names (dataset.table, t1.value) and bracketed names
// ([dataset.table]) come out as a single IDENT token.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0 // ASCII NUL = EOF
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar returns the next character without advancing.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPos() token.Position {
	return token.Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token. Lexical errors are reported as ILLEGAL
// tokens whose literal is the error message.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespaceAndComments()

	pos := l.currentPos()
	tok := token.Token{Pos: pos}

	switch l.ch {
	case 0:
		tok.Type = token.EOF
		return tok
	case '+':
		tok = l.single(token.PLUS, pos)
	case '-':
		tok = l.single(token.MINUS, pos)
	case '*':
		tok = l.single(token.STAR, pos)
	case '/':
		tok = l.single(token.SLASH, pos)
	case '%':
		tok = l.single(token.PERCENT, pos)
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.EQ, Literal: "==", Pos: pos}
		} else {
			tok = l.single(token.EQ, pos)
		}
	case '<':
		switch l.peekChar() {
		case '=':
			l.readChar()
			tok = token.Token{Type: token.LE, Literal: "<=", Pos: pos}
		case '>':
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "<>", Pos: pos}
		default:
			tok = l.single(token.LT, pos)
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.GE, Literal: ">=", Pos: pos}
		} else {
			tok = l.single(token.GT, pos)
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok = token.Token{Type: token.NE, Literal: "!=", Pos: pos}
		} else {
			tok = l.illegal(fmt.Sprintf(ErrIllegalCharacter, l.ch), pos)
		}
	case ',':
		tok = l.single(token.COMMA, pos)
	case '(':
		tok = l.single(token.LPAREN, pos)
	case ')':
		tok = l.single(token.RPAREN, pos)
	case '\'', '"':
		return l.readString(pos)
	case '[':
		return l.readBracketedName(pos)
	default:
		switch {
		case isLetter(l.ch) || l.ch == '_':
			name := l.readName()
			tok.Type = token.IDENT
			if !strings.Contains(name, ".") {
				tok.Type = token.LookupIdent(strings.ToLower(name))
			}
			tok.Literal = name
			return tok
		case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
			tok.Type = token.NUMBER
			tok.Literal = l.readNumber()
			return tok
		case l.ch >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			if r == utf8.RuneError && size <= 1 {
				tok = l.illegal(fmt.Sprintf(ErrInvalidUTF8, l.ch), pos)
			} else {
				tok = l.illegal(fmt.Sprintf(ErrIllegalCharacter, r), pos)
			}
			for i := 1; i < size; i++ {
				l.readChar()
			}
		default:
			tok = l.illegal(fmt.Sprintf(ErrIllegalCharacter, l.ch), pos)
		}
	}

	l.readChar()
	return tok
}

func (l *Lexer) single(t token.TokenType, pos token.Position) token.Token {
	return token.Token{Type: t, Literal: string(l.ch), Pos: pos}
}

func (l *Lexer) illegal(msg string, pos token.Position) token.Token {
	return token.Token{Type: token.ILLEGAL, Literal: msg, Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, `--` and `#` line comments
// and `/* */` block comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if (l.ch == '-' && l.peekChar() == '-') || l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar() // skip '/'
			l.readChar() // skip '*'
			for l.ch != 0 {
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
			continue
		}

		break
	}
}

// readString reads a single- or double-quoted string literal. Backslash
// escapes the next character; \n and \t map to newline and tab.
func (l *Lexer) readString(pos token.Position) token.Token {
	quote := l.ch
	l.readChar() // skip opening quote

	var result strings.Builder
	for {
		switch l.ch {
		case 0, '\n':
			return l.illegal(ErrUnterminatedString, pos)
		case quote:
			l.readChar() // skip closing quote
			return token.Token{Type: token.STRING, Literal: result.String(), Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 0:
				return l.illegal(ErrUnterminatedString, pos)
			case 'n':
				result.WriteByte('\n')
			case 't':
				result.WriteByte('\t')
			default:
				result.WriteByte(l.ch)
			}
			l.readChar()
		default:
			result.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readBracketedName reads [name] and returns its contents as an IDENT.
func (l *Lexer) readBracketedName(pos token.Position) token.Token {
	l.readChar() // skip '['
	start := l.pos
	for l.ch != ']' {
		if l.ch == 0 || l.ch == '\n' {
			return l.illegal(ErrUnterminatedName, pos)
		}
		l.readChar()
	}
	name := l.input[start:l.pos]
	l.readChar() // skip ']'
	return token.Token{Type: token.IDENT, Literal: name, Pos: pos}
}

// readName reads an identifier and any `.part` suffixes.
func (l *Lexer) readName() string {
	start := l.pos
	for {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		next := l.peekChar()
		if l.ch != '.' || !(isLetter(next) || isDigit(next) || next == '_') {
			break
		}
		l.readChar() // skip '.'
	}
	return l.input[start:l.pos]
}

// readNumber reads a numeric literal (integer, decimal, or scientific).
func (l *Lexer) readNumber() string {
	start := l.pos

	for isDigit(l.ch) {
		l.readChar()
	}

	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // skip '.'
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	// Exponent part (e.g., 1e10, 1E-5)
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}

	return l.input[start:l.pos]
}

// isLetter reports ASCII letters only; names are not Unicode-aware.
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with EOF.
func Tokenize(input string) []token.Token {
	l := NewLexer(input)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}
