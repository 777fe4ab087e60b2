package parser

import (
	"fmt"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// FROM clause parsing: table ids, subqueries, joins, comma unions.
//
// Grammar:
//
//	from          → joined {"," joined} [","]      (2+ items: TableUnion)
//	joined        → primary_table { [LEFT [OUTER]] JOIN [EACH] primary_table ON expr
//	                              | CROSS JOIN primary_table }
//	primary_table → IDENT [[AS] IDENT] | "(" select ")" [[AS] IDENT]

func (p *Parser) parseFrom() ast.TableExpr {
	var tables []ast.TableExpr
	for {
		t := p.parseJoined()
		if t == nil {
			return nil
		}
		tables = append(tables, t)
		if !p.match(token.COMMA) || p.isClauseEnd() {
			break
		}
	}
	if len(tables) == 1 {
		return tables[0]
	}
	return &ast.TableUnion{Tables: tables}
}

func (p *Parser) parseJoined() ast.TableExpr {
	left := p.parsePrimaryTable()
	if left == nil {
		return nil
	}

	for {
		switch {
		case p.check(token.CROSS):
			p.nextToken()
			if !p.expect(token.JOIN) {
				return nil
			}
			right := p.parsePrimaryTable()
			if right == nil {
				return nil
			}
			left = &ast.CrossJoin{Left: left, Right: right}

		case p.check(token.JOIN), p.check(token.LEFT):
			leftOuter := p.match(token.LEFT)
			if leftOuter {
				p.match(token.OUTER)
			}
			if !p.expect(token.JOIN) {
				return nil
			}
			p.match(token.EACH)
			right := p.parsePrimaryTable()
			if right == nil || !p.expect(token.ON) {
				return nil
			}
			cond := p.parseExpression()
			if cond == nil {
				return nil
			}
			left = &ast.Join{Left: left, Right: right, Condition: cond, LeftOuter: leftOuter}

		default:
			return left
		}
	}
}

func (p *Parser) parsePrimaryTable() ast.TableExpr {
	switch p.token.Type {
	case token.IDENT:
		t := &ast.TableID{Name: p.token.Literal}
		p.nextToken()
		t.Alias = p.parseOptionalAlias()
		return t

	case token.LPAREN:
		p.nextToken()
		if !p.check(token.SELECT) {
			p.addError(fmt.Sprintf(ErrExpectedSubquery, describe(p.token)))
			return nil
		}
		sub := p.parseSelect()
		if sub == nil || !p.expect(token.RPAREN) {
			return nil
		}
		sub.Alias = p.parseOptionalAlias()
		return sub
	}

	p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), "table name or subquery"))
	return nil
}

// parseOptionalAlias parses [AS] IDENT and returns "" when there is none.
func (p *Parser) parseOptionalAlias() string {
	if p.match(token.AS) {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return ""
		}
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	if p.check(token.IDENT) {
		alias := p.token.Literal
		p.nextToken()
		return alias
	}
	return ""
}
