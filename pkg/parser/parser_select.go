package parser

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/token"
)

// SELECT statement parsing.
//
// Grammar:
//
//	select        → SELECT field_list [FROM from] [WHERE expr]
//	                [GROUP [EACH] BY id_list] [ORDER BY ordering_list] [LIMIT NUMBER]
//	id_list       → IDENT {"," IDENT} [","]
//	ordering_list → IDENT [ASC|DESC] {"," IDENT [ASC|DESC]} [","]

func (p *Parser) parseSelect() *ast.Select {
	if !p.expect(token.SELECT) {
		return nil
	}

	sel := &ast.Select{}
	sel.Fields = p.parseFieldList()
	if p.failed() {
		return nil
	}

	if p.match(token.FROM) {
		sel.From = p.parseFrom()
		if sel.From == nil {
			return nil
		}
	}

	if p.match(token.WHERE) {
		sel.Where = p.parseExpression()
		if sel.Where == nil {
			return nil
		}
	}

	if p.match(token.GROUP) {
		p.match(token.EACH)
		if !p.expect(token.BY) {
			return nil
		}
		sel.GroupBy = p.parseColumnList()
		if sel.GroupBy == nil {
			return nil
		}
	}

	if p.match(token.ORDER) {
		if !p.expect(token.BY) {
			return nil
		}
		sel.OrderBy = p.parseOrderingList()
		if sel.OrderBy == nil {
			return nil
		}
	}

	if p.match(token.LIMIT) {
		if !p.check(token.NUMBER) {
			p.addError(fmt.Sprintf(ErrInvalidLimit, p.token.Literal))
			return nil
		}
		n, err := strconv.ParseInt(p.token.Literal, 10, 64)
		if err != nil || n < 0 {
			p.addError(fmt.Sprintf(ErrInvalidLimit, p.token.Literal))
			return nil
		}
		p.nextToken()
		sel.Limit = &n
	}

	return sel
}

func (p *Parser) parseFieldList() []ast.SelectItem {
	var items []ast.SelectItem
	for {
		item := p.parseField()
		if item == nil {
			return nil
		}
		items = append(items, item)
		if !p.match(token.COMMA) || p.isClauseEnd() {
			return items
		}
	}
}

func (p *Parser) parseField() ast.SelectItem {
	if p.match(token.STAR) {
		return &ast.Star{}
	}
	expr := p.parseExpression()
	if expr == nil {
		return nil
	}
	return &ast.SelectField{Expr: expr, Alias: p.parseOptionalAlias()}
}

func (p *Parser) parseColumnList() []*ast.ColumnID {
	var cols []*ast.ColumnID
	for {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return nil
		}
		cols = append(cols, &ast.ColumnID{Name: p.token.Literal})
		p.nextToken()
		if !p.match(token.COMMA) || p.isClauseEnd() {
			return cols
		}
	}
}

func (p *Parser) parseOrderingList() []*ast.Ordering {
	var orderings []*ast.Ordering
	for {
		if !p.check(token.IDENT) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, describe(p.token), token.IDENT))
			return nil
		}
		o := &ast.Ordering{Column: &ast.ColumnID{Name: p.token.Literal}, Ascending: true}
		p.nextToken()
		if p.match(token.DESC) {
			o.Ascending = false
		} else {
			p.match(token.ASC)
		}
		orderings = append(orderings, o)
		if !p.match(token.COMMA) || p.isClauseEnd() {
			return orderings
		}
	}
}
