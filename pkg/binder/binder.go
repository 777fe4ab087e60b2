// Package binder turns a parsed query into a typed plan.
//
// The Compiler resolves every column against the catalog and the scopes of
// the query, type-checks every operator and function through a
// functions.Resolver, and decides how the query groups. Views are inlined by
// parsing and compiling their stored text.
//
// A Compiler is immutable after New and safe for concurrent use. State that
// belongs to one compilation, such as the chain of views being inlined, lives
// in a per-call session.
package binder

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/tinyquery/pkg/ast"
	"github.com/leapstack-labs/tinyquery/pkg/catalog"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
	"github.com/leapstack-labs/tinyquery/pkg/parser"
	"github.com/leapstack-labs/tinyquery/pkg/plan"
)

// DefaultMaxViewDepth bounds view inlining.
const DefaultMaxViewDepth = 32

// Compiler compiles queries against a catalog.
type Compiler struct {
	catalog      catalog.Catalog
	funcs        functions.Resolver
	logger       *slog.Logger
	maxViewDepth int
	parse        func(string) (*ast.Select, error)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithFunctions sets the function registry. The default is functions.Default().
func WithFunctions(r functions.Resolver) Option {
	return func(c *Compiler) { c.funcs = r }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithMaxViewDepth bounds how many views may be inlined inside each other.
func WithMaxViewDepth(depth int) Option {
	return func(c *Compiler) { c.maxViewDepth = depth }
}

// WithParser replaces the parser used for query and view text.
func WithParser(parse func(string) (*ast.Select, error)) Option {
	return func(c *Compiler) { c.parse = parse }
}

// New creates a Compiler over cat.
func New(cat catalog.Catalog, opts ...Option) *Compiler {
	c := &Compiler{
		catalog:      cat,
		funcs:        functions.Default(),
		logger:       slog.New(slog.DiscardHandler),
		maxViewDepth: DefaultMaxViewDepth,
		parse:        parser.Parse,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Compile parses and compiles text with the default registry.
func Compile(text string, cat catalog.Catalog) (*plan.Select, error) {
	return New(cat).Compile(text)
}

// Compile parses and compiles a query.
func (c *Compiler) Compile(text string) (*plan.Select, error) {
	tree, err := c.parse(text)
	if err != nil {
		return nil, err
	}
	return c.CompileSelect(tree)
}

// CompileSelect compiles a parsed query.
func (c *Compiler) CompileSelect(tree *ast.Select) (*plan.Select, error) {
	if tree == nil {
		return nil, fmt.Errorf("nil query")
	}
	s := &session{Compiler: c}
	sel, err := s.compileSelect(tree)
	if err != nil {
		c.logger.Debug("compile failed", "error", err)
		return nil, err
	}
	c.logger.Debug("compiled query",
		"fields", len(sel.Fields),
		"grouped", sel.GroupSet != nil,
		"scope", sel.Scope.String())
	return sel, nil
}

// DefineView compiles query against the Compiler's catalog and, when it
// compiles, stores it in mem as a view named name.
func (c *Compiler) DefineView(mem *catalog.Memory, name, query string) error {
	if _, err := c.Compile(query); err != nil {
		return fmt.Errorf("view %s: %w", name, err)
	}
	if err := mem.AddView(&catalog.View{Name: name, Query: query}); err != nil {
		return err
	}
	c.logger.Debug("defined view", "name", name)
	return nil
}

// session holds the state of a single compilation.
type session struct {
	*Compiler
	views []string // views being inlined, outermost first
}
