package functions

import (
	"maps"
	"slices"

	"golang.org/x/text/cases"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Registry maps names to functions. It is immutable once built.
type Registry struct {
	Name string

	unary      map[string]Function
	binary     map[string]Function
	scalars    map[string]Function
	aggregates map[string]Function
	aliases    map[string]string
}

var _ Resolver = (*Registry)(nil)

// normalize folds case and follows aliases.
func (r *Registry) normalize(name string) string {
	folded := cases.Fold().String(name)
	if target, ok := r.aliases[folded]; ok {
		return target
	}
	return folded
}

// LookupFunction returns the scalar or aggregate function with the given
// name. Scalars win over aggregates of the same name.
func (r *Registry) LookupFunction(name string) (Function, error) {
	key := r.normalize(name)
	if f, ok := r.scalars[key]; ok {
		return f, nil
	}
	if f, ok := r.aggregates[key]; ok {
		return f, nil
	}
	return nil, core.Errorf(core.KindUnknownFunction, "unknown function: %s", name)
}

// LookupUnaryOperator returns the unary operator with the given name.
func (r *Registry) LookupUnaryOperator(name string) (Function, error) {
	if f, ok := r.unary[r.normalize(name)]; ok {
		return f, nil
	}
	return nil, core.Errorf(core.KindUnknownFunction, "unknown unary operator: %s", name)
}

// LookupBinaryOperator returns the binary operator with the given name.
func (r *Registry) LookupBinaryOperator(name string) (Function, error) {
	if f, ok := r.binary[r.normalize(name)]; ok {
		return f, nil
	}
	return nil, core.Errorf(core.KindUnknownFunction, "unknown binary operator: %s", name)
}

// IsAggregate reports whether name is an aggregate function.
func (r *Registry) IsAggregate(name string) bool {
	key := r.normalize(name)
	if _, ok := r.scalars[key]; ok {
		return false
	}
	_, ok := r.aggregates[key]
	return ok
}

// FunctionNames returns scalar and aggregate names, sorted.
func (r *Registry) FunctionNames() []string {
	names := slices.Collect(maps.Keys(r.scalars))
	for name := range r.aggregates {
		if _, dup := r.scalars[name]; !dup {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// AggregateNames returns the aggregate function names, sorted.
func (r *Registry) AggregateNames() []string {
	return slices.Sorted(maps.Keys(r.aggregates))
}

// Extend returns a builder seeded with a copy of this registry.
func (r *Registry) Extend(name string) *Builder {
	return &Builder{reg: r.clone(name)}
}

func (r *Registry) clone(name string) *Registry {
	return &Registry{
		Name:       name,
		unary:      maps.Clone(r.unary),
		binary:     maps.Clone(r.binary),
		scalars:    maps.Clone(r.scalars),
		aggregates: maps.Clone(r.aggregates),
		aliases:    maps.Clone(r.aliases),
	}
}

// Builder provides a fluent API for constructing registries.
type Builder struct {
	reg *Registry
}

// NewBuilder creates an empty registry builder.
func NewBuilder(name string) *Builder {
	return &Builder{
		reg: &Registry{
			Name:       name,
			unary:      make(map[string]Function),
			binary:     make(map[string]Function),
			scalars:    make(map[string]Function),
			aggregates: make(map[string]Function),
			aliases:    make(map[string]string),
		},
	}
}

func fold(name string) string {
	return cases.Fold().String(name)
}

// Unary adds unary operators.
func (b *Builder) Unary(fns ...Function) *Builder {
	for _, f := range fns {
		b.reg.unary[fold(f.Name())] = f
	}
	return b
}

// Binary adds binary operators.
func (b *Builder) Binary(fns ...Function) *Builder {
	for _, f := range fns {
		b.reg.binary[fold(f.Name())] = f
	}
	return b
}

// Scalars adds scalar functions, replacing any aggregate of the same name.
func (b *Builder) Scalars(fns ...Function) *Builder {
	for _, f := range fns {
		key := fold(f.Name())
		delete(b.reg.aggregates, key)
		b.reg.scalars[key] = f
	}
	return b
}

// Aggregates adds aggregate functions, replacing any scalar of the same name.
func (b *Builder) Aggregates(fns ...Function) *Builder {
	for _, f := range fns {
		key := fold(f.Name())
		delete(b.reg.scalars, key)
		b.reg.aggregates[key] = f
	}
	return b
}

// Aliases registers alternative spellings (alias -> canonical name).
func (b *Builder) Aliases(aliases map[string]string) *Builder {
	for alias, target := range aliases {
		b.reg.aliases[fold(alias)] = fold(target)
	}
	return b
}

// Modules adds the functions of loaded Starlark modules.
func (b *Builder) Modules(mods ...*Module) *Builder {
	for _, m := range mods {
		b.Scalars(m.Scalars...)
		b.Aggregates(m.Aggregates...)
	}
	return b
}

// Build returns the registry. The builder keeps no reference to it, so
// further builder calls do not affect the result.
func (b *Builder) Build() *Registry {
	return b.reg.clone(b.reg.Name)
}
