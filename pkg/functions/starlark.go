package functions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/leapstack-labs/tinyquery/pkg/core"
)

// Module is a .star file of user-defined function signatures.
//
// Every exported callable becomes a function. It is called with the argument
// type names ("INTEGER", "STRING", ...) and must return a type name; fail()
// rejects the arguments. Names listed in an exported `aggregates` list are
// registered as aggregates, the rest as scalars.
type Module struct {
	Path       string
	Scalars    []Function
	Aggregates []Function
}

// LoadError represents an error loading a function file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("functions/%s: %s", filepath.Base(e.File), e.Message)
}

// LoadStarlarkDir loads every .star file in dir, in name order. A missing
// directory yields no modules.
func LoadStarlarkDir(dir string) ([]*Module, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access functions directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("functions path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan functions directory: %w", err)
	}
	sort.Strings(files)

	var modules []*Module
	for _, file := range files {
		m, err := LoadStarlarkFile(file)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// LoadStarlarkFile executes one .star file and collects its functions.
func LoadStarlarkFile(path string) (*Module, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}

	thread := &starlark.Thread{
		Name:  "load:" + filepath.Base(path),
		Print: func(_ *starlark.Thread, _ string) {},
	}
	globals, err := starlark.ExecFile(thread, path, content, nil) //nolint:staticcheck // SA1019: ExecFileOptions migration pending
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}
	// Frozen values are safe to call from concurrent compilations.
	globals.Freeze()

	aggregates, err := aggregateNames(globals)
	if err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}

	m := &Module{Path: path}
	for _, name := range globals.Keys() {
		if strings.HasPrefix(name, "_") || name == "aggregates" {
			continue
		}
		callable, ok := globals[name].(starlark.Callable)
		if !ok {
			continue
		}
		fn := &starlarkFunc{name: name, fn: callable}
		if aggregates[name] {
			m.Aggregates = append(m.Aggregates, fn)
			delete(aggregates, name)
		} else {
			m.Scalars = append(m.Scalars, fn)
		}
	}
	for name := range aggregates {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("aggregate %q is not a function", name)}
	}
	return m, nil
}

func aggregateNames(globals starlark.StringDict) (map[string]bool, error) {
	names := make(map[string]bool)
	v, ok := globals["aggregates"]
	if !ok {
		return names, nil
	}
	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("aggregates must be a list of names, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()
	var item starlark.Value
	for iter.Next(&item) {
		s, ok := starlark.AsString(item)
		if !ok {
			return nil, fmt.Errorf("aggregates must contain strings, got %s", item.Type())
		}
		names[s] = true
	}
	return names, nil
}

type starlarkFunc struct {
	name string
	fn   starlark.Callable
}

func (f *starlarkFunc) Name() string { return f.name }

func (f *starlarkFunc) CheckTypes(args ...core.Type) (core.Type, error) {
	thread := &starlark.Thread{
		Name:  "check:" + f.name,
		Print: func(_ *starlark.Thread, _ string) {},
	}
	tuple := make(starlark.Tuple, len(args))
	for i, t := range args {
		tuple[i] = starlark.String(t.String())
	}

	result, err := starlark.Call(thread, f.fn, tuple, nil)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return core.TypeInvalid, reject(f.name, args, "%s", evalErr.Msg)
		}
		return core.TypeInvalid, reject(f.name, args, "%v", err)
	}

	s, ok := starlark.AsString(result)
	if !ok {
		return core.TypeInvalid, reject(f.name, args, "signature returned %s, want a type name", result.Type())
	}
	t, err := core.ParseType(s)
	if err != nil {
		return core.TypeInvalid, reject(f.name, args, "%v", err)
	}
	return t, nil
}
