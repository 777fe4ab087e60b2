package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/tinyquery/pkg/core"
	"github.com/leapstack-labs/tinyquery/pkg/functions"
)

// sampleTypes are the argument types tried when describing a signature.
var sampleTypes = []core.Type{core.TypeInt, core.TypeFloat, core.TypeBool, core.TypeString}

// signatures lists the single-type argument lists of arity 0 to 2 that fn
// accepts, with their result types.
func signatures(fn functions.Function) []string {
	var out []string
	try := func(args ...core.Type) {
		res, err := fn.CheckTypes(args...)
		if err != nil {
			return
		}
		out = append(out, fmt.Sprintf("(%s) -> %s", functions.FormatTypes(args), res))
	}
	try()
	for _, a := range sampleTypes {
		try(a)
	}
	for _, a := range sampleTypes {
		try(a, a)
	}
	return out
}

// generateFunctionDocs writes the built-in function reference.
func generateFunctionDocs(outDir string) error {
	log.Printf("Generating function docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	reg := functions.Default()
	aggregates := reg.AggregateNames()

	w := NewMarkdownWriter()
	w.Frontmatter("Functions", "Built-in functions and their signatures")
	w.GeneratedMarker()

	w.Header(1, "Functions")
	w.Paragraph("Function names are case-insensitive. Signatures list the argument types each function accepts " +
		"when every argument has the same type; functions taking more or mixed arguments show none.")

	headers := []string{"Function", "Kind", "Signatures"}
	var rows [][]string
	for _, name := range reg.FunctionNames() {
		fn, err := reg.LookupFunction(name)
		if err != nil {
			return err
		}
		kind := "scalar"
		if slices.Contains(aggregates, name) {
			kind = "aggregate"
		}
		rows = append(rows, []string{InlineCode(name), kind, strings.Join(signatures(fn), "<br>")})
	}
	w.Table(headers, rows)

	w.Header(2, "Custom Functions")
	w.Paragraph("Each `.star` file in `functions_dir` registers extra functions. Every exported function is called " +
		"with the argument type names and returns the result type name; `fail()` rejects the arguments. " +
		"Names listed in `aggregates` are registered as aggregate functions.")
	w.CodeBlock("python", `aggregates = ["median"]

def strlen(t):
    if t != "STRING":
        fail("strlen expects a string, got " + t)
    return "INTEGER"

def median(t):
    return "FLOAT"`)

	filename := filepath.Join(outDir, "functions.md")
	log.Printf("  Generated functions.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
