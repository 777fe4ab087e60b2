// Package core defines the shared language of tinyquery.
//
// This package contains:
//   - Column value types (Type)
//   - The compile error taxonomy (CompileError, ErrorKind)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// Every other package depends on core, not the reverse.
package core
