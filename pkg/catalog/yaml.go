package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the YAML catalog document.
//
//	tables:
//	  - name: table1
//	    columns:
//	      - {name: value, type: INTEGER}
//	  - name: dataset.events
//	    schema_file: events.json   # BigQuery JSON schema
//	views:
//	  - name: big_values
//	    query: SELECT value FROM table1 WHERE value > 3
type File struct {
	Tables []TableSpec `yaml:"tables"`
	Views  []View      `yaml:"views"`
}

// TableSpec declares a table inline or through a schema file.
type TableSpec struct {
	Name       string   `yaml:"name"`
	Columns    []Column `yaml:"columns"`
	SchemaFile string   `yaml:"schema_file"`
}

// SchemaField is one field of a BigQuery JSON schema.
type SchemaField struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Mode string `yaml:"mode"`
}

// LoadFile reads a YAML catalog. Schema files resolve relative to it.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: catalog path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	mem, err := decode(bytes.NewReader(data), filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mem, nil
}

// Load reads a YAML catalog. Schema files resolve relative to the working
// directory.
func Load(r io.Reader) (*Memory, error) {
	return decode(r, ".")
}

func decode(r io.Reader, baseDir string) (*Memory, error) {
	var doc File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	mem := NewMemory()
	for _, spec := range doc.Tables {
		cols := spec.Columns
		if spec.SchemaFile != "" {
			if len(cols) > 0 {
				return nil, fmt.Errorf("table %s: columns and schema_file are exclusive", spec.Name)
			}
			path := spec.SchemaFile
			if !filepath.IsAbs(path) {
				path = filepath.Join(baseDir, path)
			}
			var err error
			if cols, err = LoadSchemaFile(path); err != nil {
				return nil, fmt.Errorf("table %s: %w", spec.Name, err)
			}
		}
		if err := mem.AddTable(&Table{Name: spec.Name, Columns: cols}); err != nil {
			return nil, err
		}
	}
	for _, v := range doc.Views {
		if err := mem.AddView(&View{Name: v.Name, Query: v.Query}); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

// LoadSchemaFile reads a BigQuery JSON schema file.
func LoadSchemaFile(path string) ([]Column, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: schema path comes from the catalog file
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema decodes a BigQuery JSON schema: either {"fields": [...]} or a
// bare field array, as written by `bq show --schema`.
func ParseSchema(data []byte) ([]Column, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("empty schema")
	}

	var fields []SchemaField
	root := node.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&fields); err != nil {
			return nil, fmt.Errorf("failed to parse schema: %w", err)
		}
	case yaml.MappingNode:
		var doc struct {
			Fields []SchemaField `yaml:"fields"`
		}
		if err := root.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to parse schema: %w", err)
		}
		fields = doc.Fields
	default:
		return nil, fmt.Errorf("schema must be an object or an array")
	}

	cols := make([]Column, 0, len(fields))
	for _, field := range fields {
		switch strings.ToUpper(field.Mode) {
		case "", "NULLABLE", "REQUIRED", "REPEATED":
		default:
			return nil, fmt.Errorf("field %s: unknown mode %q", field.Name, field.Mode)
		}
		var col Column
		col.Name = field.Name
		if err := col.Type.UnmarshalText([]byte(field.Type)); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		cols = append(cols, col)
	}
	return cols, nil
}
