package core

import (
	"fmt"
	"strings"
)

// Type is the value type of a column or expression.
type Type int

// Column value types. TypeNone is the type of the null literal.
const (
	TypeInvalid Type = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeString
	TypeNone
)

// String returns the BigQuery name of the type.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeBool:
		return "BOOLEAN"
	case TypeString:
		return "STRING"
	case TypeNone:
		return "NONETYPE"
	default:
		return "INVALID"
	}
}

// IsNumeric reports whether arithmetic accepts the type.
func (t Type) IsNumeric() bool {
	return t == TypeInt || t == TypeFloat
}

// ParseType converts a schema type name to a Type.
// Names are case-insensitive; the standard SQL spellings are accepted too.
func ParseType(s string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INTEGER", "INT", "INT64":
		return TypeInt, nil
	case "FLOAT", "FLOAT64":
		return TypeFloat, nil
	case "BOOLEAN", "BOOL":
		return TypeBool, nil
	case "STRING":
		return TypeString, nil
	case "NONETYPE":
		return TypeNone, nil
	default:
		return TypeInvalid, fmt.Errorf("unknown column type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Type) MarshalText() ([]byte, error) {
	if t == TypeInvalid {
		return nil, fmt.Errorf("cannot marshal invalid type")
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
