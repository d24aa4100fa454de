package value

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// typeAliases maps accepted type spellings onto their normalized names.
var typeAliases = map[string]string{
	"str":     "string",
	"string":  "string",
	"int":     "int",
	"float":   "double",
	"double":  "double",
	"bool":    "boolean",
	"boolean": "boolean",
}

// normalizeType resolves a type token to its canonical name.
func normalizeType(token string) (string, error) {
	normalized, ok := typeAliases[strings.ToLower(strings.TrimSpace(token))]
	if !ok {
		return "", fmt.Errorf("unsupported type %q (supported: str, string, int, float, double, bool, boolean)", token)
	}
	return normalized, nil
}

// ctyTypeFor maps a normalized type name onto its cty representation. Both
// int and double map to cty.Number; integer-ness is checked separately.
func ctyTypeFor(normalized string) cty.Type {
	switch normalized {
	case "string":
		return cty.String
	case "boolean":
		return cty.Bool
	default: // int, double
		return cty.Number
	}
}

// Column is a single column declaration of a table schema.
type Column struct {
	Name string
	Type string
}

// Schema is a parsed consumer-side expectation for one variable: either a
// scalar type or an ordered column list for tabular values.
type Schema struct {
	scalar  string
	columns []Column
}

// ParseSchema parses a schema string. A bare type token ("double") yields a
// scalar schema; a comma-separated "column:type" list yields a table schema.
func ParseSchema(s string) (*Schema, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("schema string must not be empty")
	}

	if !strings.Contains(trimmed, ":") {
		normalized, err := normalizeType(trimmed)
		if err != nil {
			return nil, err
		}
		return &Schema{scalar: normalized}, nil
	}

	var columns []Column
	for _, colDef := range strings.Split(trimmed, ",") {
		colDef = strings.TrimSpace(colDef)
		name, typeToken, ok := strings.Cut(colDef, ":")
		if !ok {
			return nil, fmt.Errorf("column definition %q must use the name:type form", colDef)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("column definition %q has an empty name", colDef)
		}
		normalized, err := normalizeType(typeToken)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		columns = append(columns, Column{Name: name, Type: normalized})
	}
	return &Schema{columns: columns}, nil
}

// IsTable reports whether the schema describes tabular data.
func (s *Schema) IsTable() bool {
	return len(s.columns) > 0
}

// Columns returns the declared columns of a table schema, in declaration order.
func (s *Schema) Columns() []Column {
	return s.columns
}

// String renders the schema back into its string form.
func (s *Schema) String() string {
	if !s.IsTable() {
		return s.scalar
	}
	parts := make([]string, 0, len(s.columns))
	for _, col := range s.columns {
		parts = append(parts, col.Name+":"+col.Type)
	}
	return strings.Join(parts, ",")
}
