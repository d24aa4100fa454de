package value

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// SchemaMismatchError reports that a value offered to a consumer did not
// satisfy the consumer's declared schema for that variable.
type SchemaMismatchError struct {
	Variable string
	Want     string
	Err      error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("variable %q does not match expected schema %q: %v", e.Variable, e.Want, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// TypeCoercionError reports that a single cell of a table could not be
// coerced to its declared column type. The failure is local to that value.
type TypeCoercionError struct {
	Column string
	Row    int
	Want   string
	Err    error
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("row %d column %q is not coercible to %s: %v", e.Row, e.Column, e.Want, e.Err)
}

func (e *TypeCoercionError) Unwrap() error { return e.Err }

// Validate checks v against the schema. Scalar schemas require a matching
// runtime kind; table schemas require every declared column to be present
// (extra columns are tolerated) with per-column values coercible to the
// declared type. The returned error explains the first violation found.
func (s *Schema) Validate(v cty.Value) error {
	if s.IsTable() {
		return s.validateTable(v)
	}
	return s.validateScalar(v)
}

func (s *Schema) validateScalar(v cty.Value) error {
	kind := KindOf(v)
	if kind != KindScalar {
		return fmt.Errorf("expected a %s scalar, got %s", s.scalar, kind)
	}
	return checkScalar(v, s.scalar)
}

func (s *Schema) validateTable(v cty.Value) error {
	kind := KindOf(v)
	if kind != KindTable {
		return fmt.Errorf("expected a table, got %s", kind)
	}

	row := 0
	for it := v.ElementIterator(); it.Next(); {
		_, rowVal := it.Element()
		attrs := rowVal.Type().AttributeTypes()
		for _, col := range s.columns {
			if _, ok := attrs[col.Name]; !ok {
				return fmt.Errorf("row %d is missing column %q", row, col.Name)
			}
			cell := rowVal.GetAttr(col.Name)
			if err := coerceCell(cell, col.Type); err != nil {
				return &TypeCoercionError{Column: col.Name, Row: row, Want: col.Type, Err: err}
			}
		}
		row++
	}
	return nil
}

// checkScalar verifies that a primitive value matches a normalized type name.
func checkScalar(v cty.Value, want string) error {
	got := v.Type()
	wantType := ctyTypeFor(want)
	if !got.Equals(wantType) {
		return fmt.Errorf("expected %s, got %s", want, got.FriendlyName())
	}
	if want == "int" && !isIntegral(v) {
		return fmt.Errorf("expected int, got a fractional number")
	}
	return nil
}

// coerceCell verifies that a single table cell converts to the column type.
// Null cells pass, matching how sparse series gaps appear in tables.
func coerceCell(cell cty.Value, want string) error {
	if cell.IsNull() {
		return nil
	}
	converted, err := convert.Convert(cell, ctyTypeFor(want))
	if err != nil {
		return err
	}
	if want == "int" && !isIntegral(converted) {
		return fmt.Errorf("value has a fractional part")
	}
	return nil
}

func isIntegral(v cty.Value) bool {
	if v.IsNull() || !v.Type().Equals(cty.Number) {
		return false
	}
	bf := v.AsBigFloat()
	return bf.IsInt()
}
