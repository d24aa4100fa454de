package value

import (
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the engine-level classification of a runtime value.
type Kind int

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindTable
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindTable:
		return "table"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// KindOf classifies a cty.Value. Primitives are scalars, collections of
// objects are tables, and everything else structured is an object.
func KindOf(v cty.Value) Kind {
	if v == cty.NilVal || v.IsNull() {
		return KindNull
	}
	t := v.Type()
	switch {
	case t.IsPrimitiveType():
		return KindScalar
	case isTableType(t):
		return KindTable
	default:
		return KindObject
	}
}

// isTableType reports whether t is a list, set or tuple whose elements are
// all object-typed, which is how tabular data is represented in cty.
func isTableType(t cty.Type) bool {
	switch {
	case t.IsListType(), t.IsSetType():
		return t.ElementType().IsObjectType()
	case t.IsTupleType():
		etys := t.TupleElementTypes()
		if len(etys) == 0 {
			return false
		}
		for _, ety := range etys {
			if !ety.IsObjectType() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Table builds a tabular cty.Value from row maps. Rows may carry differing
// column sets, so the result is a tuple of objects rather than a list.
func Table(rows []map[string]cty.Value) cty.Value {
	if len(rows) == 0 {
		return cty.EmptyTupleVal
	}
	vals := make([]cty.Value, 0, len(rows))
	for _, row := range rows {
		vals = append(vals, cty.ObjectVal(row))
	}
	return cty.TupleVal(vals)
}

// TableColumns returns the sorted union of column names across all rows of a
// tabular value. It returns an error when v is not a table.
func TableColumns(v cty.Value) ([]string, error) {
	if KindOf(v) != KindTable {
		return nil, fmt.Errorf("value is %s, not a table", KindOf(v))
	}
	seen := make(map[string]struct{})
	for it := v.ElementIterator(); it.Next(); {
		_, row := it.Element()
		for name := range row.Type().AttributeTypes() {
			seen[name] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols, nil
}

// RowCount returns the number of rows in a tabular value, or 0 for anything else.
func RowCount(v cty.Value) int {
	if KindOf(v) != KindTable {
		return 0
	}
	return v.LengthInt()
}
