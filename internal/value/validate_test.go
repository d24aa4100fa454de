package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func mustParse(t *testing.T, s string) *Schema {
	t.Helper()
	schema, err := ParseSchema(s)
	require.NoError(t, err)
	return schema
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNull, KindOf(cty.NilVal))
	assert.Equal(t, KindNull, KindOf(cty.NullVal(cty.String)))
	assert.Equal(t, KindScalar, KindOf(cty.NumberIntVal(5)))
	assert.Equal(t, KindScalar, KindOf(cty.StringVal("x")))
	assert.Equal(t, KindScalar, KindOf(cty.True))
	assert.Equal(t, KindObject, KindOf(cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(1)})))
	assert.Equal(t, KindObject, KindOf(cty.ListVal([]cty.Value{cty.NumberIntVal(1)})))

	table := Table([]map[string]cty.Value{
		{"ds": cty.StringVal("2024-01-01"), "qty": cty.NumberFloatVal(1.5)},
	})
	assert.Equal(t, KindTable, KindOf(table))
}

func TestValidateScalar(t *testing.T) {
	t.Run("matching kinds pass", func(t *testing.T) {
		assert.NoError(t, mustParse(t, "int").Validate(cty.NumberIntVal(42)))
		assert.NoError(t, mustParse(t, "double").Validate(cty.NumberFloatVal(3.25)))
		assert.NoError(t, mustParse(t, "string").Validate(cty.StringVal("hello")))
		assert.NoError(t, mustParse(t, "boolean").Validate(cty.False))
	})

	t.Run("int rejects fractional numbers", func(t *testing.T) {
		err := mustParse(t, "int").Validate(cty.NumberFloatVal(1.5))
		assert.ErrorContains(t, err, "fractional")
	})

	t.Run("double accepts integral numbers", func(t *testing.T) {
		assert.NoError(t, mustParse(t, "double").Validate(cty.NumberIntVal(7)))
	})

	t.Run("kind mismatch fails", func(t *testing.T) {
		err := mustParse(t, "string").Validate(cty.NumberIntVal(1))
		assert.ErrorContains(t, err, "expected string")

		err = mustParse(t, "int").Validate(cty.ObjectVal(map[string]cty.Value{"a": cty.True}))
		assert.ErrorContains(t, err, "got object")
	})
}

func TestValidateTable(t *testing.T) {
	table := Table([]map[string]cty.Value{
		{"ds": cty.StringVal("2024-01-01"), "qty": cty.NumberFloatVal(10.5), "note": cty.StringVal("a")},
		{"ds": cty.StringVal("2024-01-02"), "qty": cty.NumberIntVal(3), "note": cty.StringVal("b")},
	})

	t.Run("declared columns with extras tolerated", func(t *testing.T) {
		assert.NoError(t, mustParse(t, "ds:string,qty:double").Validate(table))
	})

	t.Run("missing column fails", func(t *testing.T) {
		err := mustParse(t, "ds:string,price:double").Validate(table)
		assert.ErrorContains(t, err, `missing column "price"`)
	})

	t.Run("numeric strings are coercible", func(t *testing.T) {
		stringy := Table([]map[string]cty.Value{
			{"qty": cty.StringVal("12.5")},
		})
		assert.NoError(t, mustParse(t, "qty:double").Validate(stringy))
	})

	t.Run("non-coercible cell yields TypeCoercionError", func(t *testing.T) {
		bad := Table([]map[string]cty.Value{
			{"qty": cty.NumberIntVal(1)},
			{"qty": cty.StringVal("not-a-number")},
		})
		err := mustParse(t, "qty:double").Validate(bad)
		require.Error(t, err)

		var coercionErr *TypeCoercionError
		require.ErrorAs(t, err, &coercionErr)
		assert.Equal(t, "qty", coercionErr.Column)
		assert.Equal(t, 1, coercionErr.Row)
	})

	t.Run("null cells pass", func(t *testing.T) {
		sparse := Table([]map[string]cty.Value{
			{"qty": cty.NullVal(cty.Number)},
		})
		assert.NoError(t, mustParse(t, "qty:double").Validate(sparse))
	})

	t.Run("scalar against table schema fails", func(t *testing.T) {
		err := mustParse(t, "ds:string").Validate(cty.StringVal("2024-01-01"))
		assert.ErrorContains(t, err, "expected a table")
	})
}

func TestTableColumns(t *testing.T) {
	table := Table([]map[string]cty.Value{
		{"b": cty.NumberIntVal(1), "a": cty.StringVal("x")},
		{"c": cty.True},
	})
	cols, err := TableColumns(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, cols)

	_, err = TableColumns(cty.StringVal("nope"))
	assert.Error(t, err)
}
