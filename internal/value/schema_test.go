package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchemaScalar(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"int", "int"},
		{"double", "double"},
		{"float", "double"},
		{"str", "string"},
		{"string", "string"},
		{"bool", "boolean"},
		{"boolean", "boolean"},
		{"  Double  ", "double"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			s, err := ParseSchema(tc.in)
			require.NoError(t, err)
			assert.False(t, s.IsTable())
			assert.Equal(t, tc.want, s.String())
		})
	}
}

func TestParseSchemaTable(t *testing.T) {
	s, err := ParseSchema("ds:string, qty:double,is_active:int")
	require.NoError(t, err)
	require.True(t, s.IsTable())

	cols := s.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, Column{Name: "ds", Type: "string"}, cols[0])
	assert.Equal(t, Column{Name: "qty", Type: "double"}, cols[1])
	assert.Equal(t, Column{Name: "is_active", Type: "int"}, cols[2])
	assert.Equal(t, "ds:string,qty:double,is_active:int", s.String())
}

func TestParseSchemaErrors(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		_, err := ParseSchema("   ")
		assert.ErrorContains(t, err, "must not be empty")
	})

	t.Run("unknown scalar type", func(t *testing.T) {
		_, err := ParseSchema("decimal")
		assert.ErrorContains(t, err, "unsupported type")
	})

	t.Run("unknown column type", func(t *testing.T) {
		_, err := ParseSchema("ds:string,qty:decimal")
		assert.ErrorContains(t, err, `column "qty"`)
	})

	t.Run("empty column name", func(t *testing.T) {
		_, err := ParseSchema(":string")
		assert.ErrorContains(t, err, "empty name")
	})
}
