package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestRegistryBuiltinKinds(t *testing.T) {
	r := NewRegistry()

	logic, err := r.Logic(KindExpression, LogicSpec{Outputs: map[string]string{"y": "x + 1"}})
	require.NoError(t, err)
	out, err := logic.Evaluate(context.Background(), map[string]cty.Value{"x": cty.NumberIntVal(1)})
	require.NoError(t, err)
	assert.True(t, cty.NumberIntVal(2).RawEquals(out["y"]))

	remote, err := r.Logic(KindRemote, LogicSpec{Endpoint: "http://localhost/eval"})
	require.NoError(t, err)
	assert.NotNil(t, remote)

	cond, err := r.Condition(KindExpression, "x > 0")
	require.NoError(t, err)
	ok, err := cond.Evaluate(context.Background(), map[string]cty.Value{"x": cty.NumberIntVal(3)})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistryUnknownKind(t *testing.T) {
	r := NewRegistry()

	_, err := r.Logic("python", LogicSpec{})
	assert.ErrorContains(t, err, `no logic factory registered for kind "python"`)

	_, err = r.Condition("python", "true")
	assert.ErrorContains(t, err, `no condition factory registered for kind "python"`)
}

func TestRegistryDuplicateKindPanics(t *testing.T) {
	r := NewRegistry()

	assert.Panics(t, func() {
		r.RegisterLogic(KindExpression, func(LogicSpec) (Logic, error) { return nil, nil })
	})
	assert.Panics(t, func() {
		r.RegisterCondition(KindExpression, func(string) (Condition, error) { return nil, nil })
	})
}

func TestRegistryCustomKind(t *testing.T) {
	r := NewRegistry()
	r.RegisterLogic("constant", func(spec LogicSpec) (Logic, error) {
		return LogicFunc(func(context.Context, map[string]cty.Value) (map[string]cty.Value, error) {
			return map[string]cty.Value{"v": cty.StringVal(spec.Endpoint)}, nil
		}), nil
	})

	logic, err := r.Logic("constant", LogicSpec{Endpoint: "fixed"})
	require.NoError(t, err)
	out, err := logic.Evaluate(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed", out["v"].AsString())
}
