package evaluator

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Logic transforms a read-only binding of variables into a new binding.
// Implementations must be side-effect free from the engine's perspective and
// deterministic for identical inputs.
type Logic interface {
	Evaluate(ctx context.Context, bindings map[string]cty.Value) (map[string]cty.Value, error)
}

// Condition reduces a binding of variables to a boolean decision.
type Condition interface {
	Evaluate(ctx context.Context, bindings map[string]cty.Value) (bool, error)
}

// EvaluationError wraps a failure raised inside an evaluator with a
// human-readable cause. The engine captures it per node; it never aborts a run.
type EvaluationError struct {
	Cause string
	Err   error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation failed: %s: %v", e.Cause, e.Err)
	}
	return fmt.Sprintf("evaluation failed: %s", e.Cause)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// LogicFunc adapts a plain Go function into a Logic evaluator.
type LogicFunc func(ctx context.Context, bindings map[string]cty.Value) (map[string]cty.Value, error)

// Evaluate implements Logic.
func (f LogicFunc) Evaluate(ctx context.Context, bindings map[string]cty.Value) (map[string]cty.Value, error) {
	return f(ctx, bindings)
}

// ConditionFunc adapts a plain Go function into a Condition evaluator.
type ConditionFunc func(ctx context.Context, bindings map[string]cty.Value) (bool, error)

// Evaluate implements Condition.
func (f ConditionFunc) Evaluate(ctx context.Context, bindings map[string]cty.Value) (bool, error) {
	return f(ctx, bindings)
}
