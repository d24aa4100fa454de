package evaluator

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/vk/rulegridgo/internal/ctxlog"
)

// exprFuncs is the function table available inside logic and condition
// expressions. Kept deliberately small: arithmetic and string helpers only.
var exprFuncs = map[string]function.Function{
	"abs":      stdlib.AbsoluteFunc,
	"ceil":     stdlib.CeilFunc,
	"floor":    stdlib.FloorFunc,
	"max":      stdlib.MaxFunc,
	"min":      stdlib.MinFunc,
	"length":   stdlib.LengthFunc,
	"concat":   stdlib.ConcatFunc,
	"format":   stdlib.FormatFunc,
	"lower":    stdlib.LowerFunc,
	"upper":    stdlib.UpperFunc,
	"coalesce": stdlib.CoalesceFunc,
}

// namedExpr pairs an output variable name with its parsed expression.
type namedExpr struct {
	name string
	expr hcl.Expression
}

// HCLLogic is a Logic evaluator backed by HCL expressions: each output
// variable is computed from one expression evaluated against the visible
// bindings. Outputs are evaluated independently and cannot see each other.
type HCLLogic struct {
	outputs []namedExpr
}

// NewHCLLogic parses one expression per output variable. Expression sources
// are expected to already have any placeholder expansion applied.
func NewHCLLogic(exprs map[string]string) (*HCLLogic, error) {
	names := make([]string, 0, len(exprs))
	for name := range exprs {
		names = append(names, name)
	}
	sort.Strings(names)

	logic := &HCLLogic{}
	for _, name := range names {
		expr, diags := hclsyntax.ParseExpression([]byte(exprs[name]), name, hcl.InitialPos)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing expression for output %q: %w", name, diags)
		}
		logic.outputs = append(logic.outputs, namedExpr{name: name, expr: expr})
	}
	return logic, nil
}

// Evaluate implements Logic.
func (l *HCLLogic) Evaluate(ctx context.Context, bindings map[string]cty.Value) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	evalCtx := evalContext(bindings)

	out := make(map[string]cty.Value, len(l.outputs))
	for _, o := range l.outputs {
		v, diags := o.expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, &EvaluationError{Cause: fmt.Sprintf("output %q", o.name), Err: diags}
		}
		out[o.name] = v
	}
	logger.Debug("Evaluated logic expressions.", "outputs", len(out))
	return out, nil
}

// HCLCondition is a Condition evaluator backed by a single boolean HCL expression.
type HCLCondition struct {
	src  string
	expr hcl.Expression
}

// NewHCLCondition parses a boolean expression such as "x > 10".
func NewHCLCondition(src string) (*HCLCondition, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(src), "condition", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing condition %q: %w", src, diags)
	}
	return &HCLCondition{src: src, expr: expr}, nil
}

// Evaluate implements Condition.
func (c *HCLCondition) Evaluate(ctx context.Context, bindings map[string]cty.Value) (bool, error) {
	v, diags := c.expr.Value(evalContext(bindings))
	if diags.HasErrors() {
		return false, &EvaluationError{Cause: fmt.Sprintf("condition %q", c.src), Err: diags}
	}
	b, err := convert.Convert(v, cty.Bool)
	if err != nil || b.IsNull() {
		return false, &EvaluationError{Cause: fmt.Sprintf("condition %q did not produce a boolean", c.src), Err: err}
	}
	return b.True(), nil
}

// evalContext builds the HCL evaluation context for an expression: the
// visible bindings become top-level variables.
func evalContext(bindings map[string]cty.Value) *hcl.EvalContext {
	vars := make(map[string]cty.Value, len(bindings))
	for name, v := range bindings {
		vars[name] = v
	}
	return &hcl.EvalContext{Variables: vars, Functions: exprFuncs}
}
