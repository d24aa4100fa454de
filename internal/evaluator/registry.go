package evaluator

import (
	"fmt"
	"log/slog"
)

// LogicSpec carries the configuration-level description of a logic evaluator,
// before a factory turns it into a runnable Logic. Exactly one of Endpoint or
// Outputs is populated, depending on the kind.
type LogicSpec struct {
	// Endpoint is the URL a remote evaluator posts bindings to.
	Endpoint string

	// Outputs maps output variable names to their expression source.
	Outputs map[string]string
}

// LogicFactory builds a Logic from its configuration spec.
type LogicFactory func(spec LogicSpec) (Logic, error)

// ConditionFactory builds a Condition from a single boolean expression.
type ConditionFactory func(expr string) (Condition, error)

// Registry maps evaluator kind names onto the factories that build them. A
// single instance is shared by the configuration builder; the built-in kinds
// are registered at construction and callers may add their own.
type Registry struct {
	logics     map[string]LogicFactory
	conditions map[string]ConditionFactory
}

// Built-in evaluator kind names.
const (
	KindExpression = "expression"
	KindRemote     = "remote"
)

// NewRegistry creates a registry pre-populated with the built-in kinds:
// "expression" for in-process expression evaluation and "remote" for
// HTTP-backed evaluators.
func NewRegistry() *Registry {
	r := &Registry{
		logics:     make(map[string]LogicFactory),
		conditions: make(map[string]ConditionFactory),
	}
	r.RegisterLogic(KindExpression, func(spec LogicSpec) (Logic, error) {
		return NewHCLLogic(spec.Outputs)
	})
	r.RegisterLogic(KindRemote, func(spec LogicSpec) (Logic, error) {
		return NewRemoteLogic(spec.Endpoint, nil), nil
	})
	r.RegisterCondition(KindExpression, func(expr string) (Condition, error) {
		return NewHCLCondition(expr)
	})
	return r
}

// RegisterLogic registers a logic factory under a kind name.
func (r *Registry) RegisterLogic(kind string, factory LogicFactory) {
	if _, exists := r.logics[kind]; exists {
		panic(fmt.Sprintf("logic factory with kind '%s' already registered", kind))
	}
	slog.Debug("Registering logic factory.", "kind", kind)
	r.logics[kind] = factory
}

// RegisterCondition registers a condition factory under a kind name.
func (r *Registry) RegisterCondition(kind string, factory ConditionFactory) {
	if _, exists := r.conditions[kind]; exists {
		panic(fmt.Sprintf("condition factory with kind '%s' already registered", kind))
	}
	slog.Debug("Registering condition factory.", "kind", kind)
	r.conditions[kind] = factory
}

// Logic builds a logic evaluator of the given kind.
func (r *Registry) Logic(kind string, spec LogicSpec) (Logic, error) {
	factory, ok := r.logics[kind]
	if !ok {
		return nil, fmt.Errorf("no logic factory registered for kind %q", kind)
	}
	return factory(spec)
}

// Condition builds a condition evaluator of the given kind.
func (r *Registry) Condition(kind, expr string) (Condition, error) {
	factory, ok := r.conditions[kind]
	if !ok {
		return nil, fmt.Errorf("no condition factory registered for kind %q", kind)
	}
	return factory(expr)
}
