// Package evaluator defines the pluggable computation capability invoked by
// the engine. A Logic evaluator maps a read-only binding of variable names to
// a new binding; a Condition evaluator reduces a binding to a boolean. The
// engine never inspects what an evaluator does internally; implementations
// here cover HCL expressions, plain Go functions and remote HTTP calls.
package evaluator
