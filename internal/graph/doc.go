// Package graph is the registry for a rule graph: nodes, plain dependency
// edges and branch edges. It enforces structural validity (unique names,
// declared branch aliases, acyclicity, no orphans) before the engine is
// allowed to execute anything, and computes a deterministic topological
// execution order.
package graph
