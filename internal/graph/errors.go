package graph

import (
	"fmt"
	"strings"
)

// DuplicateNodeError reports an attempt to register a node name twice.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already exists", e.Name)
}

// UnknownBranchError reports a branch dependency whose alias is not declared
// on its source gate.
type UnknownBranchError struct {
	Gate  string
	Alias string
}

func (e *UnknownBranchError) Error() string {
	return fmt.Sprintf("gate %q declares no branch %q", e.Gate, e.Alias)
}

// DependencyCycleError reports a cycle in the edge set, carrying the node
// sequence that closes it.
type DependencyCycleError struct {
	Cycle []string
}

func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// OrphanNodeError reports a non-start node with no incoming edge.
type OrphanNodeError struct {
	Name string
}

func (e *OrphanNodeError) Error() string {
	return fmt.Sprintf("node %q has no incoming edges", e.Name)
}
