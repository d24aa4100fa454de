package graph

import (
	"fmt"
	"sort"
)

// DFS colors for cycle detection.
const (
	white = iota // unvisited
	gray         // in the current recursion stack
	black        // fully explored
)

// Validate checks the structural validity of the graph: edge endpoints exist,
// branch-dependency aliases are declared, the edge set is acyclic, and no
// non-start node is left without an incoming edge. All violations found are
// returned; a graph that fails validation must not be executed.
func (g *Graph) Validate() (bool, []error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error
	errs = append(errs, g.checkEdgeEndpoints()...)
	errs = append(errs, g.checkBranchAliases()...)
	if cycle := g.detectCycle(); cycle != nil {
		errs = append(errs, &DependencyCycleError{Cycle: cycle})
	}
	errs = append(errs, g.checkOrphans()...)
	return len(errs) == 0, errs
}

// checkEdgeEndpoints verifies every edge references registered nodes.
func (g *Graph) checkEdgeEndpoints() []error {
	var errs []error
	targets := g.edgeTargets()
	for _, target := range targets {
		if _, ok := g.nodes[target]; !ok {
			errs = append(errs, fmt.Errorf("edge target %q is not a registered node", target))
		}
		for _, source := range g.plainDeps[target] {
			if _, ok := g.nodes[source]; !ok {
				errs = append(errs, fmt.Errorf("edge source %q is not a registered node", source))
			}
		}
		for _, edge := range g.branchDeps[target] {
			if _, ok := g.nodes[edge.Source]; !ok {
				errs = append(errs, fmt.Errorf("edge source %q is not a registered node", edge.Source))
			}
		}
	}
	return errs
}

// checkBranchAliases verifies every branch edge names a declared alias.
// AddBranchDependency already enforces this; revalidation covers graphs
// assembled by other means.
func (g *Graph) checkBranchAliases() []error {
	var errs []error
	for _, target := range g.edgeTargets() {
		for _, edge := range g.branchDeps[target] {
			gate, ok := g.nodes[edge.Source]
			if !ok {
				continue // reported by checkEdgeEndpoints
			}
			if gate.Kind != KindGate {
				errs = append(errs, fmt.Errorf("branch edge source %q is a %s node, not a gate", edge.Source, gate.Kind))
				continue
			}
			if _, ok := gate.branch(edge.Alias); !ok {
				errs = append(errs, &UnknownBranchError{Gate: edge.Source, Alias: edge.Alias})
			}
		}
	}
	return errs
}

// edgeTargets returns every edge target in deterministic order: registered
// nodes first in registration order, then unknown targets sorted by name.
func (g *Graph) edgeTargets() []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, name := range g.order {
		if len(g.plainDeps[name]) > 0 || len(g.branchDeps[name]) > 0 {
			targets = append(targets, name)
			seen[name] = struct{}{}
		}
	}
	var unknown []string
	for target := range g.plainDeps {
		if _, ok := seen[target]; !ok {
			if _, registered := g.nodes[target]; !registered {
				unknown = append(unknown, target)
				seen[target] = struct{}{}
			}
		}
	}
	for target := range g.branchDeps {
		if _, ok := seen[target]; !ok {
			if _, registered := g.nodes[target]; !registered {
				unknown = append(unknown, target)
				seen[target] = struct{}{}
			}
		}
	}
	sort.Strings(unknown)
	return append(targets, unknown...)
}

// detectCycle runs a three-color DFS over the combined edge set (branch edges
// count as ordinary directed edges here). It returns the node sequence of the
// first cycle found, or nil.
func (g *Graph) detectCycle() []string {
	state := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(name string) bool
	visit = func(name string) bool {
		state[name] = gray
		stack = append(stack, name)

		for _, next := range g.dependents[name] {
			if _, exists := g.nodes[next]; !exists {
				continue
			}
			switch state[next] {
			case gray:
				// Back-edge: the cycle is the stack from next's first
				// occurrence, closed back on itself.
				for i, s := range stack {
					if s == next {
						cycle = append(append([]string(nil), stack[i:]...), next)
						break
					}
				}
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}

		stack = stack[:len(stack)-1]
		state[name] = black
		return false
	}

	for _, name := range g.order {
		if state[name] == white {
			if visit(name) {
				return cycle
			}
		}
	}
	return nil
}

// checkOrphans flags non-start nodes with no incoming edge.
func (g *Graph) checkOrphans() []error {
	var errs []error
	for _, name := range g.order {
		if name == StartNodeName {
			continue
		}
		if len(g.plainDeps[name]) == 0 && len(g.branchDeps[name]) == 0 {
			errs = append(errs, &OrphanNodeError{Name: name})
		}
	}
	return errs
}

// ExecutionOrder computes a topological order over all nodes using Kahn's
// algorithm, breaking ties by registration order for determinism.
func (g *Graph) ExecutionOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.nodes))
	for _, name := range g.order {
		count := 0
		for _, source := range g.plainDeps[name] {
			if _, ok := g.nodes[source]; ok {
				count++
			}
		}
		for _, edge := range g.branchDeps[name] {
			if _, ok := g.nodes[edge.Source]; ok {
				count++
			}
		}
		inDegree[name] = count
	}

	emitted := make(map[string]bool, len(g.nodes))
	result := make([]string, 0, len(g.nodes))
	for len(result) < len(g.nodes) {
		progressed := false
		for _, name := range g.order {
			if emitted[name] || inDegree[name] != 0 {
				continue
			}
			emitted[name] = true
			result = append(result, name)
			for _, next := range g.dependents[name] {
				if _, exists := g.nodes[next]; exists {
					inDegree[next]--
				}
			}
			progressed = true
			break
		}
		if !progressed {
			return nil, &DependencyCycleError{Cycle: g.detectCycle()}
		}
	}
	return result, nil
}
