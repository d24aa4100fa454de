package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Render produces a plain-text description of the graph for diagnostics:
// nodes with their tracked variables and expectations, the edge set, and the
// computed execution order.
func (g *Graph) Render() string {
	var b strings.Builder

	b.WriteString("Nodes:\n")
	for _, n := range g.Nodes() {
		fmt.Fprintf(&b, "  %s (%s)\n", n.Name, n.Kind)
		if len(n.Tracked) > 0 {
			fmt.Fprintf(&b, "    tracked: %s\n", strings.Join(n.Tracked, ", "))
		}
		for _, branch := range n.Branches {
			fmt.Fprintf(&b, "    branch %q -> %s\n", branch.Alias, branch.Target)
		}
		if len(n.Expect) > 0 {
			for _, variable := range sortedKeys(n.Expect) {
				fmt.Fprintf(&b, "    expects %s: %s\n", variable, n.Expect[variable])
			}
		}
	}

	b.WriteString("Edges:\n")
	for _, n := range g.Nodes() {
		for _, source := range g.PlainDeps(n.Name) {
			fmt.Fprintf(&b, "  %s -> %s\n", source, n.Name)
		}
		for _, edge := range g.BranchDeps(n.Name) {
			fmt.Fprintf(&b, "  %s [%s] -> %s\n", edge.Source, edge.Alias, n.Name)
		}
	}

	order, err := g.ExecutionOrder()
	if err != nil {
		fmt.Fprintf(&b, "Execution order: ERROR: %v\n", err)
	} else {
		fmt.Fprintf(&b, "Execution order: %s\n", strings.Join(order, " -> "))
	}
	return b.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
