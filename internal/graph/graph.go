package graph

import (
	"fmt"
	"sync"
)

// BranchEdge is a conditional dependency: target runs only when the source
// gate selects the named branch.
type BranchEdge struct {
	Source string
	Alias  string
	Target string
}

// Graph holds the registered nodes and edges. Registration order is retained
// so scheduling ties break deterministically.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]*Node
	order      []string
	plainDeps  map[string][]string    // target -> plain-edge sources
	branchDeps map[string][]BranchEdge // target -> incoming branch edges
	dependents map[string][]string    // source -> all downstream targets
}

// New creates a graph pre-seeded with the implicit start node.
func New() *Graph {
	g := &Graph{
		nodes:      make(map[string]*Node),
		plainDeps:  make(map[string][]string),
		branchDeps: make(map[string][]BranchEdge),
		dependents: make(map[string][]string),
	}
	g.nodes[StartNodeName] = &Node{Name: StartNodeName, Kind: KindStart}
	g.order = append(g.order, StartNodeName)
	return g
}

// AddNode registers a node. Branch aliases of a gate must be unique.
func (g *Graph) AddNode(n *Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[n.Name]; exists {
		return &DuplicateNodeError{Name: n.Name}
	}
	if n.Kind == KindGate {
		seen := make(map[string]struct{}, len(n.Branches))
		for _, b := range n.Branches {
			if _, dup := seen[b.Alias]; dup {
				return fmt.Errorf("gate %q declares branch alias %q twice", n.Name, b.Alias)
			}
			seen[b.Alias] = struct{}{}
		}
		if n.DefaultBranch != "" {
			if _, ok := n.branch(n.DefaultBranch); !ok {
				return &UnknownBranchError{Gate: n.Name, Alias: n.DefaultBranch}
			}
		}
	}
	g.nodes[n.Name] = n
	g.order = append(g.order, n.Name)
	return nil
}

// AddDependency records a plain edge from source to target. An empty source
// means "no upstream prerequisite" and resolves to the implicit start node.
// Endpoint existence is deferred to Validate so graphs can be wired in any
// order.
func (g *Graph) AddDependency(source, target string) error {
	if source == "" {
		source = StartNodeName
	}
	if source == target {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", source, source)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, existing := range g.plainDeps[target] {
		if existing == source {
			return nil
		}
	}
	g.plainDeps[target] = append(g.plainDeps[target], source)
	g.dependents[source] = append(g.dependents[source], target)
	return nil
}

// AddBranchDependency records a conditional edge: target runs only when the
// gate selects the branch with the given alias.
func (g *Graph) AddBranchDependency(source, alias, target string) error {
	if source == target {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", source, source)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	gate, ok := g.nodes[source]
	if !ok {
		return fmt.Errorf("branch dependency source %q is not registered", source)
	}
	if gate.Kind != KindGate {
		return fmt.Errorf("branch dependency source %q is a %s node, not a gate", source, gate.Kind)
	}
	if _, ok := gate.branch(alias); !ok {
		return &UnknownBranchError{Gate: source, Alias: alias}
	}

	edge := BranchEdge{Source: source, Alias: alias, Target: target}
	for _, existing := range g.branchDeps[target] {
		if existing == edge {
			return nil
		}
	}
	g.branchDeps[target] = append(g.branchDeps[target], edge)
	g.dependents[source] = append(g.dependents[source], target)
	return nil
}

// Node returns the registered node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in registration order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Len returns the number of registered nodes, the implicit start included.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// PlainDeps returns the plain-edge sources of target, in registration order.
func (g *Graph) PlainDeps(target string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.plainDeps[target]...)
}

// BranchDeps returns the incoming branch edges of target.
func (g *Graph) BranchDeps(target string) []BranchEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]BranchEdge(nil), g.branchDeps[target]...)
}

// Dependents returns every node directly downstream of source via any edge.
func (g *Graph) Dependents(source string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.dependents[source]...)
}

// BranchTargets returns the direct targets wired to one branch of a gate.
func (g *Graph) BranchTargets(gate, alias string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var targets []string
	for _, edges := range g.branchDeps {
		for _, e := range edges {
			if e.Source == gate && e.Alias == alias {
				targets = append(targets, e.Target)
			}
		}
	}
	return targets
}
