package graph

import (
	"fmt"

	"github.com/vk/rulegridgo/internal/evaluator"
	"github.com/vk/rulegridgo/internal/value"
)

// StartNodeName is the name of the implicit start node every graph owns.
const StartNodeName = "start"

// Kind distinguishes the four node types of a rule graph.
type Kind int

const (
	KindStart Kind = iota
	KindLogic
	KindGate
	KindCollection
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindLogic:
		return "logic"
	case KindGate:
		return "gate"
	case KindCollection:
		return "collection"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Branch is one conditional path out of a gate: a boolean condition, an alias
// unique within the gate, and the single direct downstream node it guards.
type Branch struct {
	Alias     string
	Condition evaluator.Condition
	Target    string
}

// Node is a vertex of the rule graph. Nodes are built once, registered, and
// immutable afterwards; runtime state lives with the engine, not here.
type Node struct {
	Name string
	Kind Kind

	// Logic is the evaluator for logic and collection nodes.
	Logic evaluator.Logic

	// Tracked lists the output variables that become visible downstream.
	// Anything else an evaluator produces stays local to the node.
	Tracked []string

	// Expect maps input variable names to consumer-declared schemas, checked
	// immediately before the evaluator sees the variable.
	Expect map[string]*value.Schema

	// Branches is the ordered branch list of a gate node.
	Branches []*Branch

	// DefaultBranch optionally names the branch a gate falls back to when no
	// condition is true. Empty means no fallback.
	DefaultBranch string

	// Scores carries the caller-supplied per-upstream score a collection node
	// attaches to each successful upstream's contribution.
	Scores map[string]float64
}

// NewLogic builds a logic node.
func NewLogic(name string, logic evaluator.Logic, tracked ...string) *Node {
	return &Node{Name: name, Kind: KindLogic, Logic: logic, Tracked: tracked}
}

// NewGate builds a gate node from an ordered branch list.
func NewGate(name string, branches ...*Branch) *Node {
	return &Node{Name: name, Kind: KindGate, Branches: branches}
}

// NewCollection builds a collection node.
func NewCollection(name string, logic evaluator.Logic, tracked ...string) *Node {
	return &Node{Name: name, Kind: KindCollection, Logic: logic, Scores: make(map[string]float64), Tracked: tracked}
}

// SetExpect attaches a consumer-side schema expectation for one input
// variable, parsing the schema string eagerly so malformed declarations fail
// at build time rather than mid-run.
func (n *Node) SetExpect(variable, schemaStr string) error {
	schema, err := value.ParseSchema(schemaStr)
	if err != nil {
		return fmt.Errorf("expected schema for variable %q: %w", variable, err)
	}
	if n.Expect == nil {
		n.Expect = make(map[string]*value.Schema)
	}
	n.Expect[variable] = schema
	return nil
}

// branch returns the branch with the given alias, if declared.
func (n *Node) branch(alias string) (*Branch, bool) {
	for _, b := range n.Branches {
		if b.Alias == alias {
			return b, true
		}
	}
	return nil, false
}
