package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Primary Grid Structures ---

// EngineBlock represents the optional `engine` block tuning a run.
type EngineBlock struct {
	Workers          int    `hcl:"workers,optional"`
	OnNoBranch       string `hcl:"on_no_branch,optional"`
	OnSchemaMismatch string `hcl:"on_schema_mismatch,optional"`
}

// OutputBlock represents one `output "name" {}` block of a logic or
// collection node. The expression source is evaluated against the node's
// visible bindings at run time.
type OutputBlock struct {
	Name       string `hcl:"name,label"`
	Expression string `hcl:"expression"`
}

// LogicBlock represents a `logic "name" {}` block from a user's grid file.
// Exactly one of Remote or Outputs supplies the node's evaluator.
type LogicBlock struct {
	Name        string            `hcl:"name,label"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	AfterBranch []string          `hcl:"after_branch,optional"`
	Tracked     []string          `hcl:"tracked,optional"`
	Expect      map[string]string `hcl:"expect,optional"`
	Remote      string            `hcl:"remote,optional"`
	Outputs     []*OutputBlock    `hcl:"output,block"`
}

// BranchBlock represents one `branch "alias" {}` block of a gate. Branches
// are kept in file order; the first true condition wins.
type BranchBlock struct {
	Alias     string `hcl:"alias,label"`
	Condition string `hcl:"condition"`
	Target    string `hcl:"target"`
}

// GateBlock represents a `gate "name" {}` block.
type GateBlock struct {
	Name          string            `hcl:"name,label"`
	DependsOn     []string          `hcl:"depends_on,optional"`
	AfterBranch   []string          `hcl:"after_branch,optional"`
	Expect        map[string]string `hcl:"expect,optional"`
	Branches      []*BranchBlock    `hcl:"branch,block"`
	DefaultBranch string            `hcl:"default_branch,optional"`
}

// UpstreamBlock declares one aggregated upstream of a collection, with an
// optional relevance score attached to its contribution.
type UpstreamBlock struct {
	Node  string  `hcl:"node"`
	Score float64 `hcl:"score,optional"`
}

// CollectionBlock represents a `collection "name" {}` block.
type CollectionBlock struct {
	Name        string            `hcl:"name,label"`
	DependsOn   []string          `hcl:"depends_on,optional"`
	AfterBranch []string          `hcl:"after_branch,optional"`
	Tracked     []string          `hcl:"tracked,optional"`
	Expect      map[string]string `hcl:"expect,optional"`
	Upstreams   []*UpstreamBlock  `hcl:"upstream,block"`
	Outputs     []*OutputBlock    `hcl:"output,block"`
}

// --- Data Binding Structures ---

// VariableBlock declares one externally loaded variable inside a `bindings`
// block. Prefix values may contain `${placeholder}` and date tokens; they are
// expanded before the storage key is built.
type VariableBlock struct {
	Name   string            `hcl:"name,label"`
	Shape  string            `hcl:"shape"`
	Prefix map[string]string `hcl:"prefix,optional"`
	Field  string            `hcl:"field,optional"`
	From   string            `hcl:"from,optional"`
	To     string            `hcl:"to,optional"`
}

// BindingsBlock represents the `bindings` block describing the initial
// variables loaded before the graph runs.
type BindingsBlock struct {
	Namespace string           `hcl:"namespace,optional"`
	Variables []*VariableBlock `hcl:"variable,block"`
}

// GridConfig represents the top-level structure of a grid file. Any file may
// carry any subset of blocks; the loader merges all parsed files into one
// configuration.
type GridConfig struct {
	Engine      *EngineBlock       `hcl:"engine,block"`
	Logics      []*LogicBlock      `hcl:"logic,block"`
	Gates       []*GateBlock       `hcl:"gate,block"`
	Collections []*CollectionBlock `hcl:"collection,block"`
	Bindings    *BindingsBlock     `hcl:"bindings,block"`
	Body        hcl.Body           `hcl:",remain"`
}
