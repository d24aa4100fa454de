package config

import (
	"fmt"
	"strings"

	"github.com/vk/rulegridgo/internal/binding"
	"github.com/vk/rulegridgo/internal/dateexpr"
	"github.com/vk/rulegridgo/internal/engine"
	"github.com/vk/rulegridgo/internal/evaluator"
	"github.com/vk/rulegridgo/internal/graph"
	"github.com/vk/rulegridgo/internal/schema"
)

// Build is the runnable translation of a merged grid configuration.
type Build struct {
	Graph     *graph.Graph
	Engine    engine.Options
	Namespace string
	Variables []*binding.Variable
}

// Build translates a merged configuration into a graph, engine options and
// binding declarations. Nodes register first and edges wire afterwards, so
// blocks may reference each other in any file order. Expression sources are
// resolved against the job before parsing, so date tokens and placeholders
// written as `$${...}` in grid files land as plain literals.
func (l *Loader) Build(cfg *schema.GridConfig, job binding.Job) (*Build, error) {
	opts, err := engineOptions(cfg.Engine)
	if err != nil {
		return nil, err
	}

	g := graph.New()

	for _, block := range cfg.Logics {
		node, err := l.buildLogicNode(block, job)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, block := range cfg.Gates {
		node, err := l.buildGateNode(block, job)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}
	for _, block := range cfg.Collections {
		node, err := l.buildCollectionNode(block, job)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(node); err != nil {
			return nil, err
		}
	}

	for _, block := range cfg.Logics {
		if err := wireEdges(g, block.Name, block.DependsOn, block.AfterBranch); err != nil {
			return nil, err
		}
	}
	for _, block := range cfg.Gates {
		if err := wireEdges(g, block.Name, block.DependsOn, block.AfterBranch); err != nil {
			return nil, err
		}
		for _, b := range block.Branches {
			if err := g.AddBranchDependency(block.Name, b.Alias, b.Target); err != nil {
				return nil, fmt.Errorf("gate %q branch %q: %w", block.Name, b.Alias, err)
			}
		}
	}
	for _, block := range cfg.Collections {
		if err := wireEdges(g, block.Name, block.DependsOn, block.AfterBranch); err != nil {
			return nil, err
		}
		for _, up := range block.Upstreams {
			if err := g.AddDependency(up.Node, block.Name); err != nil {
				return nil, fmt.Errorf("collection %q upstream %q: %w", block.Name, up.Node, err)
			}
		}
	}

	namespace, vars, err := buildBindings(cfg.Bindings)
	if err != nil {
		return nil, err
	}

	return &Build{Graph: g, Engine: opts, Namespace: namespace, Variables: vars}, nil
}

func engineOptions(block *schema.EngineBlock) (engine.Options, error) {
	var opts engine.Options
	if block == nil {
		return opts, nil
	}
	opts.Workers = block.Workers

	switch block.OnNoBranch {
	case "", "fail":
		opts.GatePolicy = engine.NoBranchFail
	case "skip_branches":
		opts.GatePolicy = engine.NoBranchSkipAll
	default:
		return opts, fmt.Errorf("invalid on_no_branch %q: must be 'fail' or 'skip_branches'", block.OnNoBranch)
	}

	switch block.OnSchemaMismatch {
	case "", "skip":
		opts.MismatchPolicy = engine.MismatchSkip
	case "fail":
		opts.MismatchPolicy = engine.MismatchFail
	default:
		return opts, fmt.Errorf("invalid on_schema_mismatch %q: must be 'skip' or 'fail'", block.OnSchemaMismatch)
	}
	return opts, nil
}

func (l *Loader) buildLogicNode(block *schema.LogicBlock, job binding.Job) (*graph.Node, error) {
	var (
		logic evaluator.Logic
		err   error
	)
	switch {
	case block.Remote != "" && len(block.Outputs) > 0:
		return nil, fmt.Errorf("logic %q declares both remote and output blocks", block.Name)
	case block.Remote != "":
		logic, err = l.registry.Logic(evaluator.KindRemote, evaluator.LogicSpec{Endpoint: expandSource(block.Remote, job)})
	case len(block.Outputs) > 0:
		var exprs map[string]string
		exprs, err = outputExprs(block.Name, "logic", block.Outputs, job)
		if err != nil {
			return nil, err
		}
		logic, err = l.registry.Logic(evaluator.KindExpression, evaluator.LogicSpec{Outputs: exprs})
	default:
		return nil, fmt.Errorf("logic %q needs a remote endpoint or output blocks", block.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("logic %q: %w", block.Name, err)
	}

	node := graph.NewLogic(block.Name, logic, block.Tracked...)
	if err := applyExpect(node, block.Expect); err != nil {
		return nil, fmt.Errorf("logic %q: %w", block.Name, err)
	}
	return node, nil
}

func (l *Loader) buildGateNode(block *schema.GateBlock, job binding.Job) (*graph.Node, error) {
	if len(block.Branches) == 0 {
		return nil, fmt.Errorf("gate %q declares no branches", block.Name)
	}
	branches := make([]*graph.Branch, 0, len(block.Branches))
	for _, b := range block.Branches {
		cond, err := l.registry.Condition(evaluator.KindExpression, expandSource(b.Condition, job))
		if err != nil {
			return nil, fmt.Errorf("gate %q branch %q: %w", block.Name, b.Alias, err)
		}
		branches = append(branches, &graph.Branch{Alias: b.Alias, Condition: cond, Target: b.Target})
	}

	node := graph.NewGate(block.Name, branches...)
	node.DefaultBranch = block.DefaultBranch
	if err := applyExpect(node, block.Expect); err != nil {
		return nil, fmt.Errorf("gate %q: %w", block.Name, err)
	}
	return node, nil
}

func (l *Loader) buildCollectionNode(block *schema.CollectionBlock, job binding.Job) (*graph.Node, error) {
	if len(block.Upstreams) == 0 {
		return nil, fmt.Errorf("collection %q declares no upstreams", block.Name)
	}
	exprs, err := outputExprs(block.Name, "collection", block.Outputs, job)
	if err != nil {
		return nil, err
	}
	logic, err := l.registry.Logic(evaluator.KindExpression, evaluator.LogicSpec{Outputs: exprs})
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", block.Name, err)
	}

	node := graph.NewCollection(block.Name, logic, block.Tracked...)
	for _, up := range block.Upstreams {
		node.Scores[up.Node] = up.Score
	}
	if err := applyExpect(node, block.Expect); err != nil {
		return nil, fmt.Errorf("collection %q: %w", block.Name, err)
	}
	return node, nil
}

// outputExprs collects a block's output declarations into an expression map,
// rejecting duplicate output names. Sources are expanded against the job
// before they reach the parser.
func outputExprs(name, kind string, outputs []*schema.OutputBlock, job binding.Job) (map[string]string, error) {
	exprs := make(map[string]string, len(outputs))
	for _, out := range outputs {
		if _, dup := exprs[out.Name]; dup {
			return nil, fmt.Errorf("%s %q declares output %q twice", kind, name, out.Name)
		}
		exprs[out.Name] = expandSource(out.Expression, job)
	}
	return exprs, nil
}

// expandSource resolves placeholder and date tokens embedded in a source
// string before parsing. Tokens that are neither stay untouched, so runtime
// variable interpolation inside expressions keeps working.
func expandSource(src string, job binding.Job) string {
	return dateexpr.Expand(dateexpr.Substitute(src, job.Placeholders), job.Time)
}

func applyExpect(node *graph.Node, expect map[string]string) error {
	for variable, schemaStr := range expect {
		if err := node.SetExpect(variable, schemaStr); err != nil {
			return err
		}
	}
	return nil
}

// wireEdges attaches a node's declared dependencies. A node with no explicit
// upstream anchors at the implicit start node.
func wireEdges(g *graph.Graph, name string, dependsOn, afterBranch []string) error {
	for _, dep := range dependsOn {
		if err := g.AddDependency(dep, name); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
	}
	for _, ref := range afterBranch {
		gate, alias, ok := strings.Cut(ref, ":")
		if !ok || gate == "" || alias == "" {
			return fmt.Errorf("node %q: after_branch %q is not of the form \"gate:alias\"", name, ref)
		}
		if err := g.AddBranchDependency(gate, alias, name); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
	}
	if len(dependsOn) == 0 && len(afterBranch) == 0 {
		if err := g.AddDependency("", name); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
	}
	return nil
}

func buildBindings(block *schema.BindingsBlock) (string, []*binding.Variable, error) {
	if block == nil {
		return "", nil, nil
	}
	namespace := block.Namespace
	if namespace == "" {
		namespace = "rulegrid"
	}

	vars := make([]*binding.Variable, 0, len(block.Variables))
	seen := make(map[string]struct{}, len(block.Variables))
	for _, v := range block.Variables {
		if _, dup := seen[v.Name]; dup {
			return "", nil, fmt.Errorf("bindings: variable %q declared twice", v.Name)
		}
		seen[v.Name] = struct{}{}

		shape, err := binding.ParseShape(v.Shape)
		if err != nil {
			return "", nil, fmt.Errorf("bindings: variable %q: %w", v.Name, err)
		}
		vars = append(vars, &binding.Variable{
			Name:   v.Name,
			Shape:  shape,
			Prefix: v.Prefix,
			Field:  v.Field,
			From:   v.From,
			To:     v.To,
		})
	}
	return namespace, vars, nil
}
