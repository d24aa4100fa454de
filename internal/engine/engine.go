package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rulegridgo/internal/ctxlog"
	"github.com/vk/rulegridgo/internal/flowstore"
	"github.com/vk/rulegridgo/internal/graph"
)

// GatePolicy decides what happens when none of a gate's conditions are true
// and the gate has no default branch.
type GatePolicy int

const (
	// NoBranchFail marks the gate Failed with a NoBranchSelectedError.
	NoBranchFail GatePolicy = iota
	// NoBranchSkipAll lets the gate succeed with no selection; every branch
	// subtree is pruned, plain dependents still run.
	NoBranchSkipAll
)

// MismatchPolicy decides the fate of a node whose input fails schema gating.
type MismatchPolicy int

const (
	// MismatchSkip marks the consumer Skipped; its evaluator never runs.
	MismatchSkip MismatchPolicy = iota
	// MismatchFail marks the consumer Failed instead.
	MismatchFail
)

// Options configure a single engine instance.
type Options struct {
	Workers        int
	GatePolicy     GatePolicy
	MismatchPolicy MismatchPolicy
}

// defaultWorkers bounds parallelism when the caller does not choose.
const defaultWorkers = 4

// nodeState is the runtime record of one node within a run.
type nodeState struct {
	node      *graph.Node
	state     atomic.Int32
	depCount  atomic.Int32
	ancestors []string // transitive ancestor names, topologically ordered

	mu             sync.Mutex // guards the result fields below
	err            error
	skipReason     string
	selectedBranch string
}

func (s *nodeState) status() Status {
	return Status(s.state.Load())
}

// Engine executes one rule graph. Build a fresh instance per run.
type Engine struct {
	graph *graph.Graph
	store *flowstore.Store
	opts  Options

	nodes   map[string]*nodeState
	order   []string
	initial map[string]cty.Value

	wg    sync.WaitGroup
	ready chan *nodeState
}

// New creates an engine over a graph. The graph is not validated here;
// Run refuses to execute an invalid graph.
func New(g *graph.Graph, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Engine{
		graph: g,
		store: flowstore.New(),
		opts:  opts,
		nodes: make(map[string]*nodeState),
	}
}

// Store exposes the run's flow store for diagnostics.
func (e *Engine) Store() *flowstore.Store {
	return e.store
}

// FlowContext returns a node's tracked bindings after a run, if it succeeded.
func (e *Engine) FlowContext(node string) (map[string]cty.Value, bool) {
	return e.store.Get(node)
}

// Render returns a textual description of the underlying graph.
func (e *Engine) Render() string {
	return e.graph.Render()
}

// Run validates the graph, executes it and returns a result for every node.
// Structural errors abort before anything executes; runtime errors never
// abort the run. The initial bindings become the start node's flow entry.
func (e *Engine) Run(ctx context.Context, initial map[string]cty.Value) (*RunResult, error) {
	logger := ctxlog.FromContext(ctx)

	if ok, errs := e.graph.Validate(); !ok {
		logger.Error("Refusing to execute an invalid graph.", "errors", len(errs))
		return nil, errors.Join(errs...)
	}

	order, err := e.graph.ExecutionOrder()
	if err != nil {
		return nil, err
	}
	e.order = order
	e.prepare(initial)

	runID := uuid.NewString()
	logger.Info("Starting run.", "run_id", runID, "nodes", len(e.order), "workers", e.opts.Workers)

	e.ready = make(chan *nodeState, len(e.nodes))
	e.wg.Add(len(e.nodes))

	// Seed the pool with nodes that have no prerequisites, in registration
	// order. In a validated graph that is exactly the start node.
	for _, name := range e.order {
		if st := e.nodes[name]; st.depCount.Load() == 0 {
			e.ready <- st
		}
	}

	for i := 0; i < e.opts.Workers; i++ {
		go e.worker(ctx, i)
	}
	e.wg.Wait()
	close(e.ready)

	result := e.collect(runID)
	logger.Info("Run complete.",
		"run_id", runID,
		"succeeded", result.Summary.Succeeded,
		"failed", result.Summary.Failed,
		"skipped", result.Summary.Skipped,
	)
	return result, nil
}

// prepare builds per-node runtime state: dependency counters and the
// transitive ancestor list that bounds each node's visibility.
func (e *Engine) prepare(initial map[string]cty.Value) {
	e.initial = initial
	ancestors := make(map[string][]string, len(e.order))

	for _, name := range e.order {
		node, _ := e.graph.Node(name)
		st := &nodeState{node: node}

		preds := e.predecessors(name)
		st.depCount.Store(int32(len(preds)))

		seen := make(map[string]struct{})
		var anc []string
		appendAnc := func(n string) {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				anc = append(anc, n)
			}
		}
		for _, p := range preds {
			for _, a := range ancestors[p] {
				appendAnc(a)
			}
			appendAnc(p)
		}
		ancestors[name] = anc
		st.ancestors = anc

		e.nodes[name] = st
	}
}

// predecessors returns every direct upstream of a node, plain edges first.
func (e *Engine) predecessors(name string) []string {
	preds := e.graph.PlainDeps(name)
	for _, edge := range e.graph.BranchDeps(name) {
		preds = append(preds, edge.Source)
	}
	return preds
}

// collect assembles the final result map and summary.
func (e *Engine) collect(runID string) *RunResult {
	results := make(map[string]Result, len(e.nodes))
	summary := Summary{RunID: runID, Total: len(e.nodes), Order: e.order}

	for name, st := range e.nodes {
		st.mu.Lock()
		r := Result{
			Status:         st.status(),
			Err:            st.err,
			SkipReason:     st.skipReason,
			SelectedBranch: st.selectedBranch,
		}
		st.mu.Unlock()

		if r.Status == Success {
			if bindings, ok := e.store.Get(name); ok {
				r.Bindings = bindings
			}
		}
		results[name] = r

		switch r.Status {
		case Success:
			summary.Succeeded++
		case Failed:
			summary.Failed++
		case Skipped:
			summary.Skipped++
		}
	}
	if summary.Total > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Total)
	}
	return &RunResult{Results: results, Summary: summary}
}
