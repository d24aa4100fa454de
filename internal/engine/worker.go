package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rulegridgo/internal/ctxlog"
	"github.com/vk/rulegridgo/internal/graph"
	"github.com/vk/rulegridgo/internal/value"
)

// collectionBinding is the reserved input variable a collection evaluator
// receives its aggregated upstream contributions under.
const collectionBinding = "collection"

func (e *Engine) worker(ctx context.Context, id int) {
	logger := ctxlog.FromContext(ctx).With("worker", id)
	for st := range e.ready {
		if !st.state.CompareAndSwap(int32(Pending), int32(Running)) {
			// Pruned while queued. The pruner already accounted for it.
			continue
		}
		if err := ctx.Err(); err != nil {
			e.finishFailed(st, err)
			continue
		}
		logger.Debug("Executing node.", "node", st.node.Name, "kind", st.node.Kind.String())
		e.execute(ctx, st)
	}
}

func (e *Engine) execute(ctx context.Context, st *nodeState) {
	switch st.node.Kind {
	case graph.KindStart:
		e.runStart(st)
	case graph.KindGate:
		e.runGate(ctx, st)
	case graph.KindCollection:
		e.runCollection(ctx, st)
	default:
		e.runLogic(ctx, st)
	}
}

// runStart publishes the run's initial bindings as the start node's flow
// entry so every node in the graph can see them.
func (e *Engine) runStart(st *nodeState) {
	bindings := e.initial
	if bindings == nil {
		bindings = map[string]cty.Value{}
	}
	if err := e.store.Put(st.node.Name, bindings); err != nil {
		e.finishFailed(st, err)
		return
	}
	e.finishSuccess(st)
}

func (e *Engine) runLogic(ctx context.Context, st *nodeState) {
	bindings := e.store.Visible(st.ancestors)

	if mismatch := e.checkExpectations(st.node, bindings); mismatch != nil {
		e.finishMismatch(st, mismatch)
		return
	}

	outputs, err := st.node.Logic.Evaluate(ctx, bindings)
	if err != nil {
		e.finishFailed(st, err)
		return
	}
	e.publish(st, outputs)
}

// runGate evaluates the gate's conditions in declaration order against the
// visible bindings and commits to the first true one. Subtrees reachable only
// through other branches are pruned before any dependent can become ready.
func (e *Engine) runGate(ctx context.Context, st *nodeState) {
	bindings := e.store.Visible(st.ancestors)

	if mismatch := e.checkExpectations(st.node, bindings); mismatch != nil {
		e.finishMismatch(st, mismatch)
		return
	}

	selected := ""
	for _, b := range st.node.Branches {
		ok, err := b.Condition.Evaluate(ctx, bindings)
		if err != nil {
			e.finishFailed(st, err)
			return
		}
		if ok {
			selected = b.Alias
			break
		}
	}
	if selected == "" && st.node.DefaultBranch != "" {
		selected = st.node.DefaultBranch
	}
	if selected == "" && e.opts.GatePolicy == NoBranchFail {
		e.finishFailed(st, &NoBranchSelectedError{Gate: st.node.Name})
		return
	}

	st.mu.Lock()
	st.selectedBranch = selected
	st.mu.Unlock()

	// A dependent wired to a non-selected branch is pruned; one wired to the
	// selected branch, or to the gate by a plain edge, proceeds. Pruning runs
	// before the success transition so a pruned subtree can never be queued.
	survivors := make([]string, 0, len(e.graph.Dependents(st.node.Name)))
	for _, dep := range dedupe(e.graph.Dependents(st.node.Name)) {
		if e.branchSatisfied(st.node.Name, dep, selected) {
			survivors = append(survivors, dep)
		} else {
			e.markSkipped(dep, fmt.Sprintf("branch path from gate %q not selected", st.node.Name))
		}
	}

	st.state.Store(int32(Success))
	e.wg.Done()
	for _, dep := range survivors {
		for range e.edgesFrom(st.node.Name, dep) {
			e.decrement(dep)
		}
	}
}

// runCollection aggregates the flow entries of its successful upstreams. An
// upstream contributes only if it satisfies every schema the collection
// declares; failed or skipped upstreams are silently left out.
func (e *Engine) runCollection(ctx context.Context, st *nodeState) {
	upstreams := e.predecessors(st.node.Name)

	succeeded := 0
	var elems []cty.Value
	for _, up := range dedupe(upstreams) {
		upState, ok := e.nodes[up]
		if !ok || upState.status() != Success {
			continue
		}
		succeeded++
		entry, ok := e.store.Get(up)
		if !ok {
			continue
		}
		if !collectionAccepts(st.node, entry) {
			continue
		}
		elems = append(elems, cty.ObjectVal(map[string]cty.Value{
			"node":     cty.StringVal(up),
			"score":    cty.NumberFloatVal(st.node.Scores[up]),
			"bindings": cty.ObjectVal(entry),
		}))
	}
	if succeeded == 0 {
		e.finishSkipped(st, "no upstream of the collection succeeded")
		return
	}

	bindings := e.store.Visible(st.ancestors)
	if len(elems) == 0 {
		bindings[collectionBinding] = cty.EmptyTupleVal
	} else {
		bindings[collectionBinding] = cty.TupleVal(elems)
	}

	outputs, err := st.node.Logic.Evaluate(ctx, bindings)
	if err != nil {
		e.finishFailed(st, err)
		return
	}
	e.publish(st, outputs)
}

// collectionAccepts reports whether one upstream's flow entry satisfies every
// schema expectation the collection declares. A missing variable disqualifies
// the upstream the same way an invalid one does.
func collectionAccepts(n *graph.Node, entry map[string]cty.Value) bool {
	for variable, schema := range n.Expect {
		v, ok := entry[variable]
		if !ok {
			return false
		}
		if err := schema.Validate(v); err != nil {
			return false
		}
	}
	return true
}

// checkExpectations gates a consumer on its declared input schemas. The
// variables are checked in sorted order so the reported mismatch is stable.
func (e *Engine) checkExpectations(n *graph.Node, bindings map[string]cty.Value) *value.SchemaMismatchError {
	if len(n.Expect) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Expect))
	for variable := range n.Expect {
		names = append(names, variable)
	}
	sort.Strings(names)

	for _, variable := range names {
		schema := n.Expect[variable]
		v, ok := bindings[variable]
		if !ok {
			return &value.SchemaMismatchError{
				Variable: variable,
				Want:     schema.String(),
				Err:      fmt.Errorf("variable is not bound"),
			}
		}
		if err := schema.Validate(v); err != nil {
			return &value.SchemaMismatchError{Variable: variable, Want: schema.String(), Err: err}
		}
	}
	return nil
}

// publish enforces the tracked-variable contract and writes the node's flow
// entry. Only tracked variables leave the node; everything else the evaluator
// produced stays local.
func (e *Engine) publish(st *nodeState, outputs map[string]cty.Value) {
	tracked := make(map[string]cty.Value, len(st.node.Tracked))
	for _, variable := range st.node.Tracked {
		v, ok := outputs[variable]
		if !ok {
			e.finishFailed(st, &MissingTrackedVariableError{Node: st.node.Name, Variable: variable})
			return
		}
		tracked[variable] = v
	}
	if err := e.store.Put(st.node.Name, tracked); err != nil {
		e.finishFailed(st, err)
		return
	}
	e.finishSuccess(st)
}

// finishSuccess transitions a running node to Success and releases its
// dependents, queueing any whose last prerequisite this was.
func (e *Engine) finishSuccess(st *nodeState) {
	st.state.Store(int32(Success))
	e.wg.Done()
	for _, dep := range e.graph.Dependents(st.node.Name) {
		e.decrement(dep)
	}
}

func (e *Engine) finishFailed(st *nodeState, err error) {
	st.mu.Lock()
	st.err = err
	st.mu.Unlock()
	st.state.Store(int32(Failed))
	e.wg.Done()
	e.skipDependents(st.node.Name)
}

// finishSkipped handles a node that decided at execution time not to run,
// such as a collection with no successful upstream.
func (e *Engine) finishSkipped(st *nodeState, reason string) {
	st.mu.Lock()
	st.skipReason = reason
	st.mu.Unlock()
	st.state.Store(int32(Skipped))
	e.wg.Done()
	e.skipDependents(st.node.Name)
}

// finishMismatch applies the configured mismatch policy to a consumer whose
// input failed schema gating.
func (e *Engine) finishMismatch(st *nodeState, mismatch *value.SchemaMismatchError) {
	if e.opts.MismatchPolicy == MismatchFail {
		e.finishFailed(st, mismatch)
		return
	}
	e.finishSkipped(st, mismatch.Error())
}

// skipDependents cascades a failure or skip downstream. Collection dependents
// are the exception: a collection tolerates unavailable upstreams, so its
// edges are released instead of pruned and it decides its own fate when it
// runs.
func (e *Engine) skipDependents(name string) {
	for _, dep := range e.graph.Dependents(name) {
		depState := e.nodes[dep]
		if depState.node.Kind == graph.KindCollection {
			e.decrement(dep)
			continue
		}
		e.markSkipped(dep, fmt.Sprintf("upstream %q did not succeed", name))
	}
}

// markSkipped prunes a pending node. The CAS makes concurrent pruners and the
// worker pool agree on exactly one terminal state per node.
func (e *Engine) markSkipped(name, reason string) {
	st, ok := e.nodes[name]
	if !ok {
		return
	}
	if !st.state.CompareAndSwap(int32(Pending), int32(Skipped)) {
		return
	}
	st.mu.Lock()
	st.skipReason = reason
	st.mu.Unlock()
	e.wg.Done()
	e.skipDependents(name)
}

// decrement releases one prerequisite edge of a node and queues it once the
// last edge is released.
func (e *Engine) decrement(name string) {
	st, ok := e.nodes[name]
	if !ok {
		return
	}
	if st.depCount.Add(-1) == 0 && st.status() == Pending {
		e.ready <- st
	}
}

// branchSatisfied reports whether a gate dependent survives the gate's branch
// selection: every branch edge it holds from the gate must carry the selected
// alias. Plain edges from the gate impose no branch requirement.
func (e *Engine) branchSatisfied(gate, dep, selected string) bool {
	for _, edge := range e.graph.BranchDeps(dep) {
		if edge.Source != gate {
			continue
		}
		if edge.Alias != selected {
			return false
		}
	}
	return true
}

// edgesFrom returns the incoming edges dep holds from source, plain and
// branch alike, so the gate can release each one it satisfied.
func (e *Engine) edgesFrom(source, dep string) []string {
	var edges []string
	for _, s := range e.graph.PlainDeps(dep) {
		if s == source {
			edges = append(edges, s)
		}
	}
	for _, edge := range e.graph.BranchDeps(dep) {
		if edge.Source == source {
			edges = append(edges, edge.Source)
		}
	}
	return edges
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
