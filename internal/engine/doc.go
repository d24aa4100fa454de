// Package engine schedules and executes a validated rule graph.
//
// An Engine instance owns its graph, flow store and policies, and is built
// per run; concurrent runs use independent instances. Execution is driven by
// a worker pool over a ready channel: a node is handed to a worker only when
// every plain predecessor succeeded and every required branch was selected.
// Failures and unselected branches prune downstream subtrees before they run,
// so evaluators never fire on dead paths. A run always completes and returns
// a result for every node; runtime errors are captured per node, never
// propagated out of the scheduler.
package engine
