package engine

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// Status is the lifecycle state of a node during a run. Nodes move
// Pending -> Running -> {Success, Failed}, or Pending -> Skipped without ever
// entering Running.
type Status int32

const (
	Pending Status = iota
	Running
	Success
	Failed
	Skipped
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Result is the per-node outcome of a run. Bindings are only populated for
// Success; a non-success node never exposes partial output.
type Result struct {
	Status         Status
	Bindings       map[string]cty.Value
	Err            error
	SkipReason     string
	SelectedBranch string
}

// Summary aggregates a finished run.
type Summary struct {
	RunID       string
	Total       int
	Succeeded   int
	Failed      int
	Skipped     int
	SuccessRate float64
	Order       []string
}

// RunResult is the full outcome of one engine run.
type RunResult struct {
	Results map[string]Result
	Summary Summary
}

// NoBranchSelectedError reports a gate whose conditions all evaluated false
// and which had no default branch to fall back to.
type NoBranchSelectedError struct {
	Gate string
}

func (e *NoBranchSelectedError) Error() string {
	return fmt.Sprintf("gate %q selected no branch", e.Gate)
}

// MissingTrackedVariableError reports an evaluator that did not produce a
// variable its node declared as tracked.
type MissingTrackedVariableError struct {
	Node     string
	Variable string
}

func (e *MissingTrackedVariableError) Error() string {
	return fmt.Sprintf("node %q tracked variable %q missing from evaluator output", e.Node, e.Variable)
}
