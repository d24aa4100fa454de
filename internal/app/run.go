package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/rulegridgo/internal/binding"
	"github.com/vk/rulegridgo/internal/ctxlog"
	"github.com/vk/rulegridgo/internal/dateexpr"
	"github.com/vk/rulegridgo/internal/engine"
	"github.com/vk/rulegridgo/internal/value"
)

// Run executes the loaded grid end to end and renders the outcome to the out
// writer. It returns an error when the run could not start or when any node
// failed, so callers can map the outcome to an exit code.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.Visualize {
		fmt.Fprint(a.outW, a.build.Graph.Render())
		return nil
	}

	initial, err := a.loadBindings(ctx, a.job)
	if err != nil {
		return fmt.Errorf("failed to load bindings: %w", err)
	}

	opts := a.build.Engine
	if a.config.Workers > 0 {
		opts.Workers = a.config.Workers
	}

	a.logger.Info("Starting rule graph execution.", "job_date", a.job.Time.Format(time.DateTime))
	eng := engine.New(a.build.Graph, opts)
	result, err := eng.Run(ctx, initial)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")

	a.renderResult(result)

	if failed := result.Summary.Failed; failed > 0 {
		return fmt.Errorf("%d of %d nodes failed", failed, result.Summary.Total)
	}
	return nil
}

// resolveJob turns the configured job date and placeholders into a binding
// job. An empty job date means "now".
func resolveJob(cfg *Config) (binding.Job, error) {
	job := binding.Job{Time: time.Now(), Placeholders: cfg.Placeholders}
	if cfg.JobDate != "" {
		ts, err := dateexpr.ParseJobDate(cfg.JobDate)
		if err != nil {
			return binding.Job{}, fmt.Errorf("invalid job date %q: %w", cfg.JobDate, err)
		}
		job.Time = ts
	}
	return job, nil
}

// loadBindings resolves the grid's declared variables into initial bindings.
// The job date and every placeholder are always bound so expressions can
// reach them without declaring a variable.
func (a *App) loadBindings(ctx context.Context, job binding.Job) (map[string]cty.Value, error) {
	initial := map[string]cty.Value{
		"job_date": cty.StringVal(job.Time.Format(time.DateOnly)),
	}
	for name, v := range job.Placeholders {
		initial[name] = cty.StringVal(v)
	}

	if len(a.build.Variables) == 0 {
		return initial, nil
	}

	provider := binding.NewProvider(a.store, a.build.Namespace)
	loaded, err := provider.Load(ctx, a.build.Variables, job)
	if err != nil {
		return nil, err
	}
	for name, v := range loaded {
		initial[name] = v
	}
	return initial, nil
}

// renderResult prints every node's outcome in execution order followed by
// the run summary.
func (a *App) renderResult(result *engine.RunResult) {
	fmt.Fprintf(a.outW, "Run %s\n", result.Summary.RunID)

	for _, name := range result.Summary.Order {
		r := result.Results[name]
		switch {
		case r.SelectedBranch != "":
			fmt.Fprintf(a.outW, "  %-10s %s (branch %s)\n", r.Status, name, r.SelectedBranch)
		case r.Status == engine.Skipped && r.SkipReason != "":
			fmt.Fprintf(a.outW, "  %-10s %s (%s)\n", r.Status, name, r.SkipReason)
		case r.Status == engine.Failed && r.Err != nil:
			fmt.Fprintf(a.outW, "  %-10s %s: %v\n", r.Status, name, r.Err)
		default:
			fmt.Fprintf(a.outW, "  %-10s %s\n", r.Status, name)
		}
		if len(r.Bindings) > 0 {
			for _, variable := range sortedVariables(r.Bindings) {
				fmt.Fprintf(a.outW, "             %s = %s\n", variable, renderValue(r.Bindings[variable]))
			}
		}
	}

	s := result.Summary
	fmt.Fprintf(a.outW, "%d nodes: %d succeeded, %d failed, %d skipped (%.0f%% success)\n",
		s.Total, s.Succeeded, s.Failed, s.Skipped, s.SuccessRate*100)
}

func sortedVariables(bindings map[string]cty.Value) []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// renderValue keeps the per-node output listing readable: primitives print
// their value, structured values print their shape.
func renderValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	t := v.Type()
	switch {
	case t == cty.String:
		return fmt.Sprintf("%q", v.AsString())
	case t == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return fmt.Sprintf("%g", f)
	case t == cty.Bool:
		return fmt.Sprintf("%t", v.True())
	case value.KindOf(v) == value.KindTable:
		return fmt.Sprintf("<%d rows>", value.RowCount(v))
	case t.IsTupleType(), t.IsListType(), t.IsSetType():
		return fmt.Sprintf("<%d items>", v.LengthInt())
	default:
		return fmt.Sprintf("<%s>", t.FriendlyName())
	}
}
