package binding

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	"golang.org/x/sync/errgroup"

	"github.com/vk/rulegridgo/internal/ctxlog"
)

// Provider loads declared variables from a Store and turns them into the
// initial bindings of a run.
type Provider struct {
	store     Store
	namespace string
}

// NewProvider creates a provider reading from store under the given
// namespace.
func NewProvider(store Store, namespace string) *Provider {
	return &Provider{store: store, namespace: namespace}
}

// loadPlan is one variable's fully resolved load, computed before any store
// access so expansion errors abort the whole load up front.
type loadPlan struct {
	variable *Variable
	key      string
	from     time.Time
	to       time.Time
}

// Load resolves and loads all variables. Key expansion failures abort before
// anything is read; a store failure on one variable logs a warning and binds
// null instead of failing the run.
func (p *Provider) Load(ctx context.Context, vars []*Variable, job Job) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)

	plans := make([]loadPlan, 0, len(vars))
	for _, v := range vars {
		key, err := BuildKey(p.namespace, v, job)
		if err != nil {
			return nil, err
		}
		plan := loadPlan{variable: v, key: key}
		if v.Shape == ShapeTimeseries || v.Shape == ShapeDenseTS {
			plan.from, plan.to, err = seriesBounds(v, job)
			if err != nil {
				return nil, err
			}
		}
		plans = append(plans, plan)
	}

	results := make([]cty.Value, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	for i, plan := range plans {
		g.Go(func() error {
			val, err := p.load(gctx, plan)
			if err != nil {
				logger.Warn("Variable load failed, binding null.",
					"variable", plan.variable.Name, "key", plan.key, "error", err)
				val = cty.NullVal(cty.DynamicPseudoType)
			}
			results[i] = val
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bindings := make(map[string]cty.Value, len(plans))
	for i, plan := range plans {
		bindings[plan.variable.Name] = results[i]
	}
	return bindings, nil
}

func (p *Provider) load(ctx context.Context, plan loadPlan) (cty.Value, error) {
	switch plan.variable.Shape {
	case ShapeValue:
		raw, ok, err := p.store.Get(ctx, plan.key)
		if err != nil {
			return cty.NilVal, err
		}
		if !ok {
			return cty.NilVal, fmt.Errorf("key %q not found", plan.key)
		}
		return scalarValue(raw), nil

	case ShapeJSON:
		raw, ok, err := p.store.GetJSON(ctx, plan.key)
		if err != nil {
			return cty.NilVal, err
		}
		if !ok {
			return cty.NilVal, fmt.Errorf("key %q not found", plan.key)
		}
		ty, err := ctyjson.ImpliedType([]byte(raw))
		if err != nil {
			return cty.NilVal, fmt.Errorf("key %q holds invalid JSON: %w", plan.key, err)
		}
		return ctyjson.Unmarshal([]byte(raw), ty)

	case ShapeTimeseries:
		points, err := p.store.RangeSeries(ctx, plan.key, plan.from, plan.to)
		if err != nil {
			return cty.NilVal, err
		}
		return seriesTable(points), nil

	case ShapeDenseTS:
		points, err := p.store.RangeSeries(ctx, plan.key, plan.from, plan.to)
		if err != nil {
			return cty.NilVal, err
		}
		return denseSeriesTable(points, plan.from, plan.to), nil

	default:
		return cty.NilVal, fmt.Errorf("unknown binding shape %q", plan.variable.Shape)
	}
}

// scalarValue infers the natural type of a stored string: booleans and
// numbers come back typed, anything else stays a string.
func scalarValue(raw string) cty.Value {
	if b, err := strconv.ParseBool(raw); err == nil {
		return cty.BoolVal(b)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return cty.NumberFloatVal(f)
	}
	return cty.StringVal(raw)
}

// formatDS renders a sample timestamp: date-only when the sample sits on a
// day boundary, full datetime otherwise.
func formatDS(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.DateTime)
}

// seriesTable renders points as a ds/value table, one row per sample.
func seriesTable(points []Point) cty.Value {
	rows := make([]cty.Value, 0, len(points))
	for _, p := range points {
		rows = append(rows, cty.ObjectVal(map[string]cty.Value{
			"ds":    cty.StringVal(formatDS(p.Ts)),
			"value": cty.NumberFloatVal(p.Value),
		}))
	}
	if len(rows) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(rows)
}

// denseSeriesTable renders points on a daily grid covering [from, to], one
// row per day with missing samples carried as zero. Later samples on the
// same day win.
func denseSeriesTable(points []Point, from, to time.Time) cty.Value {
	byDay := make(map[string]float64, len(points))
	for _, p := range points {
		byDay[p.Ts.Format(time.DateOnly)] = p.Value
	}

	var rows []cty.Value
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	for day := start; !day.After(to); day = day.AddDate(0, 0, 1) {
		ds := day.Format(time.DateOnly)
		rows = append(rows, cty.ObjectVal(map[string]cty.Value{
			"ds":    cty.StringVal(ds),
			"value": cty.NumberFloatVal(byDay[ds]),
		}))
	}
	if len(rows) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(rows)
}
