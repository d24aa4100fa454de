package binding

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vk/rulegridgo/internal/dateexpr"
)

// Shape names how a variable is stored and what kind of value it loads into.
type Shape string

const (
	// ShapeValue loads a single scalar.
	ShapeValue Shape = "value"
	// ShapeJSON loads a JSON document as a structured value.
	ShapeJSON Shape = "json"
	// ShapeTimeseries loads the raw points of a series as a ds/value table.
	ShapeTimeseries Shape = "timeseries"
	// ShapeDenseTS loads a series densified to one row per day, missing
	// samples filled with zero.
	ShapeDenseTS Shape = "densets"
)

// ParseShape validates a shape name from configuration.
func ParseShape(s string) (Shape, error) {
	switch Shape(s) {
	case ShapeValue, ShapeJSON, ShapeTimeseries, ShapeDenseTS:
		return Shape(s), nil
	}
	return "", fmt.Errorf("unknown binding shape %q", s)
}

// Variable declares one externally loaded variable.
type Variable struct {
	Name   string
	Shape  Shape
	Prefix map[string]string
	Field  string

	// From and To bound series loads. They accept date tokens and
	// placeholders and default to the job time when empty.
	From string
	To   string
}

// Job carries the run inputs every expansion is resolved against.
type Job struct {
	Time         time.Time
	Placeholders map[string]string
}

// keySeparator joins the parts of a storage key.
const keySeparator = "::"

// BuildKey constructs the storage key of a variable:
// namespace::shape::k=v::…::field, with the prefix parts sorted
// lexicographically so equal prefixes always address the same key. Prefix
// values are expanded against the job before sorting; an unresolved
// placeholder is an error.
func BuildKey(namespace string, v *Variable, job Job) (string, error) {
	parts := []string{namespace, string(v.Shape)}

	prefix := make([]string, 0, len(v.Prefix))
	for k, raw := range v.Prefix {
		expanded, err := dateexpr.ExpandStrict(raw, job.Time, job.Placeholders)
		if err != nil {
			return "", fmt.Errorf("variable %q prefix %q: %w", v.Name, k, err)
		}
		prefix = append(prefix, k+"="+expanded)
	}
	sort.Strings(prefix)
	parts = append(parts, prefix...)

	if v.Field != "" {
		field, err := dateexpr.ExpandStrict(v.Field, job.Time, job.Placeholders)
		if err != nil {
			return "", fmt.Errorf("variable %q field: %w", v.Name, err)
		}
		parts = append(parts, field)
	}
	return strings.Join(parts, keySeparator), nil
}

// seriesBounds resolves a variable's From/To range against the job. An empty
// bound falls back to the job time itself.
func seriesBounds(v *Variable, job Job) (time.Time, time.Time, error) {
	resolve := func(raw string) (time.Time, error) {
		if raw == "" {
			return job.Time, nil
		}
		expanded, err := dateexpr.ExpandStrict(raw, job.Time, job.Placeholders)
		if err != nil {
			return time.Time{}, err
		}
		return dateexpr.ParseJobDate(expanded)
	}

	from, err := resolve(v.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("variable %q from: %w", v.Name, err)
	}
	to, err := resolve(v.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("variable %q to: %w", v.Name, err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("variable %q: range end %s precedes start %s", v.Name, to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	return from, to, nil
}
