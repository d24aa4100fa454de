package binding

import (
	"context"
	"time"
)

// Point is one sample of a stored time series.
type Point struct {
	Ts    time.Time
	Value float64
}

// Store is the boundary to the external data source variables are loaded
// from. Implementations must be safe for concurrent use; the provider loads
// variables in parallel.
type Store interface {
	// Get returns the raw string stored under key. The boolean reports
	// whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// GetJSON returns the raw JSON document stored under key.
	GetJSON(ctx context.Context, key string) (string, bool, error)

	// RangeSeries returns the points of the series stored under key with
	// timestamps in [from, to], in ascending timestamp order.
	RangeSeries(ctx context.Context, key string, from, to time.Time) ([]Point, error)
}
