package binding

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an ephemeral, thread-safe Store for local runs and tests.
// Scalar values live in a sync.Map so concurrent variable loads never
// contend; series are guarded by a mutex because appends rewrite the slice.
type MemoryStore struct {
	values sync.Map // key string -> string

	mu     sync.RWMutex
	series map[string][]Point // kept sorted by timestamp
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]Point)}
}

// Set stores a raw string value under key.
func (s *MemoryStore) Set(key, value string) {
	s.values.Store(key, value)
}

// AddPoint appends one sample to the series under key.
func (s *MemoryStore) AddPoint(key string, p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := append(s.series[key], p)
	sort.Slice(points, func(i, j int) bool { return points[i].Ts.Before(points[j].Ts) })
	s.series[key] = points
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.values.Load(key)
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

// GetJSON implements Store. JSON documents share the value keyspace.
func (s *MemoryStore) GetJSON(ctx context.Context, key string) (string, bool, error) {
	return s.Get(ctx, key)
}

// RangeSeries implements Store.
func (s *MemoryStore) RangeSeries(_ context.Context, key string, from, to time.Time) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Point
	for _, p := range s.series[key] {
		if p.Ts.Before(from) || p.Ts.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
