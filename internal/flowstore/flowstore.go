// Package flowstore holds each node's tracked-variable output for one run.
//
// Entries follow a strict write-once discipline: a node's bindings are stored
// exactly once, after its successful execution, and never mutated afterwards.
// That makes concurrent reads of completed ancestor entries safe without any
// locking; only the insert itself is synchronized, via sync.Map.
package flowstore

import (
	"fmt"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Store is the per-run record of tracked-variable bindings, keyed by node name.
type Store struct {
	entries sync.Map // node name -> map[string]cty.Value, immutable once stored
}

// New creates an empty store for a single run.
func New() *Store {
	return &Store{}
}

// Put records a node's tracked bindings. The bindings are copied so later
// mutation by the caller cannot leak into the store. Writing the same node
// twice is a programmer error and is rejected.
func (s *Store) Put(node string, bindings map[string]cty.Value) error {
	entry := make(map[string]cty.Value, len(bindings))
	for name, v := range bindings {
		entry[name] = v
	}
	if _, loaded := s.entries.LoadOrStore(node, entry); loaded {
		return fmt.Errorf("flow entry for node %q already written", node)
	}
	return nil
}

// Get returns the stored bindings of a node. The returned map is shared and
// must be treated as read-only.
func (s *Store) Get(node string) (map[string]cty.Value, bool) {
	entry, ok := s.entries.Load(node)
	if !ok {
		return nil, false
	}
	return entry.(map[string]cty.Value), true
}

// Visible merges the entries of the given ancestor nodes, in order, into a
// fresh binding map. When two ancestors track the same variable name, the
// later one in the list wins.
func (s *Store) Visible(ancestors []string) map[string]cty.Value {
	merged := make(map[string]cty.Value)
	for _, node := range ancestors {
		entry, ok := s.Get(node)
		if !ok {
			continue
		}
		for name, v := range entry {
			merged[name] = v
		}
	}
	return merged
}

// Snapshot returns a copy of every entry, for diagnostics.
func (s *Store) Snapshot() map[string]map[string]cty.Value {
	out := make(map[string]map[string]cty.Value)
	s.entries.Range(func(key, val any) bool {
		entry := val.(map[string]cty.Value)
		cp := make(map[string]cty.Value, len(entry))
		for name, v := range entry {
			cp[name] = v
		}
		out[key.(string)] = cp
		return true
	})
	return out
}
