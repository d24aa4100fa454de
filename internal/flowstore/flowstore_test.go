package flowstore

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// ctyComparer lets cmp diff binding maps without reaching into cty internals.
var ctyComparer = cmp.Comparer(func(a, b cty.Value) bool { return a.RawEquals(b) })

func TestPutAndGet(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("a", map[string]cty.Value{"x": cty.NumberIntVal(1)}))

	entry, ok := s.Get("a")
	require.True(t, ok)
	assert.True(t, cty.NumberIntVal(1).RawEquals(entry["x"]))

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestPutIsWriteOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("a", map[string]cty.Value{"x": cty.NumberIntVal(1)}))

	err := s.Put("a", map[string]cty.Value{"x": cty.NumberIntVal(2)})
	assert.ErrorContains(t, err, "already written")

	entry, _ := s.Get("a")
	assert.True(t, cty.NumberIntVal(1).RawEquals(entry["x"]), "first write must survive")
}

func TestPutCopiesBindings(t *testing.T) {
	s := New()
	bindings := map[string]cty.Value{"x": cty.NumberIntVal(1)}
	require.NoError(t, s.Put("a", bindings))

	bindings["x"] = cty.NumberIntVal(99)
	entry, _ := s.Get("a")
	assert.True(t, cty.NumberIntVal(1).RawEquals(entry["x"]))
}

func TestVisibleMergesInOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Put("a", map[string]cty.Value{"x": cty.NumberIntVal(1), "y": cty.StringVal("a")}))
	require.NoError(t, s.Put("b", map[string]cty.Value{"x": cty.NumberIntVal(2)}))

	merged := s.Visible([]string{"a", "b", "never-ran"})
	want := map[string]cty.Value{
		"x": cty.NumberIntVal(2), // later ancestor wins
		"y": cty.StringVal("a"),
	}
	assert.Empty(t, cmp.Diff(want, merged, ctyComparer))
}

func TestConcurrentWritersDistinctNodes(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := string(rune('a' + n%26))
			// Only the first writer per name may win; everyone else must get
			// the write-once error, never a partial state.
			_ = s.Put(name, map[string]cty.Value{"n": cty.NumberIntVal(int64(n))})
		}(i)
	}
	wg.Wait()

	snapshot := s.Snapshot()
	assert.Len(t, snapshot, 26)
	for _, entry := range snapshot {
		assert.Len(t, entry, 1)
	}
}
