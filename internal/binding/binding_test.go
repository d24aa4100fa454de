package binding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func jobAt(t *testing.T, day string) Job {
	t.Helper()
	ts, err := time.Parse(time.DateOnly, day)
	require.NoError(t, err)
	return Job{Time: ts}
}

func TestBuildKey_SortsPrefixParts(t *testing.T) {
	v := &Variable{
		Name:  "price",
		Shape: ShapeValue,
		Prefix: map[string]string{
			"sym":    "AAPL",
			"region": "us",
			"desk":   "eq",
		},
		Field: "close",
	}

	key, err := BuildKey("quotes", v, jobAt(t, "2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "quotes::value::desk=eq::region=us::sym=AAPL::close", key)
}

func TestBuildKey_ExpandsPlaceholdersAndDateTokens(t *testing.T) {
	v := &Variable{
		Name:  "price",
		Shape: ShapeValue,
		Prefix: map[string]string{
			"sym": "${symbol}",
			"ds":  "${yyyy-MM-dd-1d}",
		},
	}
	job := jobAt(t, "2024-03-01")
	job.Placeholders = map[string]string{"symbol": "MSFT"}

	key, err := BuildKey("quotes", v, job)
	require.NoError(t, err)
	assert.Equal(t, "quotes::value::ds=2024-02-29::sym=MSFT", key)
}

func TestBuildKey_MissingPlaceholderFails(t *testing.T) {
	v := &Variable{
		Name:   "price",
		Shape:  ShapeValue,
		Prefix: map[string]string{"sym": "${symbol}"},
	}

	_, err := BuildKey("quotes", v, jobAt(t, "2024-03-01"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbol")
}

func TestParseShape(t *testing.T) {
	for _, name := range []string{"value", "json", "timeseries", "densets"} {
		shape, err := ParseShape(name)
		require.NoError(t, err)
		assert.Equal(t, Shape(name), shape)
	}
	_, err := ParseShape("tensor")
	require.Error(t, err)
}

func TestProvider_LoadsScalarShapes(t *testing.T) {
	store := NewMemoryStore()
	store.Set("ns::value::sym=AAPL", "187.5")
	store.Set("ns::value::flag=on", "true")
	store.Set("ns::value::name=x", "hello")

	p := NewProvider(store, "ns")
	vars := []*Variable{
		{Name: "price", Shape: ShapeValue, Prefix: map[string]string{"sym": "AAPL"}},
		{Name: "enabled", Shape: ShapeValue, Prefix: map[string]string{"flag": "on"}},
		{Name: "label", Shape: ShapeValue, Prefix: map[string]string{"name": "x"}},
	}

	bindings, err := p.Load(context.Background(), vars, jobAt(t, "2024-03-01"))
	require.NoError(t, err)

	assert.Equal(t, cty.NumberFloatVal(187.5), bindings["price"])
	assert.Equal(t, cty.True, bindings["enabled"])
	assert.Equal(t, cty.StringVal("hello"), bindings["label"])
}

func TestProvider_LoadsJSONShape(t *testing.T) {
	store := NewMemoryStore()
	store.Set("ns::json::id=1", `{"qty": 3, "side": "buy"}`)

	p := NewProvider(store, "ns")
	vars := []*Variable{{Name: "order", Shape: ShapeJSON, Prefix: map[string]string{"id": "1"}}}

	bindings, err := p.Load(context.Background(), vars, jobAt(t, "2024-03-01"))
	require.NoError(t, err)

	order := bindings["order"]
	require.True(t, order.Type().IsObjectType())
	assert.Equal(t, cty.StringVal("buy"), order.GetAttr("side"))
}

func TestProvider_MissingKeyBindsNull(t *testing.T) {
	p := NewProvider(NewMemoryStore(), "ns")
	vars := []*Variable{{Name: "ghost", Shape: ShapeValue, Prefix: map[string]string{"k": "v"}}}

	bindings, err := p.Load(context.Background(), vars, jobAt(t, "2024-03-01"))
	require.NoError(t, err, "a single missing variable must not abort the load")
	assert.True(t, bindings["ghost"].IsNull())
}

func TestProvider_LoadsTimeseriesShape(t *testing.T) {
	store := NewMemoryStore()
	key := "ns::timeseries::sym=AAPL"
	day := func(s string) time.Time {
		ts, err := time.Parse(time.DateOnly, s)
		require.NoError(t, err)
		return ts
	}
	store.AddPoint(key, Point{Ts: day("2024-02-27"), Value: 1})
	store.AddPoint(key, Point{Ts: day("2024-02-29"), Value: 3})
	store.AddPoint(key, Point{Ts: day("2024-03-05"), Value: 9}) // outside range

	p := NewProvider(store, "ns")
	vars := []*Variable{{
		Name:   "closes",
		Shape:  ShapeTimeseries,
		Prefix: map[string]string{"sym": "AAPL"},
		From:   "${yyyy-MM-dd-3d}",
	}}

	bindings, err := p.Load(context.Background(), vars, jobAt(t, "2024-03-01"))
	require.NoError(t, err)

	closes := bindings["closes"]
	require.Equal(t, 2, closes.LengthInt())
	first := closes.Index(cty.NumberIntVal(0))
	assert.Equal(t, cty.StringVal("2024-02-27"), first.GetAttr("ds"))
	assert.Equal(t, cty.NumberFloatVal(1), first.GetAttr("value"))
}

func TestProvider_DenseSeriesFillsGaps(t *testing.T) {
	store := NewMemoryStore()
	key := "ns::densets::sym=AAPL"
	ts, err := time.Parse(time.DateOnly, "2024-02-28")
	require.NoError(t, err)
	store.AddPoint(key, Point{Ts: ts, Value: 5})

	p := NewProvider(store, "ns")
	vars := []*Variable{{
		Name:   "dense",
		Shape:  ShapeDenseTS,
		Prefix: map[string]string{"sym": "AAPL"},
		From:   "${yyyy-MM-dd-2d}",
	}}

	bindings, err := p.Load(context.Background(), vars, jobAt(t, "2024-03-01"))
	require.NoError(t, err)

	dense := bindings["dense"]
	require.Equal(t, 3, dense.LengthInt()) // 02-28, 02-29, 03-01

	rows := dense.AsValueSlice()
	assert.Equal(t, cty.StringVal("2024-02-28"), rows[0].GetAttr("ds"))
	assert.Equal(t, cty.NumberFloatVal(5), rows[0].GetAttr("value"))
	assert.Equal(t, cty.StringVal("2024-02-29"), rows[1].GetAttr("ds"))
	assert.Equal(t, cty.NumberFloatVal(0), rows[1].GetAttr("value"))
	assert.Equal(t, cty.NumberFloatVal(0), rows[2].GetAttr("value"))
}

func TestSeriesBounds_RejectsInvertedRange(t *testing.T) {
	v := &Variable{Name: "s", Shape: ShapeTimeseries, From: "2024-03-05", To: "2024-03-01"}
	_, _, err := seriesBounds(v, jobAt(t, "2024-03-10"))
	require.Error(t, err)
}
