package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestRemoteLogicEvaluate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(5), req["n"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result": 10, "tag": "ok"}`))
	}))
	defer srv.Close()

	logic := NewRemoteLogic(srv.URL, srv.Client())
	out, err := logic.Evaluate(context.Background(), map[string]cty.Value{"n": cty.NumberIntVal(5)})
	require.NoError(t, err)

	assert.True(t, cty.NumberIntVal(10).RawEquals(out["result"]))
	assert.Equal(t, "ok", out["tag"].AsString())
}

func TestRemoteLogicServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logic := NewRemoteLogic(srv.URL, srv.Client())
	_, err := logic.Evaluate(context.Background(), nil)

	var evalErr *EvaluationError
	require.ErrorAs(t, err, &evalErr)
	assert.ErrorContains(t, err, "500")
}

func TestRemoteLogicNonObjectResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	}))
	defer srv.Close()

	logic := NewRemoteLogic(srv.URL, srv.Client())
	_, err := logic.Evaluate(context.Background(), nil)
	assert.ErrorContains(t, err, "not a JSON object")
}
