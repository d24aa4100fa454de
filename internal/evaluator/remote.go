package evaluator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/vk/rulegridgo/internal/ctxlog"
)

// RemoteLogic delegates evaluation to an HTTP endpoint: the visible bindings
// are POSTed as a JSON object and the response body is decoded back into a
// binding map. Determinism is the endpoint's contract, not the engine's.
type RemoteLogic struct {
	URL    string
	Client *http.Client
}

// NewRemoteLogic builds a remote Logic evaluator against the given URL.
func NewRemoteLogic(url string, client *http.Client) *RemoteLogic {
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteLogic{URL: url, Client: client}
}

// Evaluate implements Logic.
func (r *RemoteLogic) Evaluate(ctx context.Context, bindings map[string]cty.Value) (map[string]cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Calling remote evaluator.", "url", r.URL, "bindings", len(bindings))

	body, err := r.post(ctx, bindings)
	if err != nil {
		return nil, &EvaluationError{Cause: fmt.Sprintf("remote call to %s", r.URL), Err: err}
	}

	impliedType, err := ctyjson.ImpliedType(body)
	if err != nil {
		return nil, &EvaluationError{Cause: "decoding remote response", Err: err}
	}
	decoded, err := ctyjson.Unmarshal(body, impliedType)
	if err != nil {
		return nil, &EvaluationError{Cause: "decoding remote response", Err: err}
	}
	if !decoded.Type().IsObjectType() {
		return nil, &EvaluationError{Cause: "remote response is not a JSON object"}
	}
	return decoded.AsValueMap(), nil
}

// post sends the bindings as JSON and returns the raw response body.
func (r *RemoteLogic) post(ctx context.Context, bindings map[string]cty.Value) ([]byte, error) {
	payload := cty.EmptyObjectVal
	if len(bindings) > 0 {
		payload = cty.ObjectVal(bindings)
	}
	encoded, err := ctyjson.Marshal(payload, payload.Type())
	if err != nil {
		return nil, fmt.Errorf("encoding bindings: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote evaluator returned %s: %s", resp.Status, string(body))
	}
	return body, nil
}
