package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/agent"
)

// stubExecutor returns a canned result and records the last call.
type stubExecutor struct {
	result       *agent.Result
	lastInput    map[string]any
	lastExisting map[string]any
	lastActor    string
}

func (s *stubExecutor) Execute(ctx context.Context, input map[string]any, existing map[string]any) *agent.Result {
	s.lastInput = input
	s.lastExisting = existing
	s.lastActor = agent.ActorFromContext(ctx)
	return s.result
}

func TestServeHealth(t *testing.T) {
	t.Parallel()

	router := newRouter(&stubExecutor{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServeExecuteSuccess(t *testing.T) {
	t.Parallel()

	stub := &stubExecutor{result: &agent.Result{
		Success: true,
		Draft:   map[string]any{"name": "Metro Transit"},
	}}
	router := newRouter(stub)

	body := bytes.NewBufferString(`{"name": "Metro Transit"}`)
	req := httptest.NewRequest(http.MethodPost, "/agents/agency/execute", body)
	req.Header.Set("X-Actor", "reviewer@example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Metro Transit", stub.lastInput["name"])
	assert.Equal(t, "reviewer@example.com", stub.lastActor)
	assert.Nil(t, stub.lastExisting)

	var result agent.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "Metro Transit", result.Draft["name"])
}

func TestServeExecuteFlattensExisting(t *testing.T) {
	t.Parallel()

	stub := &stubExecutor{result: &agent.Result{Success: true, Draft: map[string]any{}}}
	router := newRouter(stub)

	body := bytes.NewBufferString(`{
		"name": "TriMet",
		"existing": {"name": "TriMet", "id": "rec_123", "website": "https://trimet.org"}
	}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/agency/execute", body))

	require.Equal(t, http.StatusOK, rec.Code)
	// Non-schema fields are dropped before diffing.
	assert.Equal(t, map[string]any{
		"name":    "TriMet",
		"website": "https://trimet.org",
	}, stub.lastExisting)
}

func TestServeExecuteMissingName(t *testing.T) {
	t.Parallel()

	router := newRouter(&stubExecutor{})
	body := bytes.NewBufferString(`{"existing": {}}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/agency/execute", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "name is required")
}

func TestServeExecuteBadBody(t *testing.T) {
	t.Parallel()

	router := newRouter(&stubExecutor{})
	body := bytes.NewBufferString(`{not json`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/agency/execute", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestServeExecuteFailedRun(t *testing.T) {
	t.Parallel()

	stub := &stubExecutor{result: &agent.Result{
		Success: false,
		Draft:   map[string]any{},
		Error:   "research step returned no findings",
	}}
	router := newRouter(stub)

	body := bytes.NewBufferString(`{"name": "Nowhere Transit"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/agents/agency/execute", body))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "no findings")
}
