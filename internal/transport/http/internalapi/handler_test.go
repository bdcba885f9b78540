package internalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/branching"
	"github.com/workautomate224-lang/agentverse-sub002/internal/config"
	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/observability"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
	"github.com/workautomate224-lang/agentverse-sub002/internal/service"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service) {
	t.Helper()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{
		KeyframeInterval:    5,
		DeltaSampleRate:     1.0,
		MinRuns:             3,
		BootstrapIterations: 200,
		PSIStableMax:        0.1,
		PSIDriftMin:         0.25,
		KSDriftMin:          0.5,
		PSIBins:             10,
		StatsWorkers:        2,
		StatsTimeout:        5 * time.Second,
		NormalizeTolerance:  0.001,
		NormalizeMaxRetries: 3,
	}
	graph := branching.NewManager(store, nil, cfg.NormalizeTolerance, cfg.NormalizeMaxRetries)
	svc := service.New(store, cfg, graph, observability.New(prometheus.NewRegistry()))
	return NewHandler(svc), svc
}

func doPost(t *testing.T, h func(echo.Context) error, path string, names, values []string, body any) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(http.MethodPost, "/", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i, name := range names {
		if name == "run_id" {
			req.Header.Set(WorkerTokenHeader, values[i])
		}
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	require.NoError(t, h(c))
	return rec
}

func TestCreateBaselineAndRun(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := doPost(t, handler.CreateBaseline, "/internal/projects/:project_id/baseline",
		[]string{"project_id"}, []string{"p1"},
		map[string]string{"telemetry_ref": "t0"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var node domain.Node
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &node))
	assert.True(t, node.IsBaseline)

	rec = doPost(t, handler.CreateRun, "/internal/runs", nil, nil,
		domain.CreateRunRequest{NodeID: node.NodeID, ProjectID: "p1", TotalTicks: 10})
	require.Equal(t, http.StatusCreated, rec.Code)

	var run domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, domain.RunStatusQueued, run.Status)

	// Runs for unknown nodes are rejected.
	rec = doPost(t, handler.CreateRun, "/internal/runs", nil, nil,
		domain.CreateRunRequest{NodeID: "missing", ProjectID: "p1", TotalTicks: 10})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunLifecycleOverHTTP(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	node, err := svc.CreateBaseline(ctx, "p1", "t0", "", "")
	require.NoError(t, err)
	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{NodeID: node.NodeID, ProjectID: "p1", TotalTicks: 10})
	require.NoError(t, err)

	// RUNNING without a seed is rejected.
	rec := doPost(t, handler.AdvanceRunStatus, "/internal/runs/:run_id/status",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"status": "RUNNING"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doPost(t, handler.AdvanceRunStatus, "/internal/runs/:run_id/status",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"status": "RUNNING", "seed": 42})
	require.Equal(t, http.StatusOK, rec.Code)

	// Backwards transition is rejected.
	rec = doPost(t, handler.AdvanceRunStatus, "/internal/runs/:run_id/status",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"status": "QUEUED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doPost(t, handler.UpdateRunProgress, "/internal/runs/:run_id/progress",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"current_tick": 4})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doPost(t, handler.AppendKeyframe, "/internal/runs/:run_id/keyframes",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"tick": 0, "state": map[string]map[string]float64{"agent_1": {"x": 0}}})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doPost(t, handler.AppendDeltas, "/internal/runs/:run_id/deltas",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"deltas": []map[string]any{
			{"tick": 2, "target_id": "agent_1", "field_path": "x", "value": 7},
		}})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = doPost(t, handler.CompleteRun, "/internal/runs/:run_id/complete",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{
			"status":  "SUCCEEDED",
			"metrics": map[string]float64{"adoption_rate": 0.7},
			"evidence": map[string]int{
				"disallowed_calls": 1, "blocked_pre_cutoff_reads": 0, "nondeterministic_hits": 0,
			},
		})
	require.Equal(t, http.StatusOK, rec.Code)

	var done domain.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Equal(t, domain.RunStatusSucceeded, done.Status)

	// Completion seals telemetry; later appends conflict.
	rec = doPost(t, handler.AppendKeyframe, "/internal/runs/:run_id/keyframes",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"tick": 5, "state": map[string]map[string]float64{"agent_1": {"x": 1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	meta, err := svc.GetTelemetryMeta(ctx, run.RunID)
	require.NoError(t, err)
	assert.True(t, meta.Sealed)

	// Terminal runs cannot transition again.
	rec = doPost(t, handler.CompleteRun, "/internal/runs/:run_id/complete",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"status": "FAILED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendRejectsForeignWorkerToken(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	node, err := svc.CreateBaseline(ctx, "p1", "", "", "")
	require.NoError(t, err)
	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{NodeID: node.NodeID, ProjectID: "p1", TotalTicks: 10})
	require.NoError(t, err)
	seed := int64(1)
	_, err = svc.AdvanceRunStatus(ctx, run.RunID, domain.RunStatusRequest{Status: domain.RunStatusRunning, Seed: &seed})
	require.NoError(t, err)

	e := echo.New()
	raw, _ := json.Marshal(map[string]any{"tick": 0, "state": map[string]map[string]float64{"a": {"x": 0}}})
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(WorkerTokenHeader, "someone-else")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/internal/runs/:run_id/keyframes")
	c.SetParamNames("run_id")
	c.SetParamValues(run.RunID)

	require.NoError(t, handler.AppendKeyframe(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompleteRunRejectsNonTerminal(t *testing.T) {
	handler, svc := newTestHandler(t)
	ctx := context.Background()

	node, err := svc.CreateBaseline(ctx, "p1", "", "", "")
	require.NoError(t, err)
	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{NodeID: node.NodeID, ProjectID: "p1", TotalTicks: 10})
	require.NoError(t, err)

	rec := doPost(t, handler.CompleteRun, "/internal/runs/:run_id/complete",
		[]string{"run_id"}, []string{run.RunID},
		map[string]any{"status": "RUNNING"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
