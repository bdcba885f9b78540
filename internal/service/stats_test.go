package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/branching"
	"github.com/workautomate224-lang/agentverse-sub002/internal/config"
	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/observability"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

func newTestService(t *testing.T) *Service {
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
	return New(store, cfg, graph, observability.New(prometheus.NewRegistry()))
}

// completeRunWithMetric drives one run from queued to the given terminal
// status, optionally recording a metric value.
func completeRunWithMetric(t *testing.T, svc *Service, nodeID string, status domain.RunStatus, metrics map[string]float64) string {
	t.Helper()
	ctx := context.Background()

	run, err := svc.CreateRun(ctx, domain.CreateRunRequest{NodeID: nodeID, ProjectID: "p1", TotalTicks: 10})
	require.NoError(t, err)
	seed := int64(42)
	_, err = svc.AdvanceRunStatus(ctx, run.RunID, domain.RunStatusRequest{Status: domain.RunStatusRunning, Seed: &seed})
	require.NoError(t, err)
	_, err = svc.CompleteRun(ctx, run.RunID, domain.CompleteRunRequest{Status: status, Metrics: metrics})
	require.NoError(t, err)
	return run.RunID
}

func TestGetStatisticalSummaryFiltersRuns(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	node, err := svc.CreateBaseline(ctx, "p1", "", "", "")
	require.NoError(t, err)

	// Three eligible runs, one failed run, one succeeded run without the
	// metric. Only the three eligible ones feed the analysis.
	for _, v := range []float64{0.5, 0.6, 0.7} {
		completeRunWithMetric(t, svc, node.NodeID, domain.RunStatusSucceeded, map[string]float64{"adoption_rate": v})
	}
	completeRunWithMetric(t, svc, node.NodeID, domain.RunStatusFailed, map[string]float64{"adoption_rate": 0.99})
	completeRunWithMetric(t, svc, node.NodeID, domain.RunStatusSucceeded, map[string]float64{"other_metric": 1})

	summary, err := svc.GetStatisticalSummary(ctx, node.NodeID, domain.StatsRequest{
		MetricKey:  "adoption_rate",
		Thresholds: []float64{0.6},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatsStatusOK, summary.Status)
	assert.Equal(t, 3, summary.NRunsUsed)
	require.Len(t, summary.Sensitivity, 1)
	assert.InDelta(t, 2.0/3.0, summary.Sensitivity[0].Probability, 1e-9)

	// Repeated calls over the same run set are reproducible.
	again, err := svc.GetStatisticalSummary(ctx, node.NodeID, domain.StatsRequest{
		MetricKey:  "adoption_rate",
		Thresholds: []float64{0.6},
	})
	require.NoError(t, err)
	assert.Equal(t, summary.SeedFingerprint, again.SeedFingerprint)
	assert.Equal(t, summary.Bootstrap, again.Bootstrap)
}

func TestGetStatisticalSummaryUnknownNode(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.GetStatisticalSummary(context.Background(), "missing", domain.StatsRequest{MetricKey: "m"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetNodeReliabilityUsesLatestTerminalRun(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	node, err := svc.CreateBaseline(ctx, "p1", "", "", "")
	require.NoError(t, err)

	_, err = svc.GetNodeReliability(ctx, node.NodeID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	last := ""
	for i := 0; i < 3; i++ {
		last = completeRunWithMetric(t, svc, node.NodeID, domain.RunStatusSucceeded, nil)
	}

	m, err := svc.GetNodeReliability(ctx, node.NodeID)
	require.NoError(t, err)
	assert.Equal(t, last, m.RunID)
	assert.NotNil(t, m.Stability)
}
