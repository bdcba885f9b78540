package service

import (
	"context"
	"fmt"
	"time"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/stats"
)

// GetStatisticalSummary runs the cross-run analysis for one (node, metric).
// Only succeeded runs carrying the metric are eligible; in-flight or failed
// runs never leak into the computation. The work runs on the bounded stats
// pool under the configured caller-visible timeout.
func (s *Service) GetStatisticalSummary(ctx context.Context, nodeID string, req domain.StatsRequest) (*domain.StatisticalSummary, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.NewValidationError("stats", err.Error())
	}
	if req.Op == "" {
		req.Op = domain.OpGTE
	}
	minRuns := req.MinRuns
	if minRuns == 0 {
		minRuns = s.config.MinRuns
	}

	node, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}

	runs, err := s.store.ListRunsByNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var obs []stats.Observation
	for i := range runs {
		run := &runs[i]
		if run.Status != domain.RunStatusSucceeded {
			continue
		}
		value, ok := run.Metrics[req.MetricKey]
		if !ok {
			continue
		}
		started := run.QueuedAt
		if run.StartedAt != nil {
			started = *run.StartedAt
		}
		obs = append(obs, stats.Observation{RunID: run.RunID, StartedAt: started, Value: value})
	}

	opts := stats.Options{
		MinRuns:             minRuns,
		BootstrapIterations: s.config.BootstrapIterations,
		PSIStableMax:        s.config.PSIStableMax,
		PSIDriftMin:         s.config.PSIDriftMin,
		KSDriftMin:          s.config.KSDriftMin,
		PSIBins:             s.config.PSIBins,
	}

	analysisCtx, cancel := context.WithTimeout(ctx, s.config.StatsTimeout)
	defer cancel()

	started := time.Now()
	summary, err := s.pool.Analyze(analysisCtx, nodeID, req.MetricKey, obs, req.Op, req.Thresholds, opts)
	if err != nil {
		return nil, err
	}
	s.metrics.StatsDuration.Observe(time.Since(started).Seconds())
	s.metrics.StatsComputed.WithLabelValues(summary.Status).Inc()
	return summary, nil
}
