package service

import (
	"context"
	"fmt"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/reliability"
)

// GetRunReliability derives the reliability summary for one run. Metrics
// are recomputed on demand from sealed telemetry and sibling run history,
// never stored.
func (s *Service) GetRunReliability(ctx context.Context, runID string) (*domain.ReliabilityMetrics, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	meta, err := s.store.GetTelemetryMeta(ctx, runID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.ListRunsByNode(ctx, run.NodeID)
	if err != nil {
		return nil, err
	}
	return reliability.Score(run, meta, history), nil
}

// GetNodeReliability derives the reliability summary for a node's most
// recent terminal run.
func (s *Service) GetNodeReliability(ctx context.Context, nodeID string) (*domain.ReliabilityMetrics, error) {
	history, err := s.store.ListRunsByNode(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	var latest *domain.Run
	for i := range history {
		if history[i].Status.IsTerminal() {
			latest = &history[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("no terminal runs for node %s: %w", nodeID, domain.ErrNotFound)
	}
	meta, err := s.store.GetTelemetryMeta(ctx, latest.RunID)
	if err != nil {
		return nil, err
	}
	return reliability.Score(latest, meta, history), nil
}
