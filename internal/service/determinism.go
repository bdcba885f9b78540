package service

import (
	"context"
	"fmt"

	"github.com/workautomate224-lang/agentverse-sub002/internal/determinism"
	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetDeterminismSignature computes the three canonical hashes for a
// terminal run's artifacts. Hash failures are hard errors: a broken proof
// artifact is a correctness bug.
func (s *Service) GetDeterminismSignature(ctx context.Context, runID string) (*domain.DeterminismSignature, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.IsTerminal() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("run %s is %s, signatures cover terminal runs only", runID, run.Status))
	}
	node, err := s.store.GetNode(ctx, run.NodeID)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", run.NodeID, domain.ErrNotFound)
	}

	configHash, err := determinism.HashConfig(map[string]any{
		"patch":       node.Patch,
		"total_ticks": run.TotalTicks,
		"seed":        run.ActualSeed,
	})
	if err != nil {
		return nil, fmt.Errorf("config hash for run %s: %w", runID, err)
	}
	resultHash, err := determinism.HashResult(run.Metrics)
	if err != nil {
		return nil, fmt.Errorf("result hash for run %s: %w", runID, err)
	}

	meta, err := s.GetTelemetryMeta(ctx, runID)
	if err != nil {
		return nil, err
	}
	keyframes, err := s.store.GetKeyframes(ctx, runID)
	if err != nil {
		return nil, err
	}
	deltas, err := s.store.GetDeltas(ctx, runID)
	if err != nil {
		return nil, err
	}
	telemetryHash, err := determinism.HashTelemetry(meta.TotalTicks, keyframes, deltas)
	if err != nil {
		return nil, fmt.Errorf("telemetry hash for run %s: %w", runID, err)
	}

	return &domain.DeterminismSignature{
		RunID:         runID,
		ConfigHash:    configHash,
		ResultHash:    resultHash,
		TelemetryHash: telemetryHash,
	}, nil
}

// CompareRuns proves (or disproves) that two runs are byte-for-byte
// reproductions of each other.
func (s *Service) CompareRuns(ctx context.Context, runIDA, runIDB string) (*domain.CompareResult, error) {
	sigA, err := s.GetDeterminismSignature(ctx, runIDA)
	if err != nil {
		return nil, err
	}
	sigB, err := s.GetDeterminismSignature(ctx, runIDB)
	if err != nil {
		return nil, err
	}
	return determinism.Compare(sigA, sigB), nil
}
