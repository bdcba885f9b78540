package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/workautomate224-lang/agentverse-sub002/internal/determinism"
	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// CreateRun registers a queued run for a node. Triggering actual execution
// is the execution service's business, never ours.
func (s *Service) CreateRun(ctx context.Context, req domain.CreateRunRequest) (*domain.Run, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.NewValidationError("run", err.Error())
	}
	node, err := s.store.GetNode(ctx, req.NodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", req.NodeID, domain.ErrNotFound)
	}

	run := &domain.Run{
		RunID:      "run_" + uuid.New().String()[:8],
		NodeID:     req.NodeID,
		ProjectID:  req.ProjectID,
		Status:     domain.RunStatusQueued,
		QueuedAt:   time.Now().UTC(),
		TotalTicks: req.TotalTicks,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
	}
	return run, nil
}

// ListNodeRuns lists all runs recorded for a node.
func (s *Service) ListNodeRuns(ctx context.Context, nodeID string) ([]domain.Run, error) {
	return s.store.ListRunsByNode(ctx, nodeID)
}

// AdvanceRunStatus applies a forward status transition. The actual seed is
// fixed on the transition to RUNNING and never changes afterwards.
func (s *Service) AdvanceRunStatus(ctx context.Context, runID string, req domain.RunStatusRequest) (*domain.Run, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.CanTransitionTo(req.Status) {
		return nil, domain.NewValidationError("status", fmt.Sprintf("illegal transition %s -> %s", run.Status, req.Status))
	}

	var seed *int64
	if req.Status == domain.RunStatusRunning {
		if req.Seed == nil {
			return nil, domain.NewValidationError("seed", "seed is required on the transition to RUNNING")
		}
		seed = req.Seed
	}
	if err := s.store.UpdateRunStatus(ctx, runID, req.Status, seed); err != nil {
		return nil, fmt.Errorf("failed to update run status: %w", err)
	}
	return s.GetRun(ctx, runID)
}

// CompleteRun moves a run to a terminal state, records its outcome, seals
// its telemetry and assembles the determinism evidence bundle.
func (s *Service) CompleteRun(ctx context.Context, runID string, req domain.CompleteRunRequest) (*domain.Run, error) {
	if !req.Status.IsTerminal() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("%s is not a terminal status", req.Status))
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !run.Status.CanTransitionTo(req.Status) {
		return nil, domain.NewValidationError("status", fmt.Sprintf("illegal transition %s -> %s", run.Status, req.Status))
	}

	if err := s.store.CompleteRun(ctx, runID, req.Status, req.Metrics, req.TelemetryRef, req.ResultsRef, req.StateRef); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	// Terminal state makes the recording read-only forever.
	if err := s.recorder.Seal(ctx, runID); err != nil {
		log.Printf("ERROR: failed to seal telemetry for run %s: %v", runID, err)
	}

	if req.Evidence != nil {
		bundle, err := determinism.AssembleEvidence(runID,
			req.Evidence.DisallowedCalls,
			req.Evidence.BlockedPreCutoffReads,
			req.Evidence.NondeterministicHits)
		if err != nil {
			log.Printf("ERROR: failed to assemble evidence bundle for run %s: %v", runID, err)
		} else {
			detail, _ := json.Marshal(bundle)
			entry := &domain.AuditEntry{
				AuditID:    "aud_" + uuid.New().String()[:8],
				EntityType: domain.AuditEntityEvidence,
				EntityID:   runID,
				Action:     domain.AuditActionCreate,
				Detail:     string(detail),
				CreatedAt:  time.Now().UTC(),
			}
			if err := s.store.CreateAuditEntry(ctx, entry); err != nil {
				log.Printf("ERROR: failed to record evidence bundle for run %s: %v", runID, err)
			}
		}
	}

	return s.GetRun(ctx, runID)
}

// UpdateRunProgress advances a running run's current tick.
func (s *Service) UpdateRunProgress(ctx context.Context, runID string, currentTick int64) error {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStatusRunning {
		return domain.NewValidationError("status", fmt.Sprintf("run %s is %s, progress applies only to running runs", runID, run.Status))
	}
	if currentTick < run.CurrentTick {
		return domain.NewValidationError("current_tick", fmt.Sprintf("tick %d would move progress backwards from %d", currentTick, run.CurrentTick))
	}
	return s.store.UpdateRunProgress(ctx, runID, currentTick)
}
