package service

import (
	"context"
	"fmt"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// AppendKeyframe ingests one keyframe from the executing worker.
func (s *Service) AppendKeyframe(ctx context.Context, runID string, req domain.AppendKeyframeRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return domain.NewValidationError("keyframe", err.Error())
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return s.recorder.AppendKeyframe(ctx, run, &req)
}

// AppendDeltas ingests a batch of deltas from the executing worker.
func (s *Service) AppendDeltas(ctx context.Context, runID string, req domain.AppendDeltasRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return domain.NewValidationError("deltas", err.Error())
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return s.recorder.AppendDeltas(ctx, run, req.Deltas)
}

// GetSlice reconstructs the world state at one tick of a sealed run.
// Strictly read-only; never creates a run.
func (s *Service) GetSlice(ctx context.Context, runID string, tick int64) (*domain.Slice, error) {
	slice, err := s.resolver.Slice(ctx, runID, tick)
	if err != nil {
		return nil, err
	}
	s.metrics.SlicesServed.Inc()
	if slice.ReplayDegraded {
		s.metrics.DegradedReplays.Inc()
	}
	return slice, nil
}

// GetRange reconstructs slices over [start, end) with an optional
// downsample factor.
func (s *Service) GetRange(ctx context.Context, runID string, start, end, downsample int64) ([]domain.Slice, error) {
	slices, err := s.resolver.Range(ctx, runID, start, end, downsample)
	if err != nil {
		return nil, err
	}
	for i := range slices {
		s.metrics.SlicesServed.Inc()
		if slices[i].ReplayDegraded {
			s.metrics.DegradedReplays.Inc()
		}
	}
	return slices, nil
}

// GetTelemetryMeta returns the telemetry header for a run.
func (s *Service) GetTelemetryMeta(ctx context.Context, runID string) (*domain.TelemetryMeta, error) {
	meta, err := s.store.GetTelemetryMeta(ctx, runID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("telemetry for run %s: %w", runID, domain.ErrNotFound)
	}
	return meta, nil
}
