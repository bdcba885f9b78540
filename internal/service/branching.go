package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// GetNode retrieves a node by ID.
func (s *Service) GetNode(ctx context.Context, nodeID string) (*domain.Node, error) {
	node, err := s.store.GetNode(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	if node == nil {
		return nil, fmt.Errorf("node %s: %w", nodeID, domain.ErrNotFound)
	}
	return node, nil
}

// CreateBaseline creates a project's root node on behalf of the project
// service.
func (s *Service) CreateBaseline(ctx context.Context, projectID string, telemetryRef, resultsRef, stateRef string) (*domain.Node, error) {
	if projectID == "" {
		return nil, domain.NewValidationError("project_id", "project_id is required")
	}
	return s.graph.CreateBaseline(ctx, projectID, telemetryRef, resultsRef, stateRef)
}

// Fork creates an immutable child node from a parent without altering the
// parent.
func (s *Service) Fork(ctx context.Context, parentID string, req domain.ForkRequest) (*domain.Node, error) {
	node, err := s.graph.Fork(ctx, parentID, req.Patch)
	if err != nil {
		return nil, err
	}
	s.metrics.ForksCreated.Inc()
	return node, nil
}

// NormalizeSiblings rescales the probability vector of parentID's children.
func (s *Service) NormalizeSiblings(ctx context.Context, parentID string) (*domain.NormalizeResponse, error) {
	resp, err := s.graph.NormalizeSiblings(ctx, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			s.metrics.NormalizeRaces.Inc()
		}
		return nil, err
	}
	return resp, nil
}

// VerifyConsistency scans a project's sibling groups read-only.
func (s *Service) VerifyConsistency(ctx context.Context, projectID string) (*domain.ConsistencyReport, error) {
	return s.graph.VerifyConsistency(ctx, projectID)
}
