// Package branching maintains the immutable fork graph of scenario variants
// under a strict fork-never-edit discipline, and keeps sibling conditional
// probabilities normalized to sum to 1.
package branching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/policy"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

// Manager implements fork, normalization and consistency scanning over the
// node arena. Forks only ever create rows; the single write-contended
// section in the whole system is per-parent probability normalization,
// guarded by an optimistic version check with bounded retry.
type Manager struct {
	store      repository.Store
	admission  *policy.Engine
	validate   *validator.Validate
	tolerance  float64
	maxRetries int
}

// NewManager creates a branching manager.
func NewManager(store repository.Store, admission *policy.Engine, tolerance float64, maxRetries int) *Manager {
	return &Manager{
		store:      store,
		admission:  admission,
		validate:   validator.New(),
		tolerance:  tolerance,
		maxRetries: maxRetries,
	}
}

// Fork creates a new child node under parentID with the given scenario
// patch. The parent's fields and referenced artifacts are read but never
// written; the fork is recorded as a CREATE audit entry, never an UPDATE on
// the parent. Concurrent forks under the same parent never conflict.
func (m *Manager) Fork(ctx context.Context, parentID string, patch domain.ScenarioPatch) (*domain.Node, error) {
	if err := m.validate.Struct(patch); err != nil {
		return nil, domain.NewValidationError("patch", err.Error())
	}
	parent, err := m.store.GetNode(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parent node: %w", err)
	}
	if parent == nil {
		return nil, fmt.Errorf("parent node %s: %w", parentID, domain.ErrNotFound)
	}

	if m.admission != nil {
		input := map[string]any{
			"patch":       patchInput(patch),
			"parent_id":   parent.NodeID,
			"is_baseline": parent.IsBaseline,
			"project_id":  parent.ProjectID,
		}
		decision, err := m.admission.Evaluate(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("patch admission failed: %w", err)
		}
		if decision != policy.DecisionAllow {
			return nil, domain.NewValidationError("patch", "rejected by admission policy")
		}
	}

	probability := 0.0
	if patch.Probability != nil {
		probability = *patch.Probability
	}
	node := &domain.Node{
		NodeID:      "node_" + uuid.New().String()[:8],
		ProjectID:   parent.ProjectID,
		ParentID:    &parent.NodeID,
		IsBaseline:  false,
		Patch:       patch,
		Probability: probability,
		CreatedAt:   time.Now().UTC(),
	}
	if err := m.store.CreateNode(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	detail, _ := json.Marshal(map[string]string{"parent_id": parent.NodeID})
	audit := &domain.AuditEntry{
		AuditID:    "aud_" + uuid.New().String()[:8],
		EntityType: domain.AuditEntityNode,
		EntityID:   node.NodeID,
		Action:     domain.AuditActionCreate,
		Detail:     string(detail),
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.store.CreateAuditEntry(ctx, audit); err != nil {
		log.Printf("ERROR: failed to record fork audit entry: %v", err)
	}
	return node, nil
}

// CreateBaseline creates a root node for a project. Root nodes have no
// parent and carry the baseline flag; everything under them comes from
// forking.
func (m *Manager) CreateBaseline(ctx context.Context, projectID string, telemetryRef, resultsRef, stateRef string) (*domain.Node, error) {
	node := &domain.Node{
		NodeID:       "node_" + uuid.New().String()[:8],
		ProjectID:    projectID,
		IsBaseline:   true,
		Patch:        domain.ScenarioPatch{Version: 1},
		Probability:  1,
		TelemetryRef: telemetryRef,
		ResultsRef:   resultsRef,
		StateRef:     stateRef,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.CreateNode(ctx, node); err != nil {
		return nil, fmt.Errorf("failed to create baseline node: %w", err)
	}
	audit := &domain.AuditEntry{
		AuditID:    "aud_" + uuid.New().String()[:8],
		EntityType: domain.AuditEntityNode,
		EntityID:   node.NodeID,
		Action:     domain.AuditActionCreate,
		CreatedAt:  time.Now().UTC(),
	}
	if err := m.store.CreateAuditEntry(ctx, audit); err != nil {
		log.Printf("ERROR: failed to record baseline audit entry: %v", err)
	}
	return node, nil
}

// patchInput flattens a patch for policy evaluation; optional fields are
// present only when set.
func patchInput(p domain.ScenarioPatch) map[string]any {
	input := map[string]any{"version": p.Version}
	if p.AgentCount != nil {
		input["agent_count"] = *p.AgentCount
	}
	if p.TickLimit != nil {
		input["tick_limit"] = *p.TickLimit
	}
	if p.EventRateScale != nil {
		input["event_rate_scale"] = *p.EventRateScale
	}
	if p.SeedOffset != nil {
		input["seed_offset"] = *p.SeedOffset
	}
	return input
}

// NormalizeSiblings rescales the children of parentID so their
// probabilities sum to 1 when they are more than the tolerance away from 1;
// all-zero groups fall back to uniform 1/n. Idempotent: a second call yields
// the same vector within 1e-9. Lost optimistic races retry with a fresh
// read, up to the bounded retry count.
func (m *Manager) NormalizeSiblings(ctx context.Context, parentID string) (*domain.NormalizeResponse, error) {
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		version, err := m.store.GetGroupVersion(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to read group version: %w", err)
		}
		children, err := m.store.ListChildren(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to list children: %w", err)
		}
		if len(children) == 0 {
			return &domain.NormalizeResponse{
				ParentID:      parentID,
				Probabilities: map[string]float64{},
			}, nil
		}

		probs, rescaled := normalize(children, m.tolerance)
		if !rescaled {
			return &domain.NormalizeResponse{
				ParentID:      parentID,
				Probabilities: probs,
			}, nil
		}

		ok, err := m.store.UpdateSiblingProbabilities(ctx, parentID, version, probs)
		if err != nil {
			return nil, fmt.Errorf("failed to update probabilities: %w", err)
		}
		if ok {
			return &domain.NormalizeResponse{
				ParentID:      parentID,
				Probabilities: probs,
				Rescaled:      true,
			}, nil
		}
		log.Printf("WARN: normalization conflict on parent %s, attempt %d", parentID, attempt+1)
	}
	return nil, fmt.Errorf("normalization of %s: %w", parentID, domain.ErrConcurrencyConflict)
}

// normalize computes the target probability vector. Returns rescaled=false
// when the group is already within tolerance and no write is needed.
func normalize(children []domain.Node, tolerance float64) (map[string]float64, bool) {
	probs := make(map[string]float64, len(children))
	sum := 0.0
	for _, c := range children {
		probs[c.NodeID] = c.Probability
		sum += c.Probability
	}
	if math.Abs(sum-1) <= tolerance {
		return probs, false
	}
	if sum == 0 {
		uniform := 1 / float64(len(children))
		for id := range probs {
			probs[id] = uniform
		}
		return probs, true
	}
	for id, p := range probs {
		probs[id] = p / sum
	}
	return probs, true
}

// VerifyConsistency is a read-only scan reporting every sibling group in the
// project whose probabilities do not sum to 1 within tolerance.
func (m *Manager) VerifyConsistency(ctx context.Context, projectID string) (*domain.ConsistencyReport, error) {
	nodes, err := m.store.ListNodesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project nodes: %w", err)
	}
	groups := map[string][]domain.Node{}
	for _, n := range nodes {
		if n.ParentID == nil {
			continue
		}
		groups[*n.ParentID] = append(groups[*n.ParentID], n)
	}

	report := &domain.ConsistencyReport{
		ProjectID:  projectID,
		GroupCount: len(groups),
		Consistent: true,
	}
	for parentID, siblings := range groups {
		sum := 0.0
		ids := make([]string, 0, len(siblings))
		for _, s := range siblings {
			sum += s.Probability
			ids = append(ids, s.NodeID)
		}
		if math.Abs(sum-1) > m.tolerance {
			report.Consistent = false
			report.Issues = append(report.Issues, domain.ConsistencyIssue{
				ParentID: parentID,
				Sum:      sum,
				NodeIDs:  ids,
			})
		}
	}
	return report, nil
}
