// Package repository provides durable storage for runs, telemetry, nodes
// and audit entries.
package repository

import (
	"context"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// Store is the persistence interface consumed by the service layer.
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRunsByNode(ctx context.Context, nodeID string) ([]domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus, seed *int64) error
	UpdateRunProgress(ctx context.Context, runID string, currentTick int64) error
	CompleteRun(ctx context.Context, runID string, status domain.RunStatus, metrics map[string]float64, telemetryRef, resultsRef, stateRef domain.StorageRef) error

	// Telemetry
	CreateTelemetry(ctx context.Context, runID string, totalTicks int64) error
	GetTelemetryMeta(ctx context.Context, runID string) (*domain.TelemetryMeta, error)
	AppendKeyframe(ctx context.Context, runID string, kf *domain.Keyframe) error
	AppendDeltas(ctx context.Context, runID string, deltas []domain.Delta) error
	GetKeyframes(ctx context.Context, runID string) ([]domain.Keyframe, error)
	GetDeltas(ctx context.Context, runID string) ([]domain.Delta, error)
	LastDeltaTick(ctx context.Context, runID string) (int64, error)
	SealTelemetry(ctx context.Context, meta *domain.TelemetryMeta, index *domain.TelemetryIndex) error
	GetTelemetryIndex(ctx context.Context, runID string) (*domain.TelemetryIndex, error)

	// Nodes
	CreateNode(ctx context.Context, node *domain.Node) error
	GetNode(ctx context.Context, nodeID string) (*domain.Node, error)
	ListChildren(ctx context.Context, parentID string) ([]domain.Node, error)
	ListNodesByProject(ctx context.Context, projectID string) ([]domain.Node, error)
	GetGroupVersion(ctx context.Context, parentID string) (int64, error)
	UpdateSiblingProbabilities(ctx context.Context, parentID string, version int64, probs map[string]float64) (bool, error)

	// Audit
	CreateAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
	ListAuditEntries(ctx context.Context, entityType domain.AuditEntityType, entityID string) ([]domain.AuditEntry, error)
}
