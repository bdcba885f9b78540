package domain

import "time"

// StorageRef points at an artifact in blob storage. The mechanics of the
// store are external; the ref is only inspected for presence.
type StorageRef struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Valid reports whether both components of the ref are present.
func (r StorageRef) Valid() bool {
	return r.Bucket != "" && r.Key != ""
}

// Run represents a single execution of the simulation engine for a node.
// A run is created on submission, mutated only by its executing worker, and
// immutable once it reaches a terminal status.
type Run struct {
	RunID       string     `json:"run_id"`
	NodeID      string     `json:"node_id"`
	ProjectID   string     `json:"project_id"`
	Status      RunStatus  `json:"status"`
	QueuedAt    time.Time  `json:"queued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CurrentTick int64      `json:"current_tick"`
	TotalTicks  int64      `json:"total_ticks"`
	// ActualSeed is fixed when the run starts and never changes afterwards.
	ActualSeed int64 `json:"actual_seed"`
	// Metrics holds the realized per-run metric values recorded at
	// completion, e.g. {"purchase_rate": 0.62}.
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	TelemetryRef StorageRef         `json:"telemetry_ref"`
	ResultsRef   StorageRef         `json:"results_ref"`
	StateRef     StorageRef         `json:"state_ref"`
}

// Duration returns the wall-clock duration of the run, or false when the
// run lacks valid start/end timestamps.
func (r *Run) Duration() (time.Duration, bool) {
	if r.StartedAt == nil || r.EndedAt == nil {
		return 0, false
	}
	d := r.EndedAt.Sub(*r.StartedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// AuditEntry is an append-only audit record.
type AuditEntry struct {
	AuditID    string          `json:"audit_id"`
	EntityType AuditEntityType `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Action     AuditAction     `json:"action"`
	Detail     string          `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
