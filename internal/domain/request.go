package domain

// Request/response payloads for the HTTP API.

// CreateRunRequest is submitted by the execution service when a run is
// queued for a node.
type CreateRunRequest struct {
	NodeID     string `json:"node_id" validate:"required"`
	ProjectID  string `json:"project_id" validate:"required"`
	TotalTicks int64  `json:"total_ticks" validate:"gt=0"`
}

// RunStatusRequest advances a run's status. Seed is required on the
// transition to RUNNING and ignored otherwise.
type RunStatusRequest struct {
	Status RunStatus `json:"status" validate:"required"`
	Seed   *int64    `json:"seed,omitempty"`
}

// CompleteRunRequest records a run's terminal outcome: realized metrics and
// output references. The transition seals the run's telemetry.
type CompleteRunRequest struct {
	Status       RunStatus          `json:"status" validate:"required"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
	TelemetryRef StorageRef         `json:"telemetry_ref"`
	ResultsRef   StorageRef         `json:"results_ref"`
	StateRef     StorageRef         `json:"state_ref"`
	// Evidence carries the sandbox counters the worker observed; they are
	// folded into the run's immutable evidence bundle.
	Evidence *EvidenceCounts `json:"evidence,omitempty"`
}

// EvidenceCounts are the raw sandbox counters reported at run completion.
type EvidenceCounts struct {
	DisallowedCalls       int `json:"disallowed_calls"`
	BlockedPreCutoffReads int `json:"blocked_pre_cutoff_reads"`
	NondeterministicHits  int `json:"nondeterministic_hits"`
}

// AppendKeyframeRequest appends one keyframe to an unsealed recording.
type AppendKeyframeRequest struct {
	Tick   int64      `json:"tick" validate:"gte=0"`
	State  WorldState `json:"state" validate:"required"`
	Forced bool       `json:"forced,omitempty"`
}

// AppendDeltasRequest appends a batch of deltas to an unsealed recording.
type AppendDeltasRequest struct {
	Deltas []Delta `json:"deltas" validate:"required,min=1,dive"`
}

// StatsRequest parameterizes a statistical summary query.
type StatsRequest struct {
	MetricKey  string       `json:"metric_key" validate:"required"`
	Op         ComparisonOp `json:"op"`
	MinRuns    int          `json:"min_runs" validate:"omitempty,gte=1"`
	Thresholds []float64    `json:"thresholds,omitempty"`
}

// ForkRequest creates a child node under a parent.
type ForkRequest struct {
	Patch ScenarioPatch `json:"patch" validate:"required"`
}

// NormalizeResponse reports the post-normalization probability vector.
type NormalizeResponse struct {
	ParentID      string             `json:"parent_id"`
	Probabilities map[string]float64 `json:"probabilities"`
	Rescaled      bool               `json:"rescaled"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}
