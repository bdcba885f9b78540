package domain

// AgentState is the recorded state of one tracked target (agent, region or
// segment) as a flat field-path → value map.
type AgentState map[string]float64

// WorldState maps target id → that target's recorded state.
type WorldState map[string]AgentState

// Clone returns a deep copy so replay can mutate freely.
func (w WorldState) Clone() WorldState {
	out := make(WorldState, len(w))
	for id, st := range w {
		cp := make(AgentState, len(st))
		for k, v := range st {
			cp[k] = v
		}
		out[id] = cp
	}
	return out
}

// Keyframe is a full or partial state snapshot at a tick, used as a
// reconstruction anchor.
type Keyframe struct {
	Tick  int64      `json:"tick"`
	State WorldState `json:"state"`
	// Forced marks keyframes written at event boundaries rather than at the
	// configured interval.
	Forced bool `json:"forced,omitempty"`
}

// Delta is one recorded state change, applied relative to the last keyframe.
// Deltas are kept ordered by (tick, target id, field path).
type Delta struct {
	Tick      int64   `json:"tick"`
	TargetID  string  `json:"target_id"`
	FieldPath string  `json:"field_path"`
	Value     float64 `json:"value"`
	// Metric optionally names the platform metric this change contributes to,
	// feeding the per-metric lookup table.
	Metric string `json:"metric,omitempty"`
}

// KeyframeEntry is one index entry: a keyframe tick and the half-open range
// of delta ordinals recorded after it, up to the next keyframe.
type KeyframeEntry struct {
	Tick       int64 `json:"tick"`
	DeltaStart int   `json:"delta_start"`
	DeltaEnd   int   `json:"delta_end"`
}

// TelemetryIndex is built once at seal time and never modified.
type TelemetryIndex struct {
	Keyframes []KeyframeEntry `json:"keyframes"`
	// TargetTicks maps target id → sorted ticks at which it recorded deltas.
	TargetTicks map[string][]int64 `json:"target_ticks,omitempty"`
	// MetricTicks maps metric key → sorted ticks at which it was touched.
	MetricTicks map[string][]int64 `json:"metric_ticks,omitempty"`
}

// TelemetryMeta is the per-run telemetry header row.
type TelemetryMeta struct {
	RunID         string `json:"run_id"`
	TotalTicks    int64  `json:"total_ticks"`
	KeyframeCount int    `json:"keyframe_count"`
	DeltaCount    int    `json:"delta_count"`
	Sealed        bool   `json:"sealed"`
	// TrackedAgents is the number of distinct targets seen in keyframes.
	TrackedAgents int `json:"tracked_agents"`
	// EventCount is the number of recorded deltas, a proxy for activity.
	EventCount int `json:"event_count"`
	// MeanActivityRate is the mean per-tick fraction of targets that changed.
	MeanActivityRate *float64 `json:"mean_activity_rate,omitempty"`
}

// Slice is the reconstructed world state at one tick.
type Slice struct {
	RunID string     `json:"run_id"`
	Tick  int64      `json:"tick"`
	State WorldState `json:"state"`
	// IsInterpolated is true when the queried tick itself had no directly
	// recorded delta and is not a keyframe tick.
	IsInterpolated bool `json:"is_interpolated"`
	// ReplayDegraded is set instead of failing when the recording is
	// internally inconsistent; Issues lists what was wrong.
	ReplayDegraded bool     `json:"replay_degraded,omitempty"`
	Issues         []string `json:"issues,omitempty"`
}
