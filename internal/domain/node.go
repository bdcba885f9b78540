package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Node is one variant in the branching scenario graph. Nodes are created
// only by forking; a node's own fields are immutable after creation.
// Edges are implicit via ParentID; siblings share one parent.
type Node struct {
	NodeID     string  `json:"node_id"`
	ProjectID  string  `json:"project_id"`
	ParentID   *string `json:"parent_id,omitempty"`
	IsBaseline bool    `json:"is_baseline"`
	// Patch is the scenario diff from the parent.
	Patch ScenarioPatch `json:"patch"`
	// Probability is the conditional probability of this node given its
	// parent. Sibling probabilities are kept normalized to sum to 1.
	Probability  float64    `json:"probability"`
	TelemetryRef string     `json:"telemetry_ref,omitempty"`
	ResultsRef   string     `json:"results_ref,omitempty"`
	StateRef     string     `json:"state_ref,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ScenarioPatch is the closed, versioned set of typed scenario overrides a
// fork may apply. Unknown keys are rejected at the boundary rather than
// silently accepted.
type ScenarioPatch struct {
	Version        int                `json:"version" validate:"gte=1"`
	Label          string             `json:"label,omitempty" validate:"max=200"`
	AgentCount     *int               `json:"agent_count,omitempty" validate:"omitempty,gte=1"`
	TickLimit      *int64             `json:"tick_limit,omitempty" validate:"omitempty,gte=1"`
	EventRateScale *float64           `json:"event_rate_scale,omitempty" validate:"omitempty,gt=0"`
	SeedOffset     *int64             `json:"seed_offset,omitempty"`
	Probability    *float64           `json:"probability,omitempty" validate:"omitempty,gte=0,lte=1"`
	Thresholds     map[string]float64 `json:"thresholds,omitempty"`
}

// UnmarshalJSON enforces the closed field set.
func (p *ScenarioPatch) UnmarshalJSON(data []byte) error {
	type patch ScenarioPatch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var tmp patch
	if err := dec.Decode(&tmp); err != nil {
		return err
	}
	*p = ScenarioPatch(tmp)
	return nil
}

// ConsistencyIssue reports one sibling group whose probabilities do not sum
// to 1 within tolerance.
type ConsistencyIssue struct {
	ParentID string   `json:"parent_id"`
	Sum      float64  `json:"sum"`
	NodeIDs  []string `json:"node_ids"`
}

// ConsistencyReport is the result of a read-only graph scan.
type ConsistencyReport struct {
	ProjectID  string             `json:"project_id"`
	GroupCount int                `json:"group_count"`
	Issues     []ConsistencyIssue `json:"issues"`
	Consistent bool               `json:"consistent"`
}
