// Package domain defines the core domain models for the trust core.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// runStatusRank orders statuses so transitions can only move forward.
var runStatusRank = map[RunStatus]int{
	RunStatusQueued:    0,
	RunStatusRunning:   1,
	RunStatusSucceeded: 2,
	RunStatusFailed:    2,
	RunStatusCancelled: 2,
}

// IsTerminal reports whether the status is a terminal state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a forward transition from s to next is legal.
func (s RunStatus) CanTransitionTo(next RunStatus) bool {
	from, ok := runStatusRank[s]
	if !ok {
		return false
	}
	to, ok := runStatusRank[next]
	if !ok {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	return to > from
}

// DriftStatus classifies distribution drift between baseline and recent runs.
type DriftStatus string

const (
	DriftStatusStable   DriftStatus = "stable"
	DriftStatusWarning  DriftStatus = "warning"
	DriftStatusDrifting DriftStatus = "drifting"
)

// WarningLevel represents the severity of a reliability warning.
type WarningLevel string

const (
	WarningLevelInfo    WarningLevel = "info"
	WarningLevelWarning WarningLevel = "warning"
	WarningLevelError   WarningLevel = "error"
)

// ComparisonOp is the operator used by sensitivity analysis.
type ComparisonOp string

const (
	OpGT  ComparisonOp = "gt"
	OpGTE ComparisonOp = "gte"
	OpLT  ComparisonOp = "lt"
	OpLTE ComparisonOp = "lte"
	OpEQ  ComparisonOp = "eq"
)

// Valid reports whether the operator is one of the supported comparisons.
func (op ComparisonOp) Valid() bool {
	switch op {
	case OpGT, OpGTE, OpLT, OpLTE, OpEQ:
		return true
	}
	return false
}

// AuditAction represents the kind of an audit entry. Forks and evidence
// bundles are always CREATE entries, never updates to existing records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
)

// AuditEntityType identifies what an audit entry refers to.
type AuditEntityType string

const (
	AuditEntityNode     AuditEntityType = "node"
	AuditEntityEvidence AuditEntityType = "evidence_bundle"
)
