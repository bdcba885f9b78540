package domain

import "time"

// Warning is a machine-readable reliability warning with a suggested
// remediation action.
type Warning struct {
	Code        string       `json:"code"`
	Level       WarningLevel `json:"level"`
	Message     string       `json:"message"`
	Remediation string       `json:"remediation"`
}

// ReliabilityMetrics is derived on demand, never stored. Stability is nil
// until the node has at least three successful runs.
type ReliabilityMetrics struct {
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id,omitempty"`
	Coverage  int       `json:"coverage"`
	Integrity int       `json:"integrity"`
	Activity  int       `json:"activity"`
	Stability *float64  `json:"stability"`
	Overall   int       `json:"overall"`
	Warnings  []Warning `json:"warnings"`
}

// SensitivityPoint is one point of a threshold sensitivity curve.
type SensitivityPoint struct {
	Threshold   float64 `json:"threshold"`
	Probability float64 `json:"probability"`
}

// BootstrapStability summarizes the bootstrap resampling distribution of a
// metric's mean.
type BootstrapStability struct {
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"std_dev"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
	SampleCount int     `json:"sample_count"`
	Iterations  int     `json:"iterations"`
}

// DriftReport compares a baseline run set against a recent run set.
type DriftReport struct {
	KSStatistic  float64     `json:"ks_statistic"`
	PSI          float64     `json:"psi"`
	Status       DriftStatus `json:"status"`
	BaselineSize int         `json:"baseline_size"`
	RecentSize   int         `json:"recent_size"`
}

// StatisticalSummary is the cross-run analysis for one (node, metric key).
// When Status is "insufficient_data" only the run counts are populated and
// no computation was performed.
type StatisticalSummary struct {
	NodeID    string `json:"node_id"`
	MetricKey string `json:"metric_key"`
	Status    string `json:"status"`

	NRunsUsed  int `json:"n_runs_used"`
	NRunsTotal int `json:"n_runs_total"`

	Sensitivity []SensitivityPoint  `json:"sensitivity,omitempty"`
	Bootstrap   *BootstrapStability `json:"bootstrap,omitempty"`
	Drift       *DriftReport        `json:"drift,omitempty"`

	// SeedFingerprint is the deterministic fingerprint the resampling RNG was
	// seeded from; identical run sets reproduce identical results.
	SeedFingerprint string     `json:"seed_fingerprint,omitempty"`
	ComputedAt      *time.Time `json:"computed_at,omitempty"`
}

const (
	StatsStatusOK               = "ok"
	StatsStatusInsufficientData = "insufficient_data"
)

// DeterminismSignature holds the three canonical hashes of a run's
// artifacts. It is used only for equality comparison.
type DeterminismSignature struct {
	RunID         string `json:"run_id"`
	ConfigHash    string `json:"config_hash"`
	ResultHash    string `json:"result_hash"`
	TelemetryHash string `json:"telemetry_hash"`
}

// CompareResult reports artifact-level matches between two runs.
type CompareResult struct {
	RunIDA         string `json:"run_id_a"`
	RunIDB         string `json:"run_id_b"`
	ConfigMatch    bool   `json:"config_match"`
	ResultMatch    bool   `json:"result_match"`
	TelemetryMatch bool   `json:"telemetry_match"`
	Reproducible   bool   `json:"reproducible"`
}

// EvidenceBundle is the immutable audit artifact assembled alongside a
// determinism proof: counters of calls the sandbox disallowed or blocked
// during the run. It is written once and never recomputed.
type EvidenceBundle struct {
	RunID                  string    `json:"run_id"`
	DisallowedCalls        int       `json:"disallowed_calls"`
	BlockedPreCutoffReads  int       `json:"blocked_pre_cutoff_reads"`
	NondeterministicHits   int       `json:"nondeterministic_hits"`
	BundleHash             string    `json:"bundle_hash"`
	AssembledAt            time.Time `json:"assembled_at"`
}
