// Package reliability derives trust scores for a run from its telemetry
// summary and the node's run history. Every function here is deterministic
// and side-effect-free; callers may invoke them concurrently without
// coordination.
package reliability

import (
	"fmt"
	"math"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// Score weights and scale factors. The coverage scale compensates for
// keyframes being intentionally sparse; it is a product constant, not a
// derived truth.
const (
	CoverageScale = 1000

	weightCoverage  = 0.25
	weightIntegrity = 0.30
	weightActivity  = 0.25
	weightStability = 0.20

	activityRateWeight   = 0.6
	activityEventsWeight = 0.4
	eventsPerAgentNorm   = 100.0

	defaultActivityRate = 0.5
	neutralStability    = 50.0

	// MinRunsForStability is how many successful runs a node needs before a
	// stability score is meaningful.
	MinRunsForStability = 3
)

// ComputeCoverage scores keyframe density over the run's tick span.
func ComputeCoverage(keyframeCount int, totalTicks int64) int {
	if totalTicks <= 0 {
		return 0
	}
	score := int(math.Round(float64(keyframeCount) / float64(totalTicks) * CoverageScale))
	if score > 100 {
		score = 100
	}
	return score
}

// ComputeIntegrity runs four structural checks worth 25 points each.
func ComputeIntegrity(run *domain.Run, meta *domain.TelemetryMeta) int {
	score := 0
	if run != nil && run.RunID != "" {
		score += 25
	}
	if run != nil && run.TotalTicks > 0 {
		score += 25
	}
	if run != nil && run.TelemetryRef.Valid() {
		score += 25
	}
	if meta != nil && meta.KeyframeCount >= 1 {
		score += 25
	}
	return score
}

// ComputeActivity scores how busy the recording was: 60% weight on the mean
// per-tick activity rate, 40% on events per tracked agent.
func ComputeActivity(meta *domain.TelemetryMeta) int {
	rate := defaultActivityRate
	if meta != nil && meta.MeanActivityRate != nil {
		rate = *meta.MeanActivityRate
	}
	eventsPerAgent := 0.0
	if meta != nil && meta.TrackedAgents > 0 {
		eventsPerAgent = float64(meta.EventCount) / float64(meta.TrackedAgents)
	}
	score := (activityRateWeight*rate + activityEventsWeight*math.Min(1, eventsPerAgent/eventsPerAgentNorm)) * 100
	return int(math.Round(score))
}

// ComputeStability scores run duration consistency across the node's
// successful runs. Nil until at least three successful runs with valid
// start/end timestamps exist.
func ComputeStability(history []domain.Run) *float64 {
	var durations []float64
	for i := range history {
		run := &history[i]
		if run.Status != domain.RunStatusSucceeded {
			continue
		}
		if d, ok := run.Duration(); ok {
			durations = append(durations, d.Seconds())
		}
	}
	if len(durations) < MinRunsForStability {
		return nil
	}
	mean := 0.0
	for _, d := range durations {
		mean += d
	}
	mean /= float64(len(durations))
	if mean == 0 {
		score := 100.0
		return &score
	}
	variance := 0.0
	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(durations))
	cv := math.Sqrt(variance) / mean
	score := math.Max(0, 100-cv*100)
	return &score
}

// ComputeOverall combines the four sub-scores; a nil stability contributes
// the neutral value.
func ComputeOverall(coverage, integrity, activity int, stability *float64) int {
	st := neutralStability
	if stability != nil {
		st = *stability
	}
	overall := float64(coverage)*weightCoverage +
		float64(integrity)*weightIntegrity +
		float64(activity)*weightActivity +
		st*weightStability
	return int(math.Round(overall))
}

// Warnings applies the reliability rule list. Each warning carries a
// machine-readable remediation action.
func Warnings(coverage, activity int, stability *float64, meta *domain.TelemetryMeta) []domain.Warning {
	var warnings []domain.Warning
	if coverage < 50 {
		warnings = append(warnings, domain.Warning{
			Code:        "low_coverage",
			Level:       domain.WarningLevelWarning,
			Message:     fmt.Sprintf("keyframe coverage score %d is below 50", coverage),
			Remediation: "decrease_keyframe_interval",
		})
	}
	if activity < 40 {
		warnings = append(warnings, domain.Warning{
			Code:        "low_activity",
			Level:       domain.WarningLevelWarning,
			Message:     fmt.Sprintf("activity score %d is below 40", activity),
			Remediation: "review_scenario_event_rates",
		})
	}
	if stability == nil {
		warnings = append(warnings, domain.Warning{
			Code:        "stability_unavailable",
			Level:       domain.WarningLevelInfo,
			Message:     fmt.Sprintf("need at least %d successful runs to score stability", MinRunsForStability),
			Remediation: "run_more_simulations",
		})
	} else if *stability < 60 {
		warnings = append(warnings, domain.Warning{
			Code:        "low_stability",
			Level:       domain.WarningLevelWarning,
			Message:     fmt.Sprintf("stability score %.0f is below 60", *stability),
			Remediation: "investigate_duration_variance",
		})
	}
	if meta == nil || meta.TrackedAgents == 0 {
		warnings = append(warnings, domain.Warning{
			Code:        "no_tracked_agents",
			Level:       domain.WarningLevelError,
			Message:     "telemetry tracks zero agents",
			Remediation: "verify_engine_instrumentation",
		})
	}
	return warnings
}

// Score assembles the full reliability summary for one run.
func Score(run *domain.Run, meta *domain.TelemetryMeta, history []domain.Run) *domain.ReliabilityMetrics {
	keyframes := 0
	if meta != nil {
		keyframes = meta.KeyframeCount
	}
	totalTicks := int64(0)
	if run != nil {
		totalTicks = run.TotalTicks
	}
	coverage := ComputeCoverage(keyframes, totalTicks)
	integrity := ComputeIntegrity(run, meta)
	activity := ComputeActivity(meta)
	stability := ComputeStability(history)

	m := &domain.ReliabilityMetrics{
		Coverage:  coverage,
		Integrity: integrity,
		Activity:  activity,
		Stability: stability,
		Overall:   ComputeOverall(coverage, integrity, activity, stability),
		Warnings:  Warnings(coverage, activity, stability, meta),
	}
	if run != nil {
		m.RunID = run.RunID
		m.NodeID = run.NodeID
	}
	return m
}
