package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

func succeededRun(start time.Time, dur time.Duration) domain.Run {
	end := start.Add(dur)
	return domain.Run{
		Status:    domain.RunStatusSucceeded,
		StartedAt: &start,
		EndedAt:   &end,
	}
}

func TestComputeCoverage(t *testing.T) {
	// 10 keyframes over 1000 ticks scores 10 on the scaled axis.
	assert.Equal(t, 10, ComputeCoverage(10, 1000))
	// Dense recordings cap at 100.
	assert.Equal(t, 100, ComputeCoverage(500, 1000))
	assert.Equal(t, 0, ComputeCoverage(10, 0))
	assert.Equal(t, 0, ComputeCoverage(0, 1000))
}

func TestComputeIntegrity(t *testing.T) {
	run := &domain.Run{
		RunID:        "r1",
		TotalTicks:   100,
		TelemetryRef: domain.StorageRef{Bucket: "sim", Key: "r1/t"},
	}
	meta := &domain.TelemetryMeta{KeyframeCount: 3}
	assert.Equal(t, 100, ComputeIntegrity(run, meta))

	// Each failed check drops 25 points.
	assert.Equal(t, 75, ComputeIntegrity(run, &domain.TelemetryMeta{}))
	assert.Equal(t, 50, ComputeIntegrity(&domain.Run{RunID: "r1", TotalTicks: 100}, nil))
	assert.Equal(t, 0, ComputeIntegrity(nil, nil))
}

func TestComputeActivity(t *testing.T) {
	rate := 1.0
	meta := &domain.TelemetryMeta{
		MeanActivityRate: &rate,
		TrackedAgents:    10,
		EventCount:       1000, // 100 events per agent saturates the event term
	}
	assert.Equal(t, 100, ComputeActivity(meta))

	// Missing rate falls back to the neutral default.
	assert.Equal(t, 30, ComputeActivity(&domain.TelemetryMeta{}))

	half := 0.5
	meta = &domain.TelemetryMeta{MeanActivityRate: &half, TrackedAgents: 10, EventCount: 500}
	assert.Equal(t, 50, ComputeActivity(meta))
}

func TestComputeStabilityRequiresThreeRuns(t *testing.T) {
	base := time.Now()
	history := []domain.Run{
		succeededRun(base, time.Minute),
		succeededRun(base.Add(time.Hour), time.Minute),
	}
	assert.Nil(t, ComputeStability(history))

	history = append(history, succeededRun(base.Add(2*time.Hour), time.Minute))
	score := ComputeStability(history)
	require.NotNil(t, score)
	// Identical durations have zero variance.
	assert.InDelta(t, 100, *score, 1e-9)
}

func TestComputeStabilityIgnoresNonSucceeded(t *testing.T) {
	base := time.Now()
	failed := succeededRun(base, time.Minute)
	failed.Status = domain.RunStatusFailed
	history := []domain.Run{
		succeededRun(base, time.Minute),
		succeededRun(base.Add(time.Hour), time.Minute),
		failed,
	}
	assert.Nil(t, ComputeStability(history))
}

func TestComputeStabilityPenalizesVariance(t *testing.T) {
	base := time.Now()
	history := []domain.Run{
		succeededRun(base, 10*time.Second),
		succeededRun(base.Add(time.Hour), 60*time.Second),
		succeededRun(base.Add(2*time.Hour), 200*time.Second),
	}
	score := ComputeStability(history)
	require.NotNil(t, score)
	assert.Less(t, *score, 60.0)
	assert.GreaterOrEqual(t, *score, 0.0)
}

func TestComputeOverall(t *testing.T) {
	stability := 80.0
	// 0.25*80 + 0.30*100 + 0.25*40 + 0.20*80 = 76
	assert.Equal(t, 76, ComputeOverall(80, 100, 40, &stability))
	// Nil stability contributes the neutral 50.
	// 0.25*80 + 0.30*100 + 0.25*40 + 0.20*50 = 70
	assert.Equal(t, 70, ComputeOverall(80, 100, 40, nil))
}

func TestWarnings(t *testing.T) {
	meta := &domain.TelemetryMeta{TrackedAgents: 5}

	warnings := Warnings(80, 80, nil, meta)
	require.Len(t, warnings, 1)
	assert.Equal(t, "stability_unavailable", warnings[0].Code)
	assert.Equal(t, domain.WarningLevelInfo, warnings[0].Level)
	assert.NotEmpty(t, warnings[0].Remediation)

	low := 30.0
	warnings = Warnings(20, 20, &low, meta)
	codes := make([]string, 0, len(warnings))
	for _, w := range warnings {
		codes = append(codes, w.Code)
	}
	assert.ElementsMatch(t, []string{"low_coverage", "low_activity", "low_stability"}, codes)

	warnings = Warnings(80, 80, &low, nil)
	var errorCodes []string
	for _, w := range warnings {
		if w.Level == domain.WarningLevelError {
			errorCodes = append(errorCodes, w.Code)
		}
	}
	assert.Equal(t, []string{"no_tracked_agents"}, errorCodes)
}

func TestScoreAssemblesSummary(t *testing.T) {
	base := time.Now()
	run := succeededRun(base, time.Minute)
	run.RunID = "r1"
	run.NodeID = "n1"
	run.TotalTicks = 1000
	run.TelemetryRef = domain.StorageRef{Bucket: "sim", Key: "r1/t"}

	rate := 0.8
	meta := &domain.TelemetryMeta{
		KeyframeCount:    100,
		TrackedAgents:    10,
		EventCount:       1000,
		MeanActivityRate: &rate,
	}
	history := []domain.Run{
		succeededRun(base, time.Minute),
		succeededRun(base.Add(time.Hour), time.Minute),
		succeededRun(base.Add(2*time.Hour), time.Minute),
	}

	m := Score(&run, meta, history)
	assert.Equal(t, "r1", m.RunID)
	assert.Equal(t, "n1", m.NodeID)
	assert.Equal(t, 100, m.Coverage)
	assert.Equal(t, 100, m.Integrity)
	assert.Equal(t, 88, m.Activity)
	require.NotNil(t, m.Stability)
	assert.Equal(t, ComputeOverall(m.Coverage, m.Integrity, m.Activity, m.Stability), m.Overall)
	assert.Empty(t, m.Warnings)
}
