package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

func newTestRun(t *testing.T, store repository.Store, runID string, totalTicks int64) *domain.Run {
	t.Helper()
	ctx := context.Background()
	run := &domain.Run{
		RunID:      runID,
		NodeID:     "n1",
		ProjectID:  "p1",
		Status:     domain.RunStatusQueued,
		QueuedAt:   time.Now(),
		TotalTicks: totalTicks,
	}
	require.NoError(t, store.CreateRun(ctx, run))
	seed := int64(42)
	require.NoError(t, store.UpdateRunStatus(ctx, runID, domain.RunStatusRunning, &seed))
	run.Status = domain.RunStatusRunning
	run.ActualSeed = seed
	return run
}

func TestRecorderAppendKeyframe(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecorder(store, 5, 1.0)
	run := newTestRun(t, store, "r1", 20)

	state := domain.WorldState{"agent_1": {"x": 1}}
	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{Tick: 0, State: state}))
	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{Tick: 5, State: state}))

	// Off-interval tick needs the forced flag.
	err = rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{Tick: 7, State: state})
	assert.True(t, domain.IsValidation(err))
	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{Tick: 7, State: state, Forced: true}))

	// Out of tick bounds.
	err = rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{Tick: 20, State: state})
	assert.True(t, domain.IsValidation(err))

	// Only RUNNING runs accept telemetry.
	queued := &domain.Run{RunID: "r1", Status: domain.RunStatusQueued, TotalTicks: 20}
	err = rec.AppendKeyframe(ctx, queued, &domain.AppendKeyframeRequest{Tick: 0, State: state})
	assert.True(t, domain.IsValidation(err))
}

func TestRecorderAppendDeltasOrderingAndMonotonicity(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecorder(store, 5, 1.0)
	run := newTestRun(t, store, "r1", 20)

	// Batch arrives unordered; the recorder stores it sorted.
	err = rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 3, TargetID: "agent_2", FieldPath: "x", Value: 1},
		{Tick: 1, TargetID: "agent_1", FieldPath: "x", Value: 2},
		{Tick: 3, TargetID: "agent_1", FieldPath: "y", Value: 3},
		{Tick: 3, TargetID: "agent_1", FieldPath: "x", Value: 4},
	})
	require.NoError(t, err)

	deltas, err := store.GetDeltas(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, deltas, 4)
	assert.Equal(t, int64(1), deltas[0].Tick)
	assert.Equal(t, "agent_1", deltas[1].TargetID)
	assert.Equal(t, "x", deltas[1].FieldPath)
	assert.Equal(t, "y", deltas[2].FieldPath)
	assert.Equal(t, "agent_2", deltas[3].TargetID)

	// Appends may not go backwards in time.
	err = rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 2, TargetID: "agent_1", FieldPath: "x", Value: 5},
	})
	assert.True(t, domain.IsValidation(err))

	// Same tick as the last append is still legal.
	err = rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 3, TargetID: "agent_3", FieldPath: "x", Value: 6},
	})
	require.NoError(t, err)
}

func TestRecorderSealBuildsIndex(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecorder(store, 5, 1.0)
	run := newTestRun(t, store, "r1", 10)

	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{
		Tick:  0,
		State: domain.WorldState{"agent_1": {"x": 0}, "agent_2": {"x": 0}},
	}))
	require.NoError(t, rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 1, TargetID: "agent_1", FieldPath: "x", Value: 1},
		{Tick: 2, TargetID: "agent_2", FieldPath: "x", Value: 2, Metric: "position"},
	}))
	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{
		Tick:  5,
		State: domain.WorldState{"agent_1": {"x": 1}, "agent_2": {"x": 2}},
	}))
	require.NoError(t, rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 6, TargetID: "agent_1", FieldPath: "x", Value: 3},
	}))

	require.NoError(t, rec.Seal(ctx, "r1"))

	meta, err := store.GetTelemetryMeta(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, meta.Sealed)
	assert.Equal(t, 2, meta.TrackedAgents)
	require.NotNil(t, meta.MeanActivityRate)

	index, err := store.GetTelemetryIndex(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, index.Keyframes, 2)
	assert.Equal(t, int64(0), index.Keyframes[0].Tick)
	assert.Equal(t, 0, index.Keyframes[0].DeltaStart)
	assert.Equal(t, 2, index.Keyframes[0].DeltaEnd)
	assert.Equal(t, int64(5), index.Keyframes[1].Tick)
	assert.Equal(t, 2, index.Keyframes[1].DeltaStart)
	assert.Equal(t, 3, index.Keyframes[1].DeltaEnd)
	assert.Equal(t, []int64{1, 6}, index.TargetTicks["agent_1"])
	assert.Equal(t, []int64{2}, index.MetricTicks["position"])

	// Sealing twice is a no-op.
	require.NoError(t, rec.Seal(ctx, "r1"))
}

func TestShouldRecordDeltaDeterministic(t *testing.T) {
	// The decision is a pure function of (seed, tick, target).
	for i := 0; i < 50; i++ {
		a := ShouldRecordDelta(42, int64(i), "agent_1", 0.5)
		b := ShouldRecordDelta(42, int64(i), "agent_1", 0.5)
		assert.Equal(t, a, b)
	}
	// Rate 1.0 keeps everything.
	for i := 0; i < 50; i++ {
		assert.True(t, ShouldRecordDelta(7, int64(i), "agent_9", 1.0))
	}
	// Tightening the rate never flips a kept decision from a lower rate.
	for i := 0; i < 200; i++ {
		if ShouldRecordDelta(7, int64(i), "agent_9", 0.2) {
			assert.True(t, ShouldRecordDelta(7, int64(i), "agent_9", 0.8))
		}
	}
}
