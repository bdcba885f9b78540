package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

// sealedFixture records a small run and seals it:
// keyframe at 0, deltas at ticks 2 and 6, forced keyframe at 5, 10 ticks.
func sealedFixture(t *testing.T) (repository.Store, *Resolver) {
	t.Helper()
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rec := NewRecorder(store, 5, 1.0)
	run := newTestRun(t, store, "r1", 10)

	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{
		Tick:  0,
		State: domain.WorldState{"agent_1": {"x": 0, "mood": 0.5}},
	}))
	require.NoError(t, rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 2, TargetID: "agent_1", FieldPath: "x", Value: 7},
	}))
	require.NoError(t, rec.AppendKeyframe(ctx, run, &domain.AppendKeyframeRequest{
		Tick:  5,
		State: domain.WorldState{"agent_1": {"x": 7, "mood": 0.5}},
	}))
	require.NoError(t, rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 6, TargetID: "agent_2", FieldPath: "x", Value: 1},
	}))
	require.NoError(t, rec.Seal(ctx, "r1"))

	return store, NewResolver(store)
}

func TestResolverSliceAtKeyframe(t *testing.T) {
	_, resolver := sealedFixture(t)
	ctx := context.Background()

	slice, err := resolver.Slice(ctx, "r1", 0)
	require.NoError(t, err)
	assert.False(t, slice.IsInterpolated)
	assert.False(t, slice.ReplayDegraded)
	assert.Equal(t, float64(0), slice.State["agent_1"]["x"])
}

func TestResolverSliceAppliesDeltas(t *testing.T) {
	_, resolver := sealedFixture(t)
	ctx := context.Background()

	// Tick 2 has a recorded delta: not interpolated, delta applied.
	slice, err := resolver.Slice(ctx, "r1", 2)
	require.NoError(t, err)
	assert.False(t, slice.IsInterpolated)
	assert.Equal(t, float64(7), slice.State["agent_1"]["x"])
	assert.Equal(t, 0.5, slice.State["agent_1"]["mood"])

	// Tick 3 has no recording of its own: carried forward, interpolated.
	slice, err = resolver.Slice(ctx, "r1", 3)
	require.NoError(t, err)
	assert.True(t, slice.IsInterpolated)
	assert.Equal(t, float64(7), slice.State["agent_1"]["x"])

	// Tick 6 introduces a previously unseen target via delta.
	slice, err = resolver.Slice(ctx, "r1", 6)
	require.NoError(t, err)
	assert.False(t, slice.IsInterpolated)
	assert.Equal(t, float64(1), slice.State["agent_2"]["x"])
}

func TestResolverSliceBounds(t *testing.T) {
	_, resolver := sealedFixture(t)
	ctx := context.Background()

	// Ticks live in [0, total_ticks); the final tick index is total-1.
	_, err := resolver.Slice(ctx, "r1", 9)
	require.NoError(t, err)

	_, err = resolver.Slice(ctx, "r1", 10)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = resolver.Slice(ctx, "r1", -1)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResolverRange(t *testing.T) {
	_, resolver := sealedFixture(t)
	ctx := context.Background()

	slices, err := resolver.Range(ctx, "r1", 0, 10, 1)
	require.NoError(t, err)
	assert.Len(t, slices, 10)

	// Downsampling returns every Nth tick; the end stays exclusive.
	slices, err = resolver.Range(ctx, "r1", 0, 10, 3)
	require.NoError(t, err)
	require.Len(t, slices, 4)
	assert.Equal(t, int64(9), slices[3].Tick)

	// End past the recording is clamped.
	slices, err = resolver.Range(ctx, "r1", 8, 100, 1)
	require.NoError(t, err)
	assert.Len(t, slices, 2)

	_, err = resolver.Range(ctx, "r1", 5, 2, 1)
	assert.True(t, domain.IsValidation(err))
}

func TestResolverRejectsUnsealed(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	newTestRun(t, store, "r1", 10)
	resolver := NewResolver(store)

	_, err = resolver.Slice(ctx, "r1", 0)
	assert.True(t, domain.IsValidation(err))

	_, err = resolver.Slice(ctx, "missing", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestResolverDegradedReplay(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	// Seal a recording with deltas but no keyframes at all. Replay still
	// works, reporting degradation and rebuilding from empty state.
	rec := NewRecorder(store, 5, 1.0)
	run := newTestRun(t, store, "r1", 10)
	require.NoError(t, rec.AppendDeltas(ctx, run, []domain.Delta{
		{Tick: 1, TargetID: "agent_1", FieldPath: "x", Value: 3},
	}))
	require.NoError(t, rec.Seal(ctx, "r1"))

	resolver := NewResolver(store)
	slice, err := resolver.Slice(ctx, "r1", 4)
	require.NoError(t, err)
	assert.True(t, slice.ReplayDegraded)
	assert.NotEmpty(t, slice.Issues)
	assert.Equal(t, float64(3), slice.State["agent_1"]["x"])
}
