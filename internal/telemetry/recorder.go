package telemetry

import (
	"context"
	"fmt"
	"sort"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

// Recorder is the single-writer ingestion path for one run's telemetry.
// Appends are accepted only while the owning run is RUNNING; sealing makes
// the recording read-only forever.
type Recorder struct {
	store            repository.Store
	keyframeInterval int64
	sampleRate       float64
}

// NewRecorder creates a recorder with the configured keyframe interval and
// delta sample rate.
func NewRecorder(store repository.Store, keyframeInterval int64, sampleRate float64) *Recorder {
	return &Recorder{
		store:            store,
		keyframeInterval: keyframeInterval,
		sampleRate:       sampleRate,
	}
}

// AppendKeyframe records a full/partial state snapshot. Keyframes land on
// the configured interval unless explicitly forced (event boundaries).
func (r *Recorder) AppendKeyframe(ctx context.Context, run *domain.Run, req *domain.AppendKeyframeRequest) error {
	if run.Status != domain.RunStatusRunning {
		return domain.NewValidationError("status", fmt.Sprintf("run %s is %s, telemetry is writable only while running", run.RunID, run.Status))
	}
	if req.Tick < 0 || req.Tick >= run.TotalTicks {
		return domain.NewValidationError("tick", fmt.Sprintf("tick %d outside [0,%d)", req.Tick, run.TotalTicks))
	}
	if !req.Forced && req.Tick%r.keyframeInterval != 0 {
		return domain.NewValidationError("tick", fmt.Sprintf("tick %d not on keyframe interval %d and not forced", req.Tick, r.keyframeInterval))
	}
	kf := &domain.Keyframe{Tick: req.Tick, State: req.State, Forced: req.Forced}
	return r.store.AppendKeyframe(ctx, run.RunID, kf)
}

// AppendDeltas records a batch of per-tick changes. The batch is sorted by
// (tick, target id, field path), filtered through the deterministic sampling
// decision, and must not go backwards in time relative to earlier appends.
func (r *Recorder) AppendDeltas(ctx context.Context, run *domain.Run, deltas []domain.Delta) error {
	if run.Status != domain.RunStatusRunning {
		return domain.NewValidationError("status", fmt.Sprintf("run %s is %s, telemetry is writable only while running", run.RunID, run.Status))
	}
	lastTick, err := r.store.LastDeltaTick(ctx, run.RunID)
	if err != nil {
		return err
	}

	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Tick != deltas[j].Tick {
			return deltas[i].Tick < deltas[j].Tick
		}
		if deltas[i].TargetID != deltas[j].TargetID {
			return deltas[i].TargetID < deltas[j].TargetID
		}
		return deltas[i].FieldPath < deltas[j].FieldPath
	})

	kept := deltas[:0]
	for _, d := range deltas {
		if d.Tick < 0 || d.Tick >= run.TotalTicks {
			return domain.NewValidationError("tick", fmt.Sprintf("delta tick %d outside [0,%d)", d.Tick, run.TotalTicks))
		}
		if d.Tick < lastTick {
			return domain.NewValidationError("tick", fmt.Sprintf("delta tick %d precedes last recorded tick %d", d.Tick, lastTick))
		}
		if !ShouldRecordDelta(run.ActualSeed, d.Tick, d.TargetID, r.sampleRate) {
			continue
		}
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return nil
	}
	return r.store.AppendDeltas(ctx, run.RunID, kept)
}

// Seal marks the recording immutable and builds the lookup index. Called
// when the owning run reaches a terminal state.
func (r *Recorder) Seal(ctx context.Context, runID string) error {
	meta, err := r.store.GetTelemetryMeta(ctx, runID)
	if err != nil {
		return err
	}
	if meta == nil {
		return domain.ErrNotFound
	}
	if meta.Sealed {
		return nil
	}
	keyframes, err := r.store.GetKeyframes(ctx, runID)
	if err != nil {
		return err
	}
	deltas, err := r.store.GetDeltas(ctx, runID)
	if err != nil {
		return err
	}

	index := BuildIndex(keyframes, deltas)

	tracked := map[string]bool{}
	for _, kf := range keyframes {
		for id := range kf.State {
			tracked[id] = true
		}
	}
	meta.TrackedAgents = len(tracked)
	meta.MeanActivityRate = meanActivityRate(deltas, meta.TotalTicks, len(tracked))

	return r.store.SealTelemetry(ctx, meta, index)
}

// BuildIndex computes the seal-time index: per-keyframe delta ranges plus
// per-target and per-metric tick tables.
func BuildIndex(keyframes []domain.Keyframe, deltas []domain.Delta) *domain.TelemetryIndex {
	index := &domain.TelemetryIndex{
		TargetTicks: map[string][]int64{},
		MetricTicks: map[string][]int64{},
	}
	for i, kf := range keyframes {
		entry := domain.KeyframeEntry{Tick: kf.Tick}
		entry.DeltaStart = sort.Search(len(deltas), func(j int) bool { return deltas[j].Tick >= kf.Tick })
		if i+1 < len(keyframes) {
			next := keyframes[i+1].Tick
			entry.DeltaEnd = sort.Search(len(deltas), func(j int) bool { return deltas[j].Tick >= next })
		} else {
			entry.DeltaEnd = len(deltas)
		}
		index.Keyframes = append(index.Keyframes, entry)
	}
	for _, d := range deltas {
		if ticks := index.TargetTicks[d.TargetID]; len(ticks) == 0 || ticks[len(ticks)-1] != d.Tick {
			index.TargetTicks[d.TargetID] = append(ticks, d.Tick)
		}
		if d.Metric != "" {
			if ticks := index.MetricTicks[d.Metric]; len(ticks) == 0 || ticks[len(ticks)-1] != d.Tick {
				index.MetricTicks[d.Metric] = append(ticks, d.Tick)
			}
		}
	}
	return index
}

// meanActivityRate is the mean over ticks of the fraction of tracked targets
// that changed that tick. Nil when nothing was tracked.
func meanActivityRate(deltas []domain.Delta, totalTicks int64, trackedAgents int) *float64 {
	if trackedAgents == 0 || totalTicks <= 0 {
		return nil
	}
	perTick := map[int64]map[string]bool{}
	for _, d := range deltas {
		targets, ok := perTick[d.Tick]
		if !ok {
			targets = map[string]bool{}
			perTick[d.Tick] = targets
		}
		targets[d.TargetID] = true
	}
	var sum float64
	for _, targets := range perTick {
		sum += float64(len(targets)) / float64(trackedAgents)
	}
	rate := sum / float64(totalTicks)
	if rate > 1 {
		rate = 1
	}
	return &rate
}
