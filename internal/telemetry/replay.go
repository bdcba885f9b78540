package telemetry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
	"github.com/workautomate224-lang/agentverse-sub002/internal/repository"
)

// Recording is an immutable in-memory snapshot of a sealed recording.
// All readers share one instance without coordination.
type Recording struct {
	Meta      *domain.TelemetryMeta
	Index     *domain.TelemetryIndex
	Keyframes map[int64]domain.Keyframe
	Deltas    []domain.Delta
	// Issues holds integrity problems found at load time. They degrade
	// replay rather than failing it.
	Issues []string
}

// Resolver reconstructs world state at arbitrary ticks from sealed
// telemetry. It is strictly read-only: it never creates runs and never
// mutates recordings. Sealed recordings are cached; they can never change.
type Resolver struct {
	store repository.Store

	mu    sync.RWMutex
	cache map[string]*Recording
}

// NewResolver creates a resolver over the given store.
func NewResolver(store repository.Store) *Resolver {
	return &Resolver{store: store, cache: make(map[string]*Recording)}
}

// Load returns the immutable snapshot for a sealed run.
func (r *Resolver) Load(ctx context.Context, runID string) (*Recording, error) {
	r.mu.RLock()
	rec, ok := r.cache[runID]
	r.mu.RUnlock()
	if ok {
		return rec, nil
	}

	meta, err := r.store.GetTelemetryMeta(ctx, runID)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, domain.ErrNotFound
	}
	if !meta.Sealed {
		return nil, domain.NewValidationError("run_id", fmt.Sprintf("telemetry for run %s is not sealed yet", runID))
	}
	index, err := r.store.GetTelemetryIndex(ctx, runID)
	if err != nil {
		return nil, err
	}
	keyframes, err := r.store.GetKeyframes(ctx, runID)
	if err != nil {
		return nil, err
	}
	deltas, err := r.store.GetDeltas(ctx, runID)
	if err != nil {
		return nil, err
	}

	rec = &Recording{
		Meta:      meta,
		Index:     index,
		Keyframes: make(map[int64]domain.Keyframe, len(keyframes)),
		Deltas:    deltas,
	}
	for _, kf := range keyframes {
		rec.Keyframes[kf.Tick] = kf
	}
	rec.Issues = checkIntegrity(rec)

	r.mu.Lock()
	r.cache[runID] = rec
	r.mu.Unlock()
	return rec, nil
}

// checkIntegrity reports index/keyframe inconsistencies. Findings degrade
// replay instead of failing it so a partially corrupt recording can still be
// partially replayed.
func checkIntegrity(rec *Recording) []string {
	var issues []string
	if rec.Index == nil {
		issues = append(issues, "missing telemetry index")
		return issues
	}
	for _, entry := range rec.Index.Keyframes {
		if _, ok := rec.Keyframes[entry.Tick]; !ok {
			issues = append(issues, fmt.Sprintf("index references keyframe at tick %d but no keyframe row exists", entry.Tick))
		}
		if entry.DeltaStart > entry.DeltaEnd || entry.DeltaEnd > len(rec.Deltas) {
			issues = append(issues, fmt.Sprintf("index delta range [%d,%d) for keyframe %d out of bounds", entry.DeltaStart, entry.DeltaEnd, entry.Tick))
		}
	}
	for i := 1; i < len(rec.Deltas); i++ {
		if rec.Deltas[i].Tick < rec.Deltas[i-1].Tick {
			issues = append(issues, fmt.Sprintf("delta stream not tick-monotonic at ordinal %d", i))
			break
		}
	}
	return issues
}

// Slice reconstructs the world state at one tick: nearest keyframe at or
// before the tick, plus buffered deltas applied forward in stored order.
func (r *Resolver) Slice(ctx context.Context, runID string, tick int64) (*domain.Slice, error) {
	rec, err := r.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	return resolveSlice(rec, runID, tick)
}

// Range reconstructs slices over [start, end). A downsample factor of N
// returns every Nth tick; 0 and 1 both mean every tick.
func (r *Resolver) Range(ctx context.Context, runID string, start, end int64, downsample int64) ([]domain.Slice, error) {
	if start < 0 || end < start {
		return nil, domain.NewValidationError("range", fmt.Sprintf("invalid range [%d,%d)", start, end))
	}
	rec, err := r.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	if end > rec.Meta.TotalTicks {
		end = rec.Meta.TotalTicks
	}
	if downsample < 1 {
		downsample = 1
	}
	var slices []domain.Slice
	for t := start; t < end; t += downsample {
		sl, err := resolveSlice(rec, runID, t)
		if err != nil {
			return nil, err
		}
		slices = append(slices, *sl)
	}
	return slices, nil
}

func resolveSlice(rec *Recording, runID string, tick int64) (*domain.Slice, error) {
	if tick < 0 || tick >= rec.Meta.TotalTicks {
		return nil, fmt.Errorf("tick %d of run %s: %w", tick, runID, domain.ErrNotFound)
	}

	sl := &domain.Slice{RunID: runID, Tick: tick}
	if len(rec.Issues) > 0 {
		sl.ReplayDegraded = true
		sl.Issues = append(sl.Issues, rec.Issues...)
	}

	// Nearest index entry at or before tick.
	var base domain.WorldState
	deltaFrom := 0
	anchored := false
	if rec.Index != nil {
		entries := rec.Index.Keyframes
		i := sort.Search(len(entries), func(j int) bool { return entries[j].Tick > tick })
		for i--; i >= 0; i-- {
			kf, ok := rec.Keyframes[entries[i].Tick]
			if !ok {
				// Already reported by checkIntegrity; fall back to an
				// earlier anchor.
				continue
			}
			base = kf.State.Clone()
			deltaFrom = entries[i].DeltaStart
			anchored = true
			break
		}
	}
	if !anchored {
		sl.ReplayDegraded = true
		sl.Issues = append(sl.Issues, fmt.Sprintf("no usable keyframe at or before tick %d, replaying from empty state", tick))
		base = domain.WorldState{}
	}

	hadDeltaAtTick := false
	for i := deltaFrom; i < len(rec.Deltas); i++ {
		d := rec.Deltas[i]
		if d.Tick > tick {
			break
		}
		st, ok := base[d.TargetID]
		if !ok {
			st = domain.AgentState{}
			base[d.TargetID] = st
		}
		st[d.FieldPath] = d.Value
		if d.Tick == tick {
			hadDeltaAtTick = true
		}
	}

	_, isKeyframeTick := rec.Keyframes[tick]
	sl.State = base
	sl.IsInterpolated = !isKeyframeTick && !hadDeltaAtTick
	return sl, nil
}
