package stats

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// Pool bounds the number of concurrent CPU-bound analyses so statistics
// never starve the request-serving path. Cancellation simply discards the
// in-flight computation; inputs are read-only snapshots, so there is nothing
// to clean up.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool admitting at most workers concurrent analyses.
func NewPool(workers int64) *Pool {
	return &Pool{sem: semaphore.NewWeighted(workers)}
}

// Analyze runs one analysis under the pool's concurrency bound. The caller's
// context carries the visible timeout; waiting for a slot counts against it.
func (p *Pool) Analyze(ctx context.Context, nodeID, metricKey string, obs []Observation, op domain.ComparisonOp, thresholds []float64, opts Options) (*domain.StatisticalSummary, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	type result struct {
		summary *domain.StatisticalSummary
		err     error
	}
	done := make(chan result, 1)
	go func() {
		summary, err := Analyze(nodeID, metricKey, obs, op, thresholds, opts)
		done <- result{summary, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.summary, res.err
	}
}
