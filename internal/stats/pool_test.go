package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

func TestPoolAnalyze(t *testing.T) {
	pool := NewPool(2)
	obs := observations(0.5, 0.6, 0.7)

	summary, err := pool.Analyze(context.Background(), "n1", "m", obs, domain.OpGTE, []float64{0.6}, testOpts())
	require.NoError(t, err)
	assert.Equal(t, domain.StatsStatusOK, summary.Status)
}

func TestPoolAnalyzeCancelled(t *testing.T) {
	pool := NewPool(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Analyze(ctx, "n1", "m", observations(0.5, 0.6, 0.7), domain.OpGTE, nil, testOpts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolAnalyzePropagatesValidation(t *testing.T) {
	pool := NewPool(1)
	_, err := pool.Analyze(context.Background(), "n1", "m", observations(0.5, 0.6, 0.7), "bogus", nil, testOpts())
	assert.True(t, domain.IsValidation(err))
}
