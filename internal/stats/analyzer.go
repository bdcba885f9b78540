// Package stats implements cross-run statistics for a node: threshold
// sensitivity curves, bootstrap stability of metric means, and distribution
// drift detection (KS + PSI). All inputs are read-only snapshots of
// succeeded runs; nothing here mutates state.
package stats

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// Options carries the policy constants for one analysis. The thresholds are
// observed product defaults, kept configurable rather than assumed correct.
type Options struct {
	MinRuns             int
	BootstrapIterations int
	PSIStableMax        float64
	PSIDriftMin         float64
	KSDriftMin          float64
	PSIBins             int
}

// Observation is one succeeded run's realized value for the metric under
// analysis.
type Observation struct {
	RunID     string
	StartedAt time.Time
	Value     float64
}

// Analyze computes the full statistical summary for one (node, metric key).
// When fewer than MinRuns observations exist it returns the typed
// insufficient_data variant and performs no further computation.
func Analyze(nodeID, metricKey string, obs []Observation, op domain.ComparisonOp, thresholds []float64, opts Options) (*domain.StatisticalSummary, error) {
	if !op.Valid() {
		return nil, domain.NewValidationError("op", fmt.Sprintf("unknown comparison operator %q", op))
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i] < thresholds[i-1] {
			return nil, domain.NewValidationError("thresholds", "threshold grid must be non-decreasing")
		}
	}

	summary := &domain.StatisticalSummary{
		NodeID:     nodeID,
		MetricKey:  metricKey,
		NRunsUsed:  len(obs),
		NRunsTotal: len(obs),
	}
	if len(obs) < opts.MinRuns {
		summary.Status = domain.StatsStatusInsufficientData
		return summary, nil
	}

	// Chronological order fixes the baseline/recent split and makes the
	// fingerprint independent of store iteration order.
	sort.Slice(obs, func(i, j int) bool {
		if !obs[i].StartedAt.Equal(obs[j].StartedAt) {
			return obs[i].StartedAt.Before(obs[j].StartedAt)
		}
		return obs[i].RunID < obs[j].RunID
	})

	values := make([]float64, len(obs))
	runIDs := make([]string, len(obs))
	for i, o := range obs {
		values[i] = o.Value
		runIDs[i] = o.RunID
	}

	fingerprint := SeedFingerprint(nodeID, metricKey, runIDs)

	summary.Status = domain.StatsStatusOK
	summary.Sensitivity = Sensitivity(values, op, thresholds)
	summary.Bootstrap = Bootstrap(values, opts.BootstrapIterations, fingerprint)
	summary.Drift = Drift(values, opts)
	summary.SeedFingerprint = fingerprint
	now := time.Now().UTC()
	summary.ComputedAt = &now
	return summary, nil
}

// SeedFingerprint derives the deterministic RNG fingerprint from the node,
// metric and the sorted run id set, so repeated calls over the same runs
// reproduce identical results.
func SeedFingerprint(nodeID, metricKey string, runIDs []string) string {
	sorted := append([]string(nil), runIDs...)
	sort.Strings(sorted)
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s", nodeID, metricKey)
	for _, id := range sorted {
		fmt.Fprintf(h, "\x00%s", id)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sensitivity reports, per threshold, the fraction of runs whose realized
// value satisfies op(value, threshold).
func Sensitivity(values []float64, op domain.ComparisonOp, thresholds []float64) []domain.SensitivityPoint {
	points := make([]domain.SensitivityPoint, 0, len(thresholds))
	for _, th := range thresholds {
		hits := 0
		for _, v := range values {
			if satisfies(v, op, th) {
				hits++
			}
		}
		points = append(points, domain.SensitivityPoint{
			Threshold:   th,
			Probability: float64(hits) / float64(len(values)),
		})
	}
	return points
}

func satisfies(value float64, op domain.ComparisonOp, threshold float64) bool {
	switch op {
	case domain.OpGT:
		return value > threshold
	case domain.OpGTE:
		return value >= threshold
	case domain.OpLT:
		return value < threshold
	case domain.OpLTE:
		return value <= threshold
	case domain.OpEQ:
		return value == threshold
	}
	return false
}

// Bootstrap resamples the observed values with replacement, recomputing the
// mean each time, and reports the resampling distribution. The RNG is seeded
// from the fingerprint so the result is reproducible.
func Bootstrap(values []float64, iterations int, fingerprint string) *domain.BootstrapStability {
	if iterations <= 0 || len(values) == 0 {
		return nil
	}
	var seed int64
	if raw, err := hex.DecodeString(fingerprint); err == nil && len(raw) >= 8 {
		seed = int64(binary.BigEndian.Uint64(raw[:8]))
	}
	rng := rand.New(rand.NewSource(seed))

	means := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		sum := 0.0
		for j := 0; j < len(values); j++ {
			sum += values[rng.Intn(len(values))]
		}
		means[i] = sum / float64(len(values))
	}
	sort.Float64s(means)

	mean := 0.0
	for _, m := range means {
		mean += m
	}
	mean /= float64(iterations)
	variance := 0.0
	for _, m := range means {
		variance += (m - mean) * (m - mean)
	}
	variance /= float64(iterations)

	return &domain.BootstrapStability{
		Mean:        mean,
		StdDev:      math.Sqrt(variance),
		CILower:     percentile(means, 0.025),
		CIUpper:     percentile(means, 0.975),
		SampleCount: len(values),
		Iterations:  iterations,
	}
}

// percentile reads the p-quantile from an already sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Drift splits the chronological values into a baseline (older) half and a
// recent half, then compares the two distributions.
func Drift(values []float64, opts Options) *domain.DriftReport {
	if len(values) < 2 {
		return nil
	}
	split := len(values) / 2
	baseline := values[:split]
	recent := values[split:]

	ks := KSStatistic(baseline, recent)
	psi := PSI(baseline, recent, opts.PSIBins)

	status := domain.DriftStatusStable
	switch {
	case psi > opts.PSIDriftMin || ks >= opts.KSDriftMin:
		status = domain.DriftStatusDrifting
	case psi >= opts.PSIStableMax:
		status = domain.DriftStatusWarning
	}

	return &domain.DriftReport{
		KSStatistic:  ks,
		PSI:          psi,
		Status:       status,
		BaselineSize: len(baseline),
		RecentSize:   len(recent),
	}
}

// KSStatistic is the two-sample Kolmogorov-Smirnov statistic: the maximum
// distance between the two empirical CDFs.
func KSStatistic(a, b []float64) float64 {
	as := append([]float64(nil), a...)
	bs := append([]float64(nil), b...)
	sort.Float64s(as)
	sort.Float64s(bs)

	maxDist := 0.0
	i, j := 0, 0
	for i < len(as) && j < len(bs) {
		x := math.Min(as[i], bs[j])
		for i < len(as) && as[i] <= x {
			i++
		}
		for j < len(bs) && bs[j] <= x {
			j++
		}
		dist := math.Abs(float64(i)/float64(len(as)) - float64(j)/float64(len(bs)))
		if dist > maxDist {
			maxDist = dist
		}
	}
	return maxDist
}

// psiEpsilon floors empty bins so the log ratio stays finite.
const psiEpsilon = 1e-4

// PSI is the Population Stability Index between the two samples, binned
// uniformly over their pooled range.
func PSI(baseline, recent []float64, bins int) float64 {
	if bins < 2 || len(baseline) == 0 || len(recent) == 0 {
		return 0
	}
	lo, hi := baseline[0], baseline[0]
	for _, v := range baseline {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	for _, v := range recent {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 0
	}
	width := (hi - lo) / float64(bins)

	binOf := func(v float64) int {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		if b < 0 {
			b = 0
		}
		return b
	}
	baseCounts := make([]float64, bins)
	recCounts := make([]float64, bins)
	for _, v := range baseline {
		baseCounts[binOf(v)]++
	}
	for _, v := range recent {
		recCounts[binOf(v)]++
	}

	psi := 0.0
	for b := 0; b < bins; b++ {
		p := math.Max(baseCounts[b]/float64(len(baseline)), psiEpsilon)
		q := math.Max(recCounts[b]/float64(len(recent)), psiEpsilon)
		psi += (p - q) * math.Log(p/q)
	}
	return psi
}
