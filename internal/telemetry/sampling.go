// Package telemetry implements the append-only tick recording for a run:
// sparse keyframes, a dense delta stream, the seal-time index, and the
// read-only replay resolver built on top of them.
package telemetry

import (
	"fmt"
	"hash/fnv"
)

const sampleResolution = 10000

// ShouldRecordDelta decides whether a (tick, target) delta is recorded.
// The decision is a pure function of (run seed, tick, target id) so that
// re-running with the same seed produces an identical delta set and thus an
// identical telemetry hash.
func ShouldRecordDelta(seed, tick int64, targetID string, sampleRate float64) bool {
	if sampleRate >= 1 {
		return true
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d:%s", seed, tick, targetID)
	return h.Sum64()%sampleResolution < uint64(sampleRate*sampleResolution)
}
