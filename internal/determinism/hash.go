// Package determinism proves that identical inputs produce identical
// outputs: canonical hashes over a run's config, aggregated result and
// telemetry, compared byte-for-byte across runs.
package determinism

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/workautomate224-lang/agentverse-sub002/internal/domain"
)

// CanonicalJSON serializes a value with stable field ordering and normalized
// numeric formatting, so equivalent inputs always yield identical bytes.
// A failure here is a hard error: a broken proof artifact is a correctness
// bug, not a user-facing condition.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		enc, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("canonicalize string: %w", err)
		}
		buf.Write(enc)
	case json.Number:
		// Integers keep their exact representation; everything else is
		// normalized through the shortest float form.
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			buf.WriteString(strconv.FormatInt(i, 10))
			return nil
		}
		f, err := val.Float64()
		if err != nil {
			return fmt.Errorf("canonicalize number %q: %w", val.String(), err)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("canonicalize key: %w", err)
			}
			buf.Write(enc)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("canonicalize: unsupported type %T", v)
	}
	return nil
}

func hashCanonical(v any) (string, error) {
	canon, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// HashConfig hashes a run's configuration; invariant to key-insertion order.
func HashConfig(cfg any) (string, error) {
	return hashCanonical(cfg)
}

// HashResult hashes a run's aggregated outcomes.
func HashResult(outcomes any) (string, error) {
	return hashCanonical(outcomes)
}

// telemetryDigest is the canonical projection of a recording used for
// hashing: header counts plus every keyframe and delta in stored order.
type telemetryDigest struct {
	TotalTicks int64             `json:"total_ticks"`
	Keyframes  []domain.Keyframe `json:"keyframes"`
	Deltas     []domain.Delta    `json:"deltas"`
}

// HashTelemetry hashes a sealed recording's content.
func HashTelemetry(totalTicks int64, keyframes []domain.Keyframe, deltas []domain.Delta) (string, error) {
	sorted := append([]domain.Keyframe(nil), keyframes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Tick < sorted[j].Tick })
	return hashCanonical(telemetryDigest{
		TotalTicks: totalTicks,
		Keyframes:  sorted,
		Deltas:     deltas,
	})
}

// Compare reports per-artifact matches between two signatures.
// reproducible holds only when all three hashes match.
func Compare(a, b *domain.DeterminismSignature) *domain.CompareResult {
	res := &domain.CompareResult{
		RunIDA:         a.RunID,
		RunIDB:         b.RunID,
		ConfigMatch:    a.ConfigHash == b.ConfigHash,
		ResultMatch:    a.ResultHash == b.ResultHash,
		TelemetryMatch: a.TelemetryHash == b.TelemetryHash,
	}
	res.Reproducible = res.ConfigMatch && res.ResultMatch && res.TelemetryMatch
	return res
}

// AssembleEvidence builds the immutable audit artifact for a run's
// determinism proof. The bundle is hashed once at assembly time and never
// recomputed.
func AssembleEvidence(runID string, disallowedCalls, blockedPreCutoffReads, nondeterministicHits int) (*domain.EvidenceBundle, error) {
	bundle := &domain.EvidenceBundle{
		RunID:                 runID,
		DisallowedCalls:       disallowedCalls,
		BlockedPreCutoffReads: blockedPreCutoffReads,
		NondeterministicHits:  nondeterministicHits,
		AssembledAt:           time.Now().UTC(),
	}
	hash, err := hashCanonical(map[string]any{
		"run_id":                   bundle.RunID,
		"disallowed_calls":         bundle.DisallowedCalls,
		"blocked_pre_cutoff_reads": bundle.BlockedPreCutoffReads,
		"nondeterministic_hits":    bundle.NondeterministicHits,
	})
	if err != nil {
		return nil, err
	}
	bundle.BundleHash = hash
	return bundle, nil
}
