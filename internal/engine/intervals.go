package engine

import (
	"sort"

	"github.com/sushil-thasale/cda-client/internal/manifest"
)

// Intervals derives the fingerprint activity intervals from a table's schema
// history, sorted by start timestamp ascending. The intervals partition the
// timeline: each runs to the next fingerprint's start, the last to
// UnboundedEnd.
func Intervals(schemaHistory map[string]int64) []FingerprintInterval {
	out := make([]FingerprintInterval, 0, len(schemaHistory))
	for fp, start := range schemaHistory {
		out = append(out, FingerprintInterval{Fingerprint: fp, Start: start})
	}
	sort.Slice(out, func(i, k int) bool {
		if out[i].Start != out[k].Start {
			return out[i].Start < out[k].Start
		}
		return out[i].Fingerprint < out[k].Fingerprint
	})

	for i := range out {
		if i+1 < len(out) {
			out[i].End = out[i+1].Start
		} else {
			out[i].End = UnboundedEnd
		}
	}
	return out
}

// UnprocessedFingerprints returns the fingerprints of a table that still
// have unprocessed data: those whose interval extends past the watermark.
// A table seen for the first time passes watermark = NoWatermark, which
// qualifies every fingerprint.
func UnprocessedFingerprints(entry manifest.Entry, watermark int64) []string {
	var out []string
	for _, iv := range Intervals(entry.SchemaHistory) {
		if iv.End > watermark {
			out = append(out, iv.Fingerprint)
		}
	}
	return out
}
