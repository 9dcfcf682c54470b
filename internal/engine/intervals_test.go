package engine

import (
	"reflect"
	"sort"
	"testing"

	"github.com/sushil-thasale/cda-client/internal/manifest"
)

func TestIntervals_PartitionTimeline(t *testing.T) {
	history := map[string]int64{
		"fp-a": 100,
		"fp-b": 200,
		"fp-c": 350,
	}

	ivs := Intervals(history)

	if len(ivs) != 3 {
		t.Fatalf("expected 3 intervals, got %d", len(ivs))
	}

	// Sorted by start, contiguous, last unbounded.
	for i := 1; i < len(ivs); i++ {
		if ivs[i-1].End != ivs[i].Start {
			t.Errorf("gap or overlap between interval %d and %d: end=%d start=%d",
				i-1, i, ivs[i-1].End, ivs[i].Start)
		}
	}
	if ivs[0].Fingerprint != "fp-a" || ivs[0].Start != 100 || ivs[0].End != 200 {
		t.Errorf("unexpected first interval: %+v", ivs[0])
	}
	if ivs[2].End != UnboundedEnd {
		t.Errorf("last interval end should be unbounded, got %d", ivs[2].End)
	}
}

func TestIntervals_SingleFingerprint(t *testing.T) {
	ivs := Intervals(map[string]int64{"only": 42})
	if len(ivs) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(ivs))
	}
	if ivs[0].Start != 42 || ivs[0].End != UnboundedEnd {
		t.Errorf("unexpected interval: %+v", ivs[0])
	}
}

func TestUnprocessedFingerprints(t *testing.T) {
	entry := manifest.Entry{
		Table: "orders",
		SchemaHistory: map[string]int64{
			"A": 100,
			"B": 200,
		},
	}

	cases := []struct {
		name      string
		watermark int64
		want      []string
	}{
		{"watermark inside first interval", 150, []string{"A", "B"}},
		{"watermark past first interval", 250, []string{"B"}},
		{"never processed", NoWatermark, []string{"A", "B"}},
		{"watermark at interval boundary", 200, []string{"B"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := UnprocessedFingerprints(entry, tc.watermark)
			sort.Strings(got)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("watermark %d: got %v, want %v", tc.watermark, got, tc.want)
			}
		})
	}
}

func TestUnprocessedFingerprints_SingleAlwaysQualifies(t *testing.T) {
	entry := manifest.Entry{
		Table:         "events",
		SchemaHistory: map[string]int64{"only": 10},
	}

	// The single fingerprint's interval end is unbounded, so it qualifies
	// no matter how far the watermark has advanced.
	got := UnprocessedFingerprints(entry, 1<<40)
	if len(got) != 1 || got[0] != "only" {
		t.Errorf("expected single fingerprint to qualify, got %v", got)
	}
}
