package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/sushil-thasale/cda-client/internal/manifest"
	"github.com/sushil-thasale/cda-client/internal/store"
)

// ErrInvalidPartitionName is returned when a partition directory name does
// not parse as a non-negative decimal timestamp. It indicates the store
// layout is inconsistent with the export protocol and fails the affected
// (table, fingerprint) job; no fallback timestamp is guessed.
var ErrInvalidPartitionName = errors.New("invalid partition directory name")

// Enumerate lists the candidate partitions for one (table, fingerprint) pair
// at or after the resumption point.
//
// The lower bound is watermark + 1: a partition whose timestamp equals an
// already-committed watermark was processed by a previous run. The numeric
// bound is applied here rather than in the store because blob listings
// cannot seek by numeric key; over-listing is filtered exactly.
func Enumerate(ctx context.Context, objects store.ObjectStore, entry manifest.Entry, fingerprint string, watermark int64) ([]PartitionLocation, error) {
	entries, err := objects.ListPartitions(ctx, entry.BasePath, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("list partitions for %s/%s: %w", entry.Table, fingerprint, err)
	}

	lowerBound := watermark + 1

	var out []PartitionLocation
	for _, pe := range entries {
		ts, err := parsePartitionName(pe.Name)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", entry.Table, fingerprint, err)
		}
		if ts < lowerBound {
			continue
		}
		out = append(out, PartitionLocation{
			Table:       entry.Table,
			Fingerprint: fingerprint,
			Key:         pe.Key,
			Timestamp:   ts,
		})
	}
	return out, nil
}

// parsePartitionName validates a partition directory name as a non-negative
// decimal timestamp.
func parsePartitionName(name string) (int64, error) {
	ts, err := strconv.ParseInt(name, 10, 64)
	if err != nil || ts < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPartitionName, name)
	}
	return ts, nil
}
