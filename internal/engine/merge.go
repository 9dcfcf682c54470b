package engine

import (
	"fmt"

	"github.com/sushil-thasale/cda-client/internal/records"
)

// MergeBatches unions the per-partition batches of one job into a single
// MergedBatch. All batches of a job carry the same fingerprint and therefore
// an identical schema; every batch's column layout is verified against the
// first before any rows are combined, so a mismatch cannot produce a partial
// merge. Arrival order is arbitrary and does not affect the result.
func MergeBatches(job *CopyJob, batches []*records.Batch) (*MergedBatch, error) {
	if len(batches) == 0 {
		return nil, fmt.Errorf("job %s/%s: no batches to merge", job.Table, job.Fingerprint)
	}

	for i := 1; i < len(batches); i++ {
		if err := records.CheckColumns(batches[0], batches[i]); err != nil {
			return nil, fmt.Errorf("job %s/%s: %w", job.Table, job.Fingerprint, err)
		}
	}

	merged := records.NewBatch(batches[0].Schema())
	for _, b := range batches {
		if err := merged.Append(b); err != nil {
			return nil, fmt.Errorf("job %s/%s: %w", job.Table, job.Fingerprint, err)
		}
	}

	return &MergedBatch{
		Table:             job.Table,
		Fingerprint:       job.Fingerprint,
		ManifestTimestamp: job.ManifestTimestamp,
		Batch:             merged,
	}, nil
}
