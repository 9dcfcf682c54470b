// Package engine implements the incremental-copy orchestration: it turns a
// manifest snapshot and persisted savepoints into a set of copy jobs and
// executes them under bounded concurrency.
package engine

import (
	"sync"

	"github.com/sushil-thasale/cda-client/internal/records"
)

// NoWatermark is the watermark value for a table that has never been
// processed. Using -1 lets the resumption lower bound (watermark + 1) fall
// to zero, which admits every valid partition timestamp.
const NoWatermark int64 = -1

// FingerprintInterval is the half-open time interval [Start, End) during
// which a schema fingerprint was active. The last fingerprint's interval is
// unbounded (End == UnboundedEnd).
type FingerprintInterval struct {
	Fingerprint string
	Start       int64
	End         int64
}

// UnboundedEnd marks the open end of the newest fingerprint's interval.
const UnboundedEnd int64 = int64(^uint64(0) >> 1) // math.MaxInt64

// PartitionLocation is one timestamp-named partition directory discovered
// under a fingerprint's path. Planning-phase only; discarded after the run.
type PartitionLocation struct {
	Table       string
	Fingerprint string
	Key         string
	Timestamp   int64
}

// JobState tracks a copy job through its lifecycle.
type JobState int

const (
	JobPending JobState = iota
	JobFetching
	JobMerging
	JobWriting
	JobCommittingSavepoint
	JobDone
	JobFailed
)

// String returns the state name for logs.
func (s JobState) String() string {
	switch s {
	case JobPending:
		return "pending"
	case JobFetching:
		return "fetching"
	case JobMerging:
		return "merging"
	case JobWriting:
		return "writing"
	case JobCommittingSavepoint:
		return "committing_savepoint"
	case JobDone:
		return "done"
	case JobFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CopyJob is the unit of work: all unprocessed partitions of one
// (table, fingerprint) pair. Jobs succeed or fail independently.
type CopyJob struct {
	Table       string
	Fingerprint string

	// ManifestTimestamp is the table's declared-complete timestamp from
	// the manifest, committed as the new savepoint when the job succeeds.
	ManifestTimestamp int64

	Partitions []PartitionLocation

	mu          sync.Mutex
	state       JobState
	err         error
	rowsWritten int64
}

// State returns the job's current state.
func (j *CopyJob) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Err returns the job's terminal error, nil unless the job failed.
func (j *CopyJob) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// RowsWritten returns the number of rows the job wrote to the sink.
func (j *CopyJob) RowsWritten() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.rowsWritten
}

func (j *CopyJob) setState(s JobState) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// fail moves the job to its terminal failed state. Failed jobs are not
// retried within the run; the next run re-selects the same window because no
// savepoint was committed.
func (j *CopyJob) fail(err error) {
	j.mu.Lock()
	j.state = JobFailed
	j.err = err
	j.mu.Unlock()
}

func (j *CopyJob) setRowsWritten(n int64) {
	j.mu.Lock()
	j.rowsWritten = n
	j.mu.Unlock()
}

// MergedBatch is the union of all partition batches of one job, tagged with
// the manifest timestamp that will become the table's new savepoint.
type MergedBatch struct {
	Table             string
	Fingerprint       string
	ManifestTimestamp int64
	Batch             *records.Batch
}
