// Package sink persists merged record batches to the output destination.
package sink

import (
	"context"

	"github.com/sushil-thasale/cda-client/internal/records"
)

// Sink durably persists one merged batch per copy job.
//
// Write must be idempotent under overwrite: a retried job on a later run
// writes the same (table, fingerprint, manifestTS) key again and the result
// must be at-least-once with no duplicate-visible output.
type Sink interface {
	// Validate checks the sink is usable. A failure is fatal at startup.
	Validate(ctx context.Context) error

	// Write persists the merged batch for a table/fingerprint pair.
	// manifestTS is the manifest's declared-complete timestamp for the
	// table, not any partition's own timestamp.
	Write(ctx context.Context, table, fingerprint string, manifestTS int64, batch *records.Batch) error

	// Close releases any resources.
	Close() error
}
