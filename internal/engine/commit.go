package engine

import (
	"context"
	"fmt"

	"github.com/sushil-thasale/cda-client/internal/metrics"
	"github.com/sushil-thasale/cda-client/internal/savepoint"
)

// CommitSavepoint advances the table's savepoint to the manifest's
// declared-complete timestamp. Called only after the sink accepted the job's
// merged batch; this is the single durability checkpoint that keeps the next
// run from re-selecting the committed window. The store ignores values below
// an already-advanced savepoint, so fingerprints of the same table committing
// in any order converge on the maximum.
func CommitSavepoint(ctx context.Context, store savepoint.Store, table string, ts int64) error {
	if err := store.Set(ctx, table, ts); err != nil {
		return fmt.Errorf("commit savepoint for %s: %w", table, err)
	}
	if m := metrics.Get(); m != nil {
		m.SavepointValue.WithLabelValues(table).Set(float64(ts))
	}
	return nil
}
