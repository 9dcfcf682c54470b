// Package store reads exported partition data from an object store.
package store

import (
	"context"

	"github.com/sushil-thasale/cda-client/internal/records"
)

// PartitionEntry is one partition directory listed under a fingerprint
// prefix. Name is the bare directory name (a decimal timestamp per the
// export protocol); Key is the store key prefix of the directory contents.
type PartitionEntry struct {
	Name string
	Key  string
}

// ObjectStore lists and reads exported partitions.
//
// The export layout is <basePath>/<fingerprint>/<timestamp>/<data files>.
// Listing is directory-style, one level deep. Implementations must be safe
// for concurrent use by multiple jobs and fetches.
type ObjectStore interface {
	// ListPartitions returns the partition directories under
	// basePath/fingerprint/ in listing order.
	ListPartitions(ctx context.Context, basePath, fingerprint string) ([]PartitionEntry, error)

	// ReadPartition reads every data file under the partition key prefix
	// and returns their union as a single batch.
	ReadPartition(ctx context.Context, key string) (*records.Batch, error)

	// Close releases any resources.
	Close() error
}
