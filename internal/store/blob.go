package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/sushil-thasale/cda-client/internal/records"
)

// BlobStore reads partitions from a gocloud blob bucket.
type BlobStore struct {
	bucket      *blob.Bucket
	ownsBucket  bool
	readRetries int
}

// NewBlobStore opens the bucket at the given gocloud URL.
func NewBlobStore(ctx context.Context, bucketURL string, readRetries int) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open source bucket %s: %w", bucketURL, err)
	}
	return &BlobStore{bucket: bucket, ownsBucket: true, readRetries: readRetries}, nil
}

// NewBlobStoreFromBucket wraps an already-open bucket. The caller retains
// ownership of the bucket.
func NewBlobStoreFromBucket(bucket *blob.Bucket, readRetries int) *BlobStore {
	return &BlobStore{bucket: bucket, readRetries: readRetries}
}

// ListPartitions lists the partition directories under basePath/fingerprint/.
func (s *BlobStore) ListPartitions(ctx context.Context, basePath, fingerprint string) ([]PartitionEntry, error) {
	prefix := joinPrefix(basePath, fingerprint)

	var entries []PartitionEntry
	iter := s.bucket.List(&blob.ListOptions{
		Prefix:    prefix,
		Delimiter: "/",
	})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if !obj.IsDir {
			// Loose objects at the fingerprint level are not part of
			// the export protocol.
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(obj.Key, prefix), "/")
		entries = append(entries, PartitionEntry{Name: name, Key: obj.Key})
	}
	return entries, nil
}

// ReadPartition reads every data file under the partition key prefix into a
// single batch. Transient read errors are retried with exponential backoff.
func (s *BlobStore) ReadPartition(ctx context.Context, key string) (*records.Batch, error) {
	var fileKeys []string
	iter := s.bucket.List(&blob.ListOptions{Prefix: key})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list partition %s: %w", key, err)
		}
		if obj.IsDir {
			continue
		}
		fileKeys = append(fileKeys, obj.Key)
	}
	if len(fileKeys) == 0 {
		return nil, fmt.Errorf("partition %s has no data files", key)
	}

	var merged *records.Batch
	for _, fk := range fileKeys {
		batch, err := s.readFile(ctx, fk)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = batch
			continue
		}
		if err := merged.Append(batch); err != nil {
			return nil, fmt.Errorf("partition %s: %w", key, err)
		}
	}
	return merged, nil
}

// readFile reads and decodes one data file, retrying transient store errors.
func (s *BlobStore) readFile(ctx context.Context, key string) (*records.Batch, error) {
	var batch *records.Batch

	op := func() error {
		data, err := s.bucket.ReadAll(ctx, key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		batch, err = records.Decode(data)
		if err != nil {
			// A corrupt file will not heal on retry.
			return backoff.Permanent(fmt.Errorf("decode %s: %w", key, err))
		}
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.readRetries)),
		ctx,
	)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	return batch, nil
}

// Close releases the bucket connection if this store opened it.
func (s *BlobStore) Close() error {
	if s.ownsBucket && s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

// joinPrefix joins path segments into a directory-style key prefix.
func joinPrefix(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteString(p)
		b.WriteString("/")
	}
	return b.String()
}

var _ ObjectStore = (*BlobStore)(nil)
