package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go/compress"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver

	"github.com/sushil-thasale/cda-client/internal/records"
)

// BlobSink writes merged batches as parquet objects in a gocloud bucket.
type BlobSink struct {
	bucket     *blob.Bucket
	ownsBucket bool
	prefix     string
	codec      compress.Codec
}

// Config configures the blob sink.
type Config struct {
	BucketURL   string
	Prefix      string
	Compression string // "snappy" | "zstd" | "none"
}

// NewBlobSink opens the destination bucket and prepares the parquet codec.
func NewBlobSink(ctx context.Context, cfg Config) (*BlobSink, error) {
	codec, err := records.CodecFor(cfg.Compression)
	if err != nil {
		return nil, err
	}

	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("open sink bucket %s: %w", cfg.BucketURL, err)
	}

	return &BlobSink{
		bucket:     bucket,
		ownsBucket: true,
		prefix:     normalizePrefix(cfg.Prefix),
		codec:      codec,
	}, nil
}

// NewBlobSinkFromBucket wraps an already-open bucket. The caller retains
// ownership of the bucket.
func NewBlobSinkFromBucket(bucket *blob.Bucket, prefix, compression string) (*BlobSink, error) {
	codec, err := records.CodecFor(compression)
	if err != nil {
		return nil, err
	}
	return &BlobSink{bucket: bucket, prefix: normalizePrefix(prefix), codec: codec}, nil
}

// Validate checks the destination bucket is reachable.
func (s *BlobSink) Validate(ctx context.Context) error {
	accessible, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("sink bucket not accessible: %w", err)
	}
	if !accessible {
		return fmt.Errorf("sink bucket not accessible")
	}
	return nil
}

// Key returns the object key for a (table, fingerprint, manifestTS) batch.
func (s *BlobSink) Key(table, fingerprint string, manifestTS int64) string {
	return fmt.Sprintf("%s%s/%s/%d.parquet", s.prefix, table, fingerprint, manifestTS)
}

// Write encodes the batch as parquet and writes it to the canonical key.
// Rewriting the same key replaces the object, which keeps retries on later
// runs idempotent.
func (s *BlobSink) Write(ctx context.Context, table, fingerprint string, manifestTS int64, batch *records.Batch) error {
	key := s.Key(table, fingerprint, manifestTS)

	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}

	if err := records.Encode(w, batch, s.codec); err != nil {
		w.Close()
		return fmt.Errorf("write batch to %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	return nil
}

// Close releases the bucket connection if this sink opened it.
func (s *BlobSink) Close() error {
	if s.ownsBucket && s.bucket != nil {
		return s.bucket.Close()
	}
	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

var _ Sink = (*BlobSink)(nil)
