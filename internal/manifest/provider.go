package manifest

import (
	"context"
	"fmt"
	"io"
	"os"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
)

// FileProvider reads the manifest from a local JSON file.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider backed by a local file.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// GetManifest reads and parses the manifest file.
func (p *FileProvider) GetManifest(ctx context.Context) (map[string]Entry, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", p.path, err)
	}
	return parse(data)
}

// BlobProvider reads the manifest from an object store bucket.
type BlobProvider struct {
	bucket *blob.Bucket
	key    string
}

// NewBlobProvider opens the bucket at the given gocloud URL and reads the
// manifest from key.
func NewBlobProvider(ctx context.Context, bucketURL, key string) (*BlobProvider, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open manifest bucket %s: %w", bucketURL, err)
	}
	return &BlobProvider{bucket: bucket, key: key}, nil
}

// NewBlobProviderFromBucket wraps an already-open bucket. The caller retains
// ownership of the bucket.
func NewBlobProviderFromBucket(bucket *blob.Bucket, key string) *BlobProvider {
	return &BlobProvider{bucket: bucket, key: key}
}

// GetManifest reads and parses the manifest object.
func (p *BlobProvider) GetManifest(ctx context.Context) (map[string]Entry, error) {
	r, err := p.bucket.NewReader(ctx, p.key, nil)
	if err != nil {
		return nil, fmt.Errorf("open manifest %s: %w", p.key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", p.key, err)
	}
	return parse(data)
}

// Close releases the bucket connection.
func (p *BlobProvider) Close() error {
	if p.bucket != nil {
		return p.bucket.Close()
	}
	return nil
}
