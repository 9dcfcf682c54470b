package engine

import (
	"errors"
	"testing"

	"github.com/sushil-thasale/cda-client/internal/records"
)

func TestMergeBatches_UnionsRows(t *testing.T) {
	job := &CopyJob{Table: "orders", Fingerprint: "fp-a", ManifestTimestamp: 900}
	batches := []*records.Batch{
		makeBatch(t, 10),
		makeBatch(t, 25),
		makeBatch(t, 7),
	}

	merged, err := MergeBatches(job, batches)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	if merged.Batch.NumRows() != 42 {
		t.Errorf("expected 42 rows, got %d", merged.Batch.NumRows())
	}
	if merged.Table != "orders" || merged.Fingerprint != "fp-a" {
		t.Errorf("unexpected merged batch identity: %+v", merged)
	}
	// The merged batch carries the manifest's declared-complete timestamp,
	// not any partition's own timestamp.
	if merged.ManifestTimestamp != 900 {
		t.Errorf("expected manifest timestamp 900, got %d", merged.ManifestTimestamp)
	}
}

func TestMergeBatches_ColumnMismatch(t *testing.T) {
	job := &CopyJob{Table: "orders", Fingerprint: "fp-a"}
	batches := []*records.Batch{
		makeBatch(t, 10),
		makeMetricBatch(t, 5),
	}

	_, err := MergeBatches(job, batches)
	if err == nil {
		t.Fatal("expected a column mismatch error")
	}
	if !errors.Is(err, records.ErrColumnMismatch) {
		t.Errorf("expected ErrColumnMismatch, got %v", err)
	}
}

func TestMergeBatches_Empty(t *testing.T) {
	job := &CopyJob{Table: "orders", Fingerprint: "fp-a"}
	if _, err := MergeBatches(job, nil); err == nil {
		t.Fatal("expected an error for an empty batch list")
	}
}
