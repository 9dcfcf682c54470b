package sink

import (
	"bytes"
	"context"
	"testing"

	"github.com/parquet-go/parquet-go"
	"gocloud.dev/blob/memblob"

	"github.com/sushil-thasale/cda-client/internal/records"
)

type orderRow struct {
	ID     int64  `parquet:"id"`
	Status string `parquet:"status"`
}

func makeBatch(t *testing.T, rows []orderRow) *records.Batch {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[orderRow](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write fixture rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close fixture writer: %v", err)
	}
	batch, err := records.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return batch
}

func TestBlobSink_Write(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	ctx := context.Background()

	sink, err := NewBlobSinkFromBucket(bucket, "bronze", "snappy")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	batch := makeBatch(t, []orderRow{{ID: 1, Status: "open"}, {ID: 2, Status: "closed"}})
	if err := sink.Write(ctx, "orders", "fp-a", 500, batch); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := bucket.ReadAll(ctx, "bronze/orders/fp-a/500.parquet")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got, err := records.Decode(data)
	if err != nil {
		t.Fatalf("decode written object: %v", err)
	}
	if got.NumRows() != 2 {
		t.Errorf("expected 2 rows, got %d", got.NumRows())
	}
}

func TestBlobSink_WriteReplacesExisting(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()
	ctx := context.Background()

	sink, err := NewBlobSinkFromBucket(bucket, "bronze", "none")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	first := makeBatch(t, []orderRow{{ID: 1, Status: "open"}})
	if err := sink.Write(ctx, "orders", "fp-a", 500, first); err != nil {
		t.Fatalf("first write: %v", err)
	}
	second := makeBatch(t, []orderRow{{ID: 1, Status: "open"}, {ID: 2, Status: "open"}, {ID: 3, Status: "open"}})
	if err := sink.Write(ctx, "orders", "fp-a", 500, second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := bucket.ReadAll(ctx, "bronze/orders/fp-a/500.parquet")
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got, err := records.Decode(data)
	if err != nil {
		t.Fatalf("decode written object: %v", err)
	}
	if got.NumRows() != 3 {
		t.Errorf("expected rewrite to replace object, got %d rows", got.NumRows())
	}
}

func TestBlobSink_Key(t *testing.T) {
	cases := []struct {
		prefix string
		want   string
	}{
		{"bronze", "bronze/orders/fp-a/500.parquet"},
		{"bronze/", "bronze/orders/fp-a/500.parquet"},
		{"/bronze", "bronze/orders/fp-a/500.parquet"},
		{"", "orders/fp-a/500.parquet"},
	}
	for _, tc := range cases {
		sink, err := NewBlobSinkFromBucket(memblob.OpenBucket(nil), tc.prefix, "none")
		if err != nil {
			t.Fatalf("new sink: %v", err)
		}
		if got := sink.Key("orders", "fp-a", 500); got != tc.want {
			t.Errorf("prefix %q: key = %q, want %q", tc.prefix, got, tc.want)
		}
	}
}

func TestBlobSink_Validate(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	sink, err := NewBlobSinkFromBucket(bucket, "", "snappy")
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	if err := sink.Validate(context.Background()); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestBlobSink_BadCompression(t *testing.T) {
	if _, err := NewBlobSinkFromBucket(memblob.OpenBucket(nil), "", "lz77"); err == nil {
		t.Error("expected error for unknown compression codec")
	}
}
