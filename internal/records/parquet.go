package records

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	kzstd "github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	zstdcodec "github.com/parquet-go/parquet-go/compress/zstd"
)

// Decode reads a parquet file into a Batch.
func Decode(data []byte) (*Batch, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	b := NewBatch(f.Schema())
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(b, rg); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// readRowGroup appends all rows of one row group to the batch.
func readRowGroup(b *Batch, rg parquet.RowGroup) error {
	rows := rg.Rows()
	defer rows.Close()

	buf := make([]parquet.Row, 128)
	for {
		n, err := rows.ReadRows(buf)
		for i := 0; i < n; i++ {
			// Clone: ReadRows reuses value buffers between calls.
			b.rows = append(b.rows, buf[i].Clone())
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// Encode writes the batch as a parquet file using the given codec.
func Encode(w io.Writer, b *Batch, codec compress.Codec) error {
	pw := parquet.NewGenericWriter[any](w, b.Schema(), parquet.Compression(codec))
	if len(b.rows) > 0 {
		if _, err := pw.WriteRows(b.rows); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// CodecFor maps a compression name to a parquet codec.
func CodecFor(name string) (compress.Codec, error) {
	switch name {
	case "", "snappy":
		return &parquet.Snappy, nil
	case "zstd":
		return &zstdcodec.Codec{Level: kzstd.SpeedDefault}, nil
	case "none":
		return &parquet.Uncompressed, nil
	default:
		return nil, fmt.Errorf("unknown compression codec %q", name)
	}
}
