// Package records holds the in-memory record batch representation and its
// parquet codec.
package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrColumnMismatch is returned when batches with differing column layouts
// are combined. Batches under one schema fingerprint always share a layout,
// so a mismatch signals schema drift in the source data.
var ErrColumnMismatch = errors.New("record batch column mismatch")

// Batch is one logical batch of rows under a single schema.
type Batch struct {
	schema *parquet.Schema
	rows   []parquet.Row
}

// NewBatch creates an empty batch with the given schema.
func NewBatch(schema *parquet.Schema) *Batch {
	return &Batch{schema: schema}
}

// Schema returns the batch's parquet schema.
func (b *Batch) Schema() *parquet.Schema {
	return b.schema
}

// NumRows returns the number of rows in the batch.
func (b *Batch) NumRows() int {
	return len(b.rows)
}

// Rows returns the underlying rows. Callers must not mutate them.
func (b *Batch) Rows() []parquet.Row {
	return b.rows
}

// Columns returns the batch's leaf column paths in schema order.
func (b *Batch) Columns() []string {
	if b.schema == nil {
		return nil
	}
	paths := b.schema.Columns()
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = strings.Join(p, ".")
	}
	return out
}

// Append adds all rows of other to b. The batches must have identical column
// layouts; row values are positional, so any difference in names or order is
// a mismatch.
func (b *Batch) Append(other *Batch) error {
	if err := CheckColumns(b, other); err != nil {
		return err
	}
	b.rows = append(b.rows, other.rows...)
	return nil
}

// CheckColumns verifies that two batches share an identical column layout.
func CheckColumns(a, b *Batch) error {
	ac, bc := a.Columns(), b.Columns()
	if len(ac) != len(bc) {
		return fmt.Errorf("%w: %v vs %v", ErrColumnMismatch, ac, bc)
	}
	for i := range ac {
		if ac[i] != bc[i] {
			return fmt.Errorf("%w: %v vs %v", ErrColumnMismatch, ac, bc)
		}
	}
	return nil
}
