// Package manifest reads the producer-published export manifest.
//
// The manifest maps each exported table to its schema fingerprint history and
// the timestamp through which the producer guarantees the export is complete.
// It is read once per run and treated as immutable.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entry describes one table's export state.
type Entry struct {
	// Table is the logical table name.
	Table string `json:"-"`

	// BasePath is the key prefix in the source object store under which
	// the table's fingerprint directories live.
	BasePath string `json:"base_path"`

	// SchemaHistory maps each schema fingerprint to the timestamp at
	// which the producer started writing under it. Never empty.
	SchemaHistory map[string]int64 `json:"schema_history"`

	// LastSuccessfulWriteTimestamp is the timestamp through which the
	// producer declares the export complete. Partitions newer than this
	// may be partially written and must not be read.
	LastSuccessfulWriteTimestamp int64 `json:"last_successful_write_timestamp"`
}

// Provider returns the manifest snapshot for a run.
type Provider interface {
	// GetManifest reads the manifest, keyed by table name.
	GetManifest(ctx context.Context) (map[string]Entry, error)
}

// document is the on-disk manifest layout.
type document struct {
	Tables map[string]Entry `json:"tables"`
}

// parse decodes and validates a manifest document.
func parse(data []byte) (map[string]Entry, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("manifest has no tables")
	}

	out := make(map[string]Entry, len(doc.Tables))
	for table, e := range doc.Tables {
		e.Table = table
		if e.BasePath == "" {
			return nil, fmt.Errorf("manifest table %s: base_path is empty", table)
		}
		if len(e.SchemaHistory) == 0 {
			return nil, fmt.Errorf("manifest table %s: schema_history is empty", table)
		}
		for fp, ts := range e.SchemaHistory {
			if ts < 0 {
				return nil, fmt.Errorf("manifest table %s: fingerprint %s has negative timestamp %d", table, fp, ts)
			}
		}
		if e.LastSuccessfulWriteTimestamp < 0 {
			return nil, fmt.Errorf("manifest table %s: negative last_successful_write_timestamp %d", table, e.LastSuccessfulWriteTimestamp)
		}
		out[table] = e
	}
	return out, nil
}
