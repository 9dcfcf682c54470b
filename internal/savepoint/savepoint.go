// Package savepoint persists per-table copy progress (watermarks).
package savepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNoSavepoint is returned when no savepoint exists for a table.
	ErrNoSavepoint = errors.New("no savepoint found")
)

// Savepoint records the last timestamp through which a table's data has been
// durably copied.
type Savepoint struct {
	Table                  string    `json:"table"`
	LastProcessedTimestamp int64     `json:"last_processed_timestamp"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// Store handles savepoint persistence and retrieval.
//
// Set must be durable across process restarts and must never regress an
// already-advanced value: when fingerprints of the same table commit
// independently, the maximum observed timestamp wins.
type Store interface {
	// Get reads the table's savepoint. ok is false when the table has
	// never been processed.
	Get(ctx context.Context, table string) (ts int64, ok bool, err error)

	// Set advances the table's savepoint to ts.
	Set(ctx context.Context, table string, ts int64) error
}

// Config configures the savepoint store.
type Config struct {
	Enabled bool
	Dir     string // Directory for savepoint files
}

// NewStore creates a savepoint store based on configuration.
func NewStore(cfg Config) (Store, error) {
	if !cfg.Enabled {
		return &noopStore{}, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create savepoint directory %s: %w", cfg.Dir, err)
	}

	return &fileStore{dir: cfg.Dir}, nil
}

// fileStore persists savepoints to local files, one JSON document per table.
type fileStore struct {
	dir string
	mu  sync.Mutex
}

// path returns the savepoint file path for a table. Path separators in table
// names are flattened so a table name cannot escape the savepoint directory.
func (s *fileStore) path(table string) string {
	safe := strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(table)
	return filepath.Join(s.dir, fmt.Sprintf("savepoint_%s.json", safe))
}

// Get reads the table's savepoint from file.
func (s *fileStore) Get(ctx context.Context, table string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sp, err := s.load(table)
	if err != nil {
		if errors.Is(err, ErrNoSavepoint) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return sp.LastProcessedTimestamp, true, nil
}

func (s *fileStore) load(table string) (*Savepoint, error) {
	data, err := os.ReadFile(s.path(table))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSavepoint
		}
		return nil, fmt.Errorf("read savepoint file: %w", err)
	}

	var sp Savepoint
	if err := json.Unmarshal(data, &sp); err != nil {
		return nil, fmt.Errorf("parse savepoint file: %w", err)
	}
	return &sp, nil
}

// Set persists the table's savepoint. Values below the current savepoint are
// ignored so independent fingerprint commits cannot move progress backward.
func (s *fileStore) Set(ctx context.Context, table string, ts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, err := s.load(table); err == nil && cur.LastProcessedTimestamp >= ts {
		return nil
	} else if err != nil && !errors.Is(err, ErrNoSavepoint) {
		return err
	}

	sp := Savepoint{
		Table:                  table,
		LastProcessedTimestamp: ts,
		UpdatedAt:              time.Now().UTC(),
	}

	data, err := json.MarshalIndent(sp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal savepoint: %w", err)
	}

	// Write atomically
	path := s.path(table)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write savepoint temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename savepoint file: %w", err)
	}

	return nil
}

// noopStore is used when savepoints are disabled (dry runs).
type noopStore struct{}

func (noopStore) Get(ctx context.Context, table string) (int64, bool, error) {
	return 0, false, nil
}

func (noopStore) Set(ctx context.Context, table string, ts int64) error {
	return nil
}
