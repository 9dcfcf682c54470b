package engine

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/sushil-thasale/cda-client/internal/manifest"
	"github.com/sushil-thasale/cda-client/internal/records"
	"github.com/sushil-thasale/cda-client/internal/store"
)

type eventRow struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

type metricRow struct {
	Key   string  `parquet:"key"`
	Value float64 `parquet:"value"`
}

// makeBatch builds a records.Batch with n event rows by round-tripping
// through the parquet codec, the same way partitions arrive from the store.
func makeBatch(t *testing.T, n int) *records.Batch {
	t.Helper()
	rows := make([]eventRow, n)
	for i := range rows {
		rows[i] = eventRow{ID: int64(i), Name: fmt.Sprintf("row-%d", i)}
	}
	return encodeRows(t, rows)
}

// makeMetricBatch builds a batch with a different column set.
func makeMetricBatch(t *testing.T, n int) *records.Batch {
	t.Helper()
	rows := make([]metricRow, n)
	for i := range rows {
		rows[i] = metricRow{Key: fmt.Sprintf("k-%d", i), Value: float64(i)}
	}
	return encodeRows(t, rows)
}

func encodeRows[T any](t *testing.T, rows []T) *records.Batch {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write parquet rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close parquet writer: %v", err)
	}
	b, err := records.Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	return b
}

// mockObjectStore implements store.ObjectStore with canned listings and
// batches, and records the maximum number of concurrent reads.
type mockObjectStore struct {
	mu            sync.Mutex
	listings      map[string][]store.PartitionEntry // basePath/fingerprint -> entries
	batches       map[string]*records.Batch         // partition key -> batch
	readErrs      map[string]error                  // partition key -> error
	readDelay     time.Duration
	concurrent    int
	maxConcurrent int
}

func newMockObjectStore() *mockObjectStore {
	return &mockObjectStore{
		listings: make(map[string][]store.PartitionEntry),
		batches:  make(map[string]*records.Batch),
		readErrs: make(map[string]error),
	}
}

// addPartition registers a partition under basePath/fingerprint/name.
func (m *mockObjectStore) addPartition(basePath, fingerprint, name string, batch *records.Batch) string {
	listKey := basePath + "/" + fingerprint
	key := fmt.Sprintf("%s/%s/%s/", basePath, fingerprint, name)
	m.listings[listKey] = append(m.listings[listKey], store.PartitionEntry{Name: name, Key: key})
	if batch != nil {
		m.batches[key] = batch
	}
	return key
}

func (m *mockObjectStore) ListPartitions(ctx context.Context, basePath, fingerprint string) ([]store.PartitionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[basePath+"/"+fingerprint], nil
}

func (m *mockObjectStore) ReadPartition(ctx context.Context, key string) (*records.Batch, error) {
	m.mu.Lock()
	m.concurrent++
	if m.concurrent > m.maxConcurrent {
		m.maxConcurrent = m.concurrent
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.concurrent--
		m.mu.Unlock()
	}()

	if m.readDelay > 0 {
		time.Sleep(m.readDelay)
	}

	m.mu.Lock()
	err := m.readErrs[key]
	batch := m.batches[key]
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, fmt.Errorf("no such partition: %s", key)
	}
	return batch, nil
}

func (m *mockObjectStore) Close() error { return nil }

// mockSink records writes, optionally failing specific tables.
type mockSink struct {
	mu          sync.Mutex
	writes      map[string]*records.Batch // table/fingerprint/ts
	failTables  map[string]bool
	validateErr error
}

func newMockSink() *mockSink {
	return &mockSink{
		writes:     make(map[string]*records.Batch),
		failTables: make(map[string]bool),
	}
}

func (m *mockSink) Validate(ctx context.Context) error {
	return m.validateErr
}

func (m *mockSink) Write(ctx context.Context, table, fingerprint string, manifestTS int64, batch *records.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTables[table] {
		return fmt.Errorf("sink write failed for %s", table)
	}
	m.writes[fmt.Sprintf("%s/%s/%d", table, fingerprint, manifestTS)] = batch
	return nil
}

func (m *mockSink) Close() error { return nil }

func (m *mockSink) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// mockSavepoints is an in-memory savepoint store with the same monotonic
// contract as the file store.
type mockSavepoints struct {
	mu     sync.Mutex
	values map[string]int64
	setErr error
}

func newMockSavepoints() *mockSavepoints {
	return &mockSavepoints{values: make(map[string]int64)}
}

func (m *mockSavepoints) Get(ctx context.Context, table string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[table]
	return v, ok, nil
}

func (m *mockSavepoints) Set(ctx context.Context, table string, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if cur, ok := m.values[table]; !ok || ts > cur {
		m.values[table] = ts
	}
	return nil
}

func (m *mockSavepoints) get(table string) (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[table]
	return v, ok
}

// mockManifest returns a fixed manifest snapshot.
type mockManifest struct {
	entries map[string]manifest.Entry
	err     error
}

func (m *mockManifest) GetManifest(ctx context.Context) (map[string]manifest.Entry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}
