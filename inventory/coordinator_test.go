package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/retry"
	"github.com/shelfwatch/stocksync/store"
	"github.com/shelfwatch/stocksync/upstream"
)

// fakeSource is an in-memory upstream.Source
type fakeSource struct {
	mu       sync.Mutex
	records  []upstream.RawRecord
	err      error
	failures int // fail this many calls before succeeding
	calls    int
}

func (f *fakeSource) FetchRecords(ctx context.Context, creds upstream.Credentials) ([]upstream.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, &upstream.TransientError{Status: 503, Err: errors.New("unavailable")}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// emptyCreds always fails with a configuration error
type emptyCreds struct{}

func (emptyCreds) Credentials(ctx context.Context) (upstream.Credentials, error) {
	return upstream.Credentials{}, upstream.ErrMissingCredential("api_key")
}

func testCreds() upstream.CredentialsProvider {
	return upstream.StaticCredentials{APIKey: "key", ReportLocator: "report-1"}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FetchRetry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	cfg.StoreRetry = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
	return cfg
}

func threeRecords() []upstream.RawRecord {
	return []upstream.RawRecord{
		{"sku": "A-1", "name": "Widget", "vendor": "Acme", "stock": float64(40), "unit_cost": 2.5, "reorder_point": float64(10)},
		{"sku": "B-2", "name": "Gadget", "vendor": "Globex", "stock": float64(0), "unit_cost": 9.99},
		{"sku": "C-3", "name": "Gizmo", "vendor": "Acme", "stock": float64(7), "unit_cost": 1.25, "reorder_point": float64(10)},
	}
}

func TestCoordinator_Refresh_PopulatesAllKeys(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: threeRecords()}
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), testConfig())
	ctx := context.Background()

	items, err := coord.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	if !mr.Exists("inventory:full") {
		t.Error("snapshot key missing")
	}
	if !mr.Exists("inventory:last_sync") {
		t.Error("last-sync key missing")
	}
	if body := mr.HGet("inventory:sku:hash", "B-2"); body == "" {
		t.Error("sku index entry missing")
	}
	if mr.Exists("inventory:sync_status:lock") {
		t.Error("lock survived a successful refresh")
	}
	if mr.Exists("inventory:sync_status") {
		t.Error("syncing flag survived a successful refresh")
	}
	if ttl := mr.TTL("inventory:full"); ttl != time.Hour {
		t.Errorf("snapshot ttl = %v, want 1h", ttl)
	}
	if ttl := mr.TTL("inventory:sku:hash"); ttl != time.Hour {
		t.Errorf("index ttl = %v, want 1h", ttl)
	}
}

func TestCoordinator_Refresh_RetriesTransientFetch(t *testing.T) {
	st, _ := testStore(t)
	src := &fakeSource{records: threeRecords(), failures: 2}
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), testConfig())

	if _, err := coord.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if src.callCount() != 3 {
		t.Errorf("fetch calls = %d, want 3 (two transient failures then success)", src.callCount())
	}
}

func TestCoordinator_Refresh_FatalFetchNotRetried(t *testing.T) {
	st, _ := testStore(t)
	src := &fakeSource{err: &upstream.FatalError{Status: 401, Err: errors.New("bad key")}}
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), testConfig())

	_, err := coord.Refresh(context.Background())
	var fatal *upstream.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected FatalError, got %v", err)
	}
	if src.callCount() != 1 {
		t.Errorf("fatal error retried: %d calls", src.callCount())
	}
}

func TestCoordinator_Refresh_ConfigErrorSkipsFetch(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: threeRecords()}
	coord := NewCoordinator(logger.NewNop(), st, src, emptyCreds{}, testConfig())

	_, err := coord.Refresh(context.Background())
	var cfgErr *upstream.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if src.callCount() != 0 {
		t.Errorf("fetch attempted despite missing credentials: %d calls", src.callCount())
	}
	if mr.Exists("inventory:sync_status:lock") {
		t.Error("lock survived the failed refresh")
	}
}

func TestCoordinator_Refresh_FailurePreservesPriorSnapshot(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: threeRecords()}
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), testConfig())
	ctx := context.Background()

	if _, err := coord.Refresh(ctx); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}

	priorFull, _ := mr.Get("inventory:full")
	priorIndex := mr.HGet("inventory:sku:hash", "A-1")
	priorSync, _ := mr.Get("inventory:last_sync")

	// the upstream dies; the refresh must fail without touching the snapshot
	src.mu.Lock()
	src.err = &upstream.FatalError{Status: 401, Err: errors.New("revoked")}
	src.mu.Unlock()

	if _, err := coord.Refresh(ctx); err == nil {
		t.Fatal("expected refresh failure")
	}

	if got, _ := mr.Get("inventory:full"); got != priorFull {
		t.Error("snapshot changed after failed refresh")
	}
	if got := mr.HGet("inventory:sku:hash", "A-1"); got != priorIndex {
		t.Error("index changed after failed refresh")
	}
	if got, _ := mr.Get("inventory:last_sync"); got != priorSync {
		t.Error("last-sync changed after failed refresh")
	}
	if !mr.Exists("inventory:sync_status:error") {
		t.Error("error marker not recorded")
	}
	if mr.Exists("inventory:sync_status:lock") {
		t.Error("lock survived the failed refresh")
	}
	if mr.Exists("inventory:sync_status") {
		t.Error("syncing flag survived the failed refresh")
	}
}

func TestCoordinator_Refresh_FailureBeforeBatchWrite(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: threeRecords()}
	cfg := testConfig()
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), cfg)
	ctx := context.Background()

	if _, err := coord.Refresh(ctx); err != nil {
		t.Fatalf("seed refresh: %v", err)
	}
	priorFull, _ := mr.Get("inventory:full")

	// fetch succeeds, the batch write does not
	broken := &batchFailingStore{Store: st}
	coord2 := NewCoordinator(logger.NewNop(), broken, src, testCreds(), cfg)

	if _, err := coord2.Refresh(ctx); err == nil {
		t.Fatal("expected refresh failure")
	}
	if got, _ := mr.Get("inventory:full"); got != priorFull {
		t.Error("snapshot changed although the batch never committed")
	}
	if mr.Exists("inventory:sync_status:lock") {
		t.Error("lock survived the failed refresh")
	}
}

// batchFailingStore fails every atomic batch, simulating a store outage in
// the narrow window between fetch and publish
type batchFailingStore struct {
	store.Store
}

func (b *batchFailingStore) AtomicBatch(ctx context.Context, ops []store.Op) error {
	return errors.New("WRONGTYPE simulated batch failure")
}

func TestCoordinator_Refresh_ContentionFailsFast(t *testing.T) {
	st, _ := testStore(t)
	src := &fakeSource{records: threeRecords()}
	cfg := testConfig()
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), cfg)
	ctx := context.Background()

	// someone else holds a young lock
	lock := newRefreshLock(logger.NewNop(), st, "inventory:sync_status:lock", cfg.LockMaxHold)
	if _, acquired, _ := lock.tryAcquire(ctx); !acquired {
		t.Fatal("seed lock failed")
	}

	_, err := coord.Refresh(ctx)
	if !errors.Is(err, ErrRefreshInProgress) {
		t.Fatalf("expected ErrRefreshInProgress, got %v", err)
	}
	if src.callCount() != 0 {
		t.Errorf("fetch ran despite contention: %d calls", src.callCount())
	}
}

func TestCoordinator_Refresh_TakesOverStuckLockAndCompletes(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: threeRecords()}
	cfg := testConfig()
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), cfg)
	ctx := context.Background()

	// a refresher that died long ago
	lock := newRefreshLock(logger.NewNop(), st, "inventory:sync_status:lock", cfg.LockMaxHold)
	lock.now = func() time.Time { return time.Now().Add(-2 * cfg.LockMaxHold) }
	if _, acquired, _ := lock.tryAcquire(ctx); !acquired {
		t.Fatal("seed lock failed")
	}

	items, err := coord.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh after stuck lock: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("got %d items, want 3", len(items))
	}
	if mr.Exists("inventory:sync_status:lock") {
		t.Error("lock survived the takeover refresh")
	}
}

func TestCoordinator_Refresh_EmptyReportIsValidSnapshot(t *testing.T) {
	st, mr := testStore(t)
	src := &fakeSource{records: nil}
	coord := NewCoordinator(logger.NewNop(), st, src, testCreds(), testConfig())

	items, err := coord.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
	if body, _ := mr.Get("inventory:full"); body != "[]" {
		t.Errorf("snapshot = %q, want []", body)
	}
}
