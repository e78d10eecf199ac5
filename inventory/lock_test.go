package inventory

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/shelfwatch/stocksync/logger"
	"github.com/shelfwatch/stocksync/store"
)

func testStore(t *testing.T) (store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	st, err := store.NewRedis(logger.NewNop(), &store.RedisConfig{Addr: mr.Addr(), DialTimeout: time.Second})
	if err != nil {
		mr.Close()
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
		mr.Close()
	})
	return st, mr
}

func TestLock_ConcurrentAcquire_ExactlyOneWinner(t *testing.T) {
	st, _ := testStore(t)
	lock := newRefreshLock(logger.NewNop(), st, "inventory:sync_status:lock", time.Minute)

	const n = 16
	var wg sync.WaitGroup
	wins := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, acquired, err := lock.tryAcquire(context.Background())
			if err != nil {
				t.Errorf("tryAcquire: %v", err)
				return
			}
			if acquired {
				wins <- token
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for token := range wins {
		winners = append(winners, token)
	}
	if len(winners) != 1 {
		t.Fatalf("%d acquisitions succeeded, want exactly 1", len(winners))
	}
}

func TestLock_StaleTakeover(t *testing.T) {
	st, _ := testStore(t)
	key := "inventory:sync_status:lock"
	lock := newRefreshLock(logger.NewNop(), st, key, time.Minute)

	// a holder that died 2 minutes ago
	stale, _ := json.Marshal(lockRecord{Token: "dead", AcquiredAt: time.Now().Add(-2 * time.Minute)})
	if err := st.SetWithTTL(context.Background(), key, string(stale), 0); err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}

	token, acquired, err := lock.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("stale lock was not taken over")
	}
	if token == "dead" {
		t.Error("expected a fresh holder token")
	}

	// the new record must be ours
	holder, err := lock.holder(context.Background())
	if err != nil || holder == nil {
		t.Fatalf("holder: %v, %v", holder, err)
	}
	if holder.Token != token {
		t.Errorf("holder token = %q, want %q", holder.Token, token)
	}
}

func TestLock_YoungLockNeverCleared(t *testing.T) {
	st, _ := testStore(t)
	key := "inventory:sync_status:lock"
	lock := newRefreshLock(logger.NewNop(), st, key, time.Minute)

	young, _ := json.Marshal(lockRecord{Token: "alive", AcquiredAt: time.Now().Add(-10 * time.Second)})
	if err := st.SetWithTTL(context.Background(), key, string(young), time.Minute); err != nil {
		t.Fatalf("seed young lock: %v", err)
	}

	_, acquired, err := lock.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if acquired {
		t.Fatal("young lock was stolen")
	}

	holder, _ := lock.holder(context.Background())
	if holder == nil || holder.Token != "alive" {
		t.Errorf("young lock disturbed: %+v", holder)
	}
}

func TestLock_SelfExpires(t *testing.T) {
	st, mr := testStore(t)
	key := "inventory:sync_status:lock"
	lock := newRefreshLock(logger.NewNop(), st, key, time.Minute)

	_, acquired, err := lock.tryAcquire(context.Background())
	if err != nil || !acquired {
		t.Fatalf("tryAcquire = (%v, %v)", acquired, err)
	}

	// the holder crashes; the store TTL reaps the lock on its own
	mr.FastForward(2 * time.Minute)

	_, acquired, err = lock.tryAcquire(context.Background())
	if err != nil || !acquired {
		t.Errorf("lock did not self-expire: acquired=%v err=%v", acquired, err)
	}
}

func TestLock_ReleaseAllowsReacquisition(t *testing.T) {
	st, _ := testStore(t)
	lock := newRefreshLock(logger.NewNop(), st, "inventory:sync_status:lock", time.Minute)

	token, acquired, _ := lock.tryAcquire(context.Background())
	if !acquired {
		t.Fatal("initial acquire failed")
	}
	lock.release(context.Background(), token)

	_, acquired, err := lock.tryAcquire(context.Background())
	if err != nil || !acquired {
		t.Errorf("reacquire after release: acquired=%v err=%v", acquired, err)
	}
}

func TestLock_UndecodableRecordTreatedAsAbandoned(t *testing.T) {
	st, _ := testStore(t)
	key := "inventory:sync_status:lock"
	lock := newRefreshLock(logger.NewNop(), st, key, time.Minute)

	if err := st.SetWithTTL(context.Background(), key, "not json", 0); err != nil {
		t.Fatalf("seed garbage: %v", err)
	}

	_, acquired, err := lock.acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Error("garbage lock record blocked acquisition")
	}
}
