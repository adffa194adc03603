package payeelock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeLockStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}}
}

func (s *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.values[key]; held {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeLockStore) Eval(ctx context.Context, script string, keys []string, args ...any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[keys[0]] == args[0].(string) {
		delete(s.values, keys[0])
		return int64(1), nil
	}
	return int64(0), nil
}

func (s *fakeLockStore) LockKey(scope string, parts ...string) string {
	return strings.Join(append([]string{"lock", scope}, parts...), ":")
}

func (s *fakeLockStore) expire(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

func (s *fakeLockStore) owner(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func TestManagerAcquireContention(t *testing.T) {
	store := newFakeLockStore()
	manager, err := NewManager(store, time.Minute, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	payeeID := uuid.New()
	lease, err := manager.Acquire(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	if _, err := manager.Acquire(context.Background(), payeeID); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("want ErrNotAcquired while held, got %v", err)
	}

	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := manager.Acquire(context.Background(), payeeID); err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
}

func TestManagerAcquireWaitsForRelease(t *testing.T) {
	store := newFakeLockStore()
	manager, err := NewManager(store, time.Minute, time.Second)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	payeeID := uuid.New()
	lease, err := manager.Acquire(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = lease.Release(context.Background())
	}()

	second, err := manager.Acquire(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("acquire after mid-wait release: %v", err)
	}
	if err := second.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestLeaseReleaseIgnoresLostOwnership(t *testing.T) {
	store := newFakeLockStore()
	manager, err := NewManager(store, time.Minute, 150*time.Millisecond)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	payeeID := uuid.New()
	stale, err := manager.Acquire(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// TTL expiry hands the lock to another request.
	key := store.LockKey("payee", payeeID.String())
	store.expire(key)
	fresh, err := manager.Acquire(context.Background(), payeeID)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}

	if err := stale.Release(context.Background()); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if store.owner(key) != fresh.owner {
		t.Fatal("stale release must not delete the new holder's lock")
	}
}

func TestZeroValueLeaseReleaseIsNoop(t *testing.T) {
	var lease Lease
	if err := lease.Release(context.Background()); err != nil {
		t.Fatalf("zero-value release: %v", err)
	}
}
