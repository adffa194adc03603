package payeelock

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTTL      = 15 * time.Second
	defaultWait     = 3 * time.Second
	pollInterval    = 50 * time.Millisecond
	pollJitterRange = 25 * time.Millisecond
)

// ErrNotAcquired is returned when the lock could not be obtained within the
// bounded wait. Callers should surface this as a retryable condition.
var ErrNotAcquired = errors.New("payee lock not acquired within wait window")

// releaseScript deletes the lock only while this lease still owns it, in one
// server-side step, so an expired lease can never delete another holder's lock.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...any) (any, error)
	LockKey(scope string, parts ...string) string
}

// Manager hands out per-payee admission locks. Withdrawal admission (limiter
// check + payout creation) for one payee must run under its lock so concurrent
// requests cannot double-admit past a cap.
type Manager struct {
	store store
	ttl   time.Duration
	wait  time.Duration
}

// Lease is a held lock; callers must Release it when the admission unit ends.
type Lease struct {
	manager *Manager
	key     string
	owner   string
}

// NewManager builds a lock manager. Zero ttl/wait fall back to defaults.
func NewManager(store store, ttl, wait time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("redis store required for payee locks")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if wait <= 0 {
		wait = defaultWait
	}
	return &Manager{store: store, ttl: ttl, wait: wait}, nil
}

// Acquire blocks until the payee's lock is obtained or the bounded wait
// elapses, in which case ErrNotAcquired is returned.
func (m *Manager) Acquire(ctx context.Context, payeeID uuid.UUID) (*Lease, error) {
	key := m.store.LockKey("payee", payeeID.String())
	owner := uuid.NewString()
	deadline := time.Now().Add(m.wait)

	for {
		ok, err := m.store.SetNX(ctx, key, owner, m.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx payee lock: %w", err)
		}
		if ok {
			return &Lease{manager: m, key: key, owner: owner}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrNotAcquired
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval + time.Duration(rand.Int63n(int64(pollJitterRange)))):
		}
	}
}

// Release frees the lock only if this lease still owns it.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.owner == "" {
		return nil
	}
	if _, err := l.manager.store.Eval(ctx, releaseScript, []string{l.key}, l.owner); err != nil {
		return fmt.Errorf("release payee lock: %w", err)
	}
	l.owner = ""
	return nil
}
