package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/careworks-oss/regulation-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// Lock is a process-local DistributedLock for single-instance deployments
// and tests. Expired entries are reaped on the next acquire of the same
// name, so a crashed holder cannot wedge a lock forever.
type Lock struct {
	mu    sync.Mutex
	held  map[string]time.Time // name -> expiry
	clock func() time.Time
}

// NewLock creates a new in-process lock
func NewLock() *Lock {
	return &Lock{
		held:  make(map[string]time.Time),
		clock: time.Now,
	}
}

// Acquire attempts to acquire a named lock with the given TTL
func (l *Lock) Acquire(_ context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if expiry, ok := l.held[name]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[name] = now.Add(ttl)
	return true, nil
}

// Release releases a named lock
func (l *Lock) Release(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// Extend extends the TTL of a currently held lock
func (l *Lock) Extend(_ context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[name]; !ok {
		return fmt.Errorf("lock %s not held", name)
	}
	l.held[name] = l.clock().Add(ttl)
	return nil
}

// Ping always succeeds for the in-process backend
func (l *Lock) Ping(_ context.Context) error {
	return nil
}
