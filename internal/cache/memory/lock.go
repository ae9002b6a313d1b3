// Package memory provides in-process implementations of the cache and
// coordination interfaces, used when Redis is not configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// LockManager implements domain.LockManager with a process-local mutex map.
// It serializes operations within a single process only; multi-instance
// deployments need the Redis-backed manager.
type LockManager struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLockManager creates an empty in-process LockManager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]struct{})}
}

// Acquire obtains the lock for key or returns domain.ErrLockHeld when another
// caller holds it. The TTL is ignored; the lock lives until unlock is called.
func (lm *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if _, taken := lm.held[key]; taken {
		return nil, domain.ErrLockHeld
	}
	lm.held[key] = struct{}{}

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(lm.held, key)
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
