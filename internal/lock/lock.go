// Package lock provides per-key in-flight guards used to serialize a user's
// synthesis requests.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned by TryAcquire when the key is already held.
var ErrHeld = errors.New("lock is held")

// Locker grants at most one holder per key at a time.
type Locker interface {
	// TryAcquire does not wait. The returned release is safe to call more than
	// once; only the first call does work and can fail.
	TryAcquire(ctx context.Context, key string) (release func() error, err error)
}

// Local is an in-process Locker.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

func (l *Local) TryAcquire(_ context.Context, key string) (func() error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.held[key] = struct{}{}
	var once sync.Once
	return func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
