// Package lock provides the per-user serialization points used by the engine.
package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/roundup_vault/internal/core/ports"
)

// KeyedLocker serializes work per user inside one process.
type KeyedLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an in-process locker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{slots: make(map[string]*slot)}
}

var _ ports.UserLocker = (*KeyedLocker)(nil)

// Lock waits for the user's slot or for ctx to be done.
func (l *KeyedLocker) Lock(ctx context.Context, userID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[userID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[userID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(userID, s, false)
		return nil, fmt.Errorf("%w: %v", ports.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(userID, s, true) })
	}, nil
}

func (l *KeyedLocker) release(userID string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, userID)
	}
	l.mu.Unlock()
}
