// Package lock serializes timer mutations per user. Locks for different keys
// never block each other.
package lock

import (
	"context"
	"sync"

	"worktime-backend/internal/apperr"
)

// Locker hands out exclusive access to a key until release is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process keyed mutex. Waiters queue until the holder
// releases or their context ends.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

func NewLocal() *Local {
	return &Local{slots: map[string]*slot{}}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.leave(key, s)
		return nil, apperr.Wrap(apperr.Conflict, "timer is busy, try again", ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.leave(key, s)
		})
	}, nil
}

func (l *Local) leave(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}

// held reports how many keys currently have holders or waiters.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
