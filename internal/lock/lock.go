// Package lock provides the run lock that keeps two import batches from
// overlapping, either inside one process or across processes through Redis.
package lock

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrLocked is returned by TryLock when another holder has the lock.
	ErrLocked = errors.New("lock held by another runner")
	// ErrNotHeld is returned by a release func when the lock had already
	// expired or been released.
	ErrNotHeld = errors.New("lock not held")
)

// Release gives the lock back.
type Release func(ctx context.Context) error

// Locker is a non-blocking mutual exclusion lock.
type Locker interface {
	// TryLock takes the lock or returns ErrLocked without waiting.
	TryLock(ctx context.Context) (Release, error)
}

// LocalLocker is an in-process Locker.
type LocalLocker struct {
	mu sync.Mutex
}

var _ Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

func (l *LocalLocker) TryLock(_ context.Context) (Release, error) {
	if !l.mu.TryLock() {
		return nil, ErrLocked
	}
	var once sync.Once
	return func(context.Context) error {
		released := false
		once.Do(func() {
			l.mu.Unlock()
			released = true
		})
		if !released {
			return ErrNotHeld
		}
		return nil
	}, nil
}
