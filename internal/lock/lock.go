package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked is returned when a job lock could not be acquired in time
var ErrLocked = errors.New("construction is locked by another operation")

// Locker serialises schedule mutations per construction job
type Locker interface {
	// Acquire blocks until the job lock is held, the wait expires or ctx is done.
	// The returned release func must be called exactly once.
	Acquire(ctx context.Context, constructionID uint) (release func(), err error)
}

// MemoryLocker is an in-process Locker
type MemoryLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[uint]chan struct{}
}

// NewMemoryLocker returns a Locker that waits up to wait for a busy job.
// A zero wait fails fast.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{wait: wait, slots: make(map[uint]chan struct{})}
}

func (l *MemoryLocker) slot(id uint) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[id] = ch
	}
	return ch
}

// Acquire implements Locker
func (l *MemoryLocker) Acquire(ctx context.Context, constructionID uint) (func(), error) {
	ch := l.slot(constructionID)
	release := func() { <-ch }

	select {
	case ch <- struct{}{}:
		return release, nil
	default:
	}
	if l.wait <= 0 {
		return nil, ErrLocked
	}

	timer := time.NewTimer(l.wait)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return release, nil
	case <-timer.C:
		return nil, ErrLocked
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
