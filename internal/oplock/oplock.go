// Package oplock provides the single-slot operation lock that serializes
// Auto-DJ decision actions. At most one rescue-or-expansion operation runs
// at a time; callers choose between the eager discipline (TryAcquire and
// bail when busy) and the cooperative discipline (WaitForCurrent, then
// retry their trigger check).
package oplock

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned by Do when the lock is already held.
var ErrBusy = errors.New("operation already in flight")

// Lock is a single-slot mutual exclusion primitive with observable
// completion: waiters can block until the current holder releases without
// themselves taking the slot.
type Lock struct {
	mu   sync.Mutex
	held bool
	done chan struct{}
}

// New constructs an idle lock.
func New() *Lock {
	return &Lock{}
}

// TryAcquire takes the slot if free, returning whether it succeeded.
func (l *Lock) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false
	}
	l.held = true
	l.done = make(chan struct{})
	return true
}

// Release frees the slot and wakes every WaitForCurrent caller. Releasing
// an idle lock is a no-op.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return
	}
	l.held = false
	close(l.done)
	l.done = nil
}

// Held reports whether the slot is currently taken.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// Acquire blocks until the slot is free and then takes it, or returns the
// context error.
func (l *Lock) Acquire(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}
		if err := l.WaitForCurrent(ctx); err != nil {
			return err
		}
	}
}

// Do runs fn while holding the slot, releasing it afterwards. When the slot
// is busy it returns ErrBusy without running fn (the eager discipline).
func (l *Lock) Do(ctx context.Context, fn func(context.Context) error) error {
	if !l.TryAcquire() {
		return ErrBusy
	}
	defer l.Release()
	return fn(ctx)
}

// WaitForCurrent blocks until the current holder releases, or returns the
// context error. Returns immediately when the lock is idle. It never takes
// the slot itself (the cooperative discipline).
func (l *Lock) WaitForCurrent(ctx context.Context) error {
	l.mu.Lock()
	if !l.held {
		l.mu.Unlock()
		return nil
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
