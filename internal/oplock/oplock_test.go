package oplock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moodify/internal/oplock"
)

func TestTryAcquireIsExclusive(t *testing.T) {
	lock := oplock.New()

	if !lock.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if lock.TryAcquire() {
		t.Fatal("second acquire should fail while held")
	}
	if !lock.Held() {
		t.Fatal("lock should report held")
	}

	lock.Release()
	if lock.Held() {
		t.Fatal("lock should be free after release")
	}
	if !lock.TryAcquire() {
		t.Fatal("acquire after release should succeed")
	}
}

func TestReleaseIdleIsNoOp(t *testing.T) {
	lock := oplock.New()
	lock.Release()
	lock.Release()
	if !lock.TryAcquire() {
		t.Fatal("lock should still be usable")
	}
}

func TestDoReturnsBusyWithoutRunning(t *testing.T) {
	lock := oplock.New()
	if !lock.TryAcquire() {
		t.Fatal("setup acquire failed")
	}

	ran := false
	err := lock.Do(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	if !errors.Is(err, oplock.ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
	if ran {
		t.Fatal("fn must not run when the slot is busy")
	}
}

func TestDoReleasesAfterError(t *testing.T) {
	lock := oplock.New()
	wantErr := errors.New("boom")

	if err := lock.Do(context.Background(), func(context.Context) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want wrapped fn error", err)
	}
	if lock.Held() {
		t.Fatal("lock must be released after fn returns")
	}
}

func TestWaitForCurrentDoesNotTakeSlot(t *testing.T) {
	lock := oplock.New()
	if !lock.TryAcquire() {
		t.Fatal("setup acquire failed")
	}

	const waiters = 4
	var wg sync.WaitGroup
	errs := make([]error, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = lock.WaitForCurrent(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	lock.Release()
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("waiter %d: %v", i, err)
		}
	}
	if lock.Held() {
		t.Fatal("waiters must not take the slot")
	}
}

func TestWaitForCurrentIdleReturnsImmediately(t *testing.T) {
	lock := oplock.New()
	if err := lock.WaitForCurrent(context.Background()); err != nil {
		t.Fatalf("idle wait: %v", err)
	}
}

func TestWaitForCurrentHonorsContext(t *testing.T) {
	lock := oplock.New()
	if !lock.TryAcquire() {
		t.Fatal("setup acquire failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := lock.WaitForCurrent(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
}

func TestAcquireBlocksUntilFree(t *testing.T) {
	lock := oplock.New()
	if !lock.TryAcquire() {
		t.Fatal("setup acquire failed")
	}

	acquired := make(chan error, 1)
	go func() {
		acquired <- lock.Acquire(context.Background())
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while held")
	case <-time.After(20 * time.Millisecond):
	}

	lock.Release()
	select {
	case err := <-acquired:
		if err != nil {
			t.Fatalf("acquire after release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("acquire did not proceed after release")
	}
	if !lock.Held() {
		t.Fatal("acquire should take the slot")
	}
}
