package admission

import (
	"context"
	"errors"
	"testing"
	"time"
)

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not reached in time")
}

func TestTryAcquireRelease(t *testing.T) {
	g := New(2)
	if !g.TryAcquire() || !g.TryAcquire() {
		t.Fatalf("expected two slots")
	}
	if g.TryAcquire() {
		t.Fatalf("expected failure at capacity")
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("expected slot after release")
	}
	if s := g.Snapshot(); s.Active != 2 || s.Capacity != 2 || s.Queued != 0 {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
}

func TestTryAcquire_FailsWhileWaitersQueued(t *testing.T) {
	g := New(1)
	if !g.TryAcquire() {
		t.Fatalf("first acquire")
	}
	done := make(chan error, 1)
	go func() { done <- g.Acquire(context.Background()) }()
	waitUntil(t, func() bool { return g.Snapshot().Queued == 1 })
	if g.TryAcquire() {
		t.Fatalf("TryAcquire must not succeed while a waiter is queued")
	}
	g.Release()
	if err := <-done; err != nil {
		t.Fatalf("queued waiter: %v", err)
	}
	g.Release()
}

func TestAcquire_FastPathWithFreeSlot(t *testing.T) {
	g := New(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	g.Release()
}

func TestAcquire_PreCanceledContext(t *testing.T) {
	g := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	// No slot may have been taken.
	if s := g.Snapshot(); s.Active != 0 {
		t.Fatalf("slot leaked: %+v", s)
	}
}

func TestAcquire_DeadlineWhileQueued(t *testing.T) {
	g := New(1)
	if !g.TryAcquire() {
		t.Fatalf("first acquire")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if s := g.Snapshot(); s.Queued != 0 {
		t.Fatalf("waiter not removed: %+v", s)
	}
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("slot lost after timed-out wait")
	}
	g.Release()
}

func TestAcquire_CancelWhileQueued(t *testing.T) {
	g := New(1)
	if !g.TryAcquire() {
		t.Fatalf("first acquire")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Acquire(ctx) }()
	waitUntil(t, func() bool { return g.Snapshot().Queued == 1 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
	waitUntil(t, func() bool { return g.Snapshot().Queued == 0 })
	g.Release()
	if !g.TryAcquire() {
		t.Fatalf("slot lost after canceled wait")
	}
	g.Release()
}

func TestAcquire_QueueFull(t *testing.T) {
	g := New(1, WithMaxQueueDepth(1))
	if !g.TryAcquire() {
		t.Fatalf("first acquire")
	}
	done := make(chan error, 1)
	go func() { done <- g.Acquire(context.Background()) }()
	waitUntil(t, func() bool { return g.Snapshot().Queued == 1 })
	err := g.Acquire(context.Background())
	if err == nil || !IsQueueFull(err) {
		t.Fatalf("expected queue-full error, got %v", err)
	}
	g.Release()
	if err := <-done; err != nil {
		t.Fatalf("queued waiter: %v", err)
	}
	g.Release()
}

func TestRelease_WithoutAcquirePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on release without acquire")
		}
	}()
	New(1).Release()
}

func TestNew_InvalidCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on capacity 0")
		}
	}()
	New(0)
}

func TestSnapshot_OldestWait(t *testing.T) {
	g := New(1)
	if !g.TryAcquire() {
		t.Fatalf("first acquire")
	}
	done := make(chan error, 1)
	go func() { done <- g.Acquire(context.Background()) }()
	waitUntil(t, func() bool { return g.Snapshot().Queued == 1 })
	time.Sleep(30 * time.Millisecond)
	s1 := g.Snapshot()
	if s1.OldestWait < 20*time.Millisecond {
		t.Fatalf("oldest wait too small: %s", s1.OldestWait)
	}
	s2 := g.Snapshot()
	if s2.Queued != s1.Queued || s2.Active != s1.Active {
		t.Fatalf("snapshot mutated state: %+v vs %+v", s1, s2)
	}
	if s2.OldestWait < s1.OldestWait {
		t.Fatalf("oldest wait went backwards: %s then %s", s1.OldestWait, s2.OldestWait)
	}
	g.Release()
	if err := <-done; err != nil {
		t.Fatalf("queued waiter: %v", err)
	}
	g.Release()
	if s := g.Snapshot(); s.OldestWait != 0 || s.Queued != 0 {
		t.Fatalf("expected empty queue snapshot: %+v", s)
	}
}

func TestHooks(t *testing.T) {
	type change struct{ active, queued int }
	changes := make(chan change, 16)
	admits := make(chan time.Duration, 16)
	g := New(1, WithHooks(Hooks{
		OnChange: func(a, q int) { changes <- change{a, q} },
		OnAdmit:  func(w time.Duration) { admits <- w },
	}))
	if !g.TryAcquire() {
		t.Fatalf("acquire")
	}
	if c := <-changes; c.active != 1 || c.queued != 0 {
		t.Fatalf("unexpected change: %+v", c)
	}
	if w := <-admits; w != 0 {
		t.Fatalf("fast-path admit should report zero wait, got %s", w)
	}
	done := make(chan error, 1)
	go func() { done <- g.Acquire(context.Background()) }()
	waitUntil(t, func() bool { return g.Snapshot().Queued == 1 })
	time.Sleep(10 * time.Millisecond)
	g.Release()
	if err := <-done; err != nil {
		t.Fatalf("queued waiter: %v", err)
	}
	if w := <-admits; w < 5*time.Millisecond {
		t.Fatalf("queued admit wait too small: %s", w)
	}
	g.Release()
}
