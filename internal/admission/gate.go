// Package admission provides the counting gate that bounds concurrent
// backend work. Callers acquire a slot before dispatching and release it
// exactly once when the backend call finishes. Waiters beyond capacity
// queue in strict arrival order.
package admission

import (
	"context"
	"sync"
	"time"
)

// Snapshot is a point-in-time view of the gate, safe to read without
// further synchronization.
type Snapshot struct {
	Capacity   int
	Active     int
	Queued     int
	OldestWait time.Duration
}

// Hooks receives gate state transitions for metrics. Callbacks are invoked
// outside the gate's lock with values captured under it; they must not call
// back into the Gate. Nil funcs are skipped.
type Hooks struct {
	OnChange func(active, queued int)
	OnAdmit  func(wait time.Duration)
}

// Option configures a Gate at construction time.
type Option func(*Gate)

// WithMaxQueueDepth bounds the wait queue. When the bound is reached,
// Acquire fails fast instead of enqueueing. Zero means unbounded.
func WithMaxQueueDepth(n int) Option {
	return func(g *Gate) {
		if n < 0 {
			n = 0
		}
		g.maxQueueDepth = n
	}
}

// WithHooks attaches state-transition callbacks.
func WithHooks(h Hooks) Option {
	return func(g *Gate) { g.hooks = h }
}

// waiter is one queued acquisition attempt. seq is assigned under the gate
// lock at enqueue time and defines FIFO order. grant is buffered so the
// releasing goroutine never blocks on a waiter that is about to cancel.
// granted is written only under the gate lock; once set, the slot belongs
// to this waiter no matter what its context says.
type waiter struct {
	seq        uint64
	enqueuedAt time.Time
	grant      chan struct{}
	granted    bool
}

// Gate is a counting admission gate with a FIFO wait queue. Capacity is
// fixed at construction. The zero value is not usable; call New.
type Gate struct {
	capacity      int
	maxQueueDepth int
	hooks         Hooks

	mu      sync.Mutex
	active  int
	queue   []*waiter
	nextSeq uint64
}

// New returns a gate admitting at most capacity concurrent holders.
// capacity must be >= 1.
func New(capacity int, opts ...Option) *Gate {
	if capacity < 1 {
		panic("admission: capacity must be >= 1")
	}
	g := &Gate{capacity: capacity}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Capacity returns the immutable slot count.
func (g *Gate) Capacity() int { return g.capacity }

// TryAcquire takes a slot without blocking. It fails when the gate is at
// capacity or when anyone is already queued, so it can never jump the line.
func (g *Gate) TryAcquire() bool {
	g.mu.Lock()
	if g.active >= g.capacity || len(g.queue) > 0 {
		g.mu.Unlock()
		return false
	}
	g.active++
	active, queued := g.active, len(g.queue)
	g.mu.Unlock()
	g.notifyChange(active, queued)
	g.notifyAdmit(0)
	return true
}

// Acquire blocks until a slot is granted or ctx is done. A nil return means
// the caller holds a slot and must Release it exactly once. A non-nil return
// is ctx.Err(): DeadlineExceeded for a timed-out wait, Canceled for an
// abandoned one; either way no slot is held. When the queue bound is reached
// Acquire fails immediately and the error satisfies IsQueueFull.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	if g.active < g.capacity && len(g.queue) == 0 {
		g.active++
		active, queued := g.active, len(g.queue)
		g.mu.Unlock()
		g.notifyChange(active, queued)
		g.notifyAdmit(0)
		return nil
	}
	if g.maxQueueDepth > 0 && len(g.queue) >= g.maxQueueDepth {
		g.mu.Unlock()
		return queueFullError{depth: g.maxQueueDepth}
	}
	g.nextSeq++
	w := &waiter{
		seq:        g.nextSeq,
		enqueuedAt: time.Now(),
		grant:      make(chan struct{}, 1),
	}
	g.queue = append(g.queue, w)
	active, queued := g.active, len(g.queue)
	g.mu.Unlock()
	g.notifyChange(active, queued)

	select {
	case <-w.grant:
		g.notifyAdmit(time.Since(w.enqueuedAt))
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if w.granted {
			// The slot was handed over before the cancellation was
			// observed. The grant wins; the caller proceeds with
			// whatever budget remains.
			g.mu.Unlock()
			g.notifyAdmit(time.Since(w.enqueuedAt))
			return nil
		}
		g.removeLocked(w)
		active, queued := g.active, len(g.queue)
		g.mu.Unlock()
		g.notifyChange(active, queued)
		return ctx.Err()
	}
}

// Release returns a slot and hands it to the oldest waiter, if any.
// Calling Release without a matching successful acquire is a bug; the
// gate panics rather than run with a corrupted count.
func (g *Gate) Release() {
	g.mu.Lock()
	if g.active <= 0 {
		g.mu.Unlock()
		panic("admission: Release without matching Acquire")
	}
	g.active--
	var admitted []*waiter
	for g.active < g.capacity && len(g.queue) > 0 {
		w := g.queue[0]
		g.queue[0] = nil
		g.queue = g.queue[1:]
		w.granted = true
		g.active++
		admitted = append(admitted, w)
	}
	active, queued := g.active, len(g.queue)
	g.mu.Unlock()
	for _, w := range admitted {
		w.grant <- struct{}{}
	}
	g.notifyChange(active, queued)
}

// Snapshot reports current gate state. It does not mutate anything and may
// be called at any frequency.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := Snapshot{
		Capacity: g.capacity,
		Active:   g.active,
		Queued:   len(g.queue),
	}
	if len(g.queue) > 0 {
		s.OldestWait = time.Since(g.queue[0].enqueuedAt)
	}
	return s
}

// removeLocked drops w from the queue if still present. Order of the
// remaining waiters is preserved.
func (g *Gate) removeLocked(target *waiter) {
	for i, w := range g.queue {
		if w == target {
			copy(g.queue[i:], g.queue[i+1:])
			g.queue[len(g.queue)-1] = nil
			g.queue = g.queue[:len(g.queue)-1]
			return
		}
	}
}

func (g *Gate) notifyChange(active, queued int) {
	if g.hooks.OnChange != nil {
		g.hooks.OnChange(active, queued)
	}
}

func (g *Gate) notifyAdmit(wait time.Duration) {
	if g.hooks.OnAdmit != nil {
		g.hooks.OnAdmit(wait)
	}
}
