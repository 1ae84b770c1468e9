// Package recycler implements a thread-biased, cross-goroutine object pool:
// each pooled value is wrapped in a Handle that remembers the goroutine that
// acquired it, recycling is free (lock-free, no allocation) when done from
// that same goroutine, and recycling from any other goroutine is staged in a
// per-(owner, foreign-goroutine) intake queue that the owner drains lazily
// on its next Acquire. An admission-control drop policy discards most
// first-time releases, trading a slightly lower hit rate for a pool whose
// memory use doesn't balloon under bursty recycle traffic.
//
// A Pool is constructed once per type with a factory function, and every
// Acquire either reuses a previously recycled value or calls the factory.
// Recycling happens through the Handle the factory was given, not through
// the Pool: pooled types are expected to retain their Handle (commonly as an
// unexported field) and expose their own release method that forwards to
// it.
package recycler

import (
	"fmt"
	"sync/atomic"

	"github.com/gorecycler/recycler/goroutineid"
	"github.com/gorecycler/recycler/tlslot"
)

// Handle wraps exactly one pooled value and tracks its place in the
// recycling lifecycle: fresh/acquired (both ids zero), queued in a foreign
// goroutine's intake queue (lastRecycleID set to that queue's id), or
// resting in its owner stack (both ids equal: ownerSentinel when pushed by
// the owner, the queue's id when transferred from a foreign queue). recycled is
// the single source of truth for double-recycle detection: it's CAS'd by
// Recycle regardless of which goroutine calls it, so the check holds even
// when two different foreign goroutines race to recycle the same handle
// (recycleID/lastRecycleID alone can't catch that, since each foreign
// goroutine queues into its own queue).
type Handle[T any] struct {
	value           T
	stack           *stack[T]
	recycleID       int64
	lastRecycleID   int64
	hasBeenRecycled bool
	recycled        atomic.Bool
}

// Recycle returns the handle's value to its pool. Calling Recycle twice on
// the same handle without an intervening Acquire that returned it is a
// caller bug and reports ErrDoubleRecycle, no matter which goroutines make
// the two calls. Recycle never blocks and never panics; every other failure
// mode (over capacity, over the foreign-queue cap, losing the
// admission-control coin flip) is a silent drop, per design.
func (h *Handle[T]) Recycle() error {
	if !h.recycled.CompareAndSwap(false, true) {
		return ErrDoubleRecycle
	}
	if h.stack == nil {
		// A no-op-sink handle (Pool configured with
		// WithMaxCapacityPerThread(0)): there is nowhere to push it back to.
		return nil
	}
	h.stack.push(h)
	return nil
}

// Value returns the value this handle wraps. Pooled types built around an
// embedded Handle rarely need this directly, since they already hold the
// value; it mainly exists for generic helpers operating on a bare Handle.
func (h *Handle[T]) Value() T { return h.value }

// Pool is a per-type object pool. The zero value is not usable; construct
// one with New.
type Pool[T any] struct {
	newObject func(*Handle[T]) T
	opts      *poolOptions
	slot      tlslot.Index
	table     *tlslot.Table
}

// New constructs a Pool whose Acquire calls newObject exactly when no
// recycled value is available. newObject receives the Handle that will own
// the value it returns; the value's zero value occupies the handle's value
// field until newObject returns (design note: newObject must not call
// Recycle on the handle it was given).
func New[T any](newObject func(*Handle[T]) T, opts ...Option) (*Pool[T], error) {
	if newObject == nil {
		return nil, fmt.Errorf("recycler: newObject must not be nil")
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	idx, err := tlslot.NextSlot()
	if err != nil {
		return nil, err
	}
	return &Pool[T]{
		newObject: newObject,
		opts:      cfg,
		slot:      idx,
		table:     tlslot.DefaultTable,
	}, nil
}

// Acquire returns a pooled value, reusing one recycled on the calling
// goroutine if available, next scavenging queued foreign recycles, and
// finally falling back to newObject. A non-nil error only ever means
// ErrInconsistentHandle: detected corruption of the pop/scavenge path, which
// per package policy is raised to the caller rather than silently absorbed
// like a capacity or ratio drop. Callers that have no recovery strategy for
// a corrupted pool can treat it as fatal; the returned T is always the zero
// value in that case.
func (p *Pool[T]) Acquire() (T, error) {
	if p.opts.maxCapacityPerThread == 0 {
		h := &Handle[T]{}
		v := p.newObject(h)
		h.value = v
		p.opts.metrics.acquiresTotal.Add(1)
		p.opts.metrics.allocationsTotal.Add(1)
		p.opts.logger.Log(LevelDebug, "acquire: pooling disabled", Str("pool", p.typeName()))
		return v, nil
	}

	s := p.localStack()
	h, err := s.pop()
	p.opts.metrics.acquiresTotal.Add(1)
	if err != nil {
		p.opts.logger.Log(LevelError, "acquire: inconsistent handle during pop/scavenge",
			Str("pool", p.typeName()), Int64("owner", s.ownerID), Err(err))
		var zero T
		return zero, err
	}
	if h != nil {
		return h.value, nil
	}

	h = &Handle[T]{stack: s}
	v := p.newObject(h)
	h.value = v
	p.opts.metrics.allocationsTotal.Add(1)
	return v, nil
}

// Stats returns a snapshot of this Pool's metrics. If the Pool wasn't
// configured with WithMetrics, this is a private per-Pool counter.
func (p *Pool[T]) Stats() Stats {
	return p.opts.metrics.Snapshot()
}

func (p *Pool[T]) localStack() *stack[T] {
	if v, ok := p.table.Get(p.slot); ok {
		return v.(*stack[T])
	}
	s := newStack[T](p)
	p.table.Set(p.slot, s)
	return s
}

func (p *Pool[T]) typeName() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// CurrentGoroutineID exposes the goroutine id this package uses internally
// to bias stacks to their owner. Exported for diagnostics and tests only;
// pool correctness never depends on callers observing it.
func CurrentGoroutineID() int64 { return goroutineid.Get() }
