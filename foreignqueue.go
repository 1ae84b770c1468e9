package recycler

import (
	"sync/atomic"
	"weak"
)

// link is a fixed-size bucket of handles within a foreignQueue. Exactly one
// foreign goroutine ever appends to a given queue (queues are keyed
// per-(owner-stack, foreign-goroutine)), so writeIndex is the only field
// that needs atomic publish/observe semantics: the foreign goroutine stores
// it with a release, the owner goroutine loads it with an acquire during
// transfer.
type link[T any] struct {
	elements   []*Handle[T]
	writeIndex atomic.Int32
	readIndex  int32 // touched only by the owner goroutine, during transfer
	next       atomic.Pointer[link[T]]
}

var queueIDCounter atomic.Int64

// foreignQueue is a per-(target stack, foreign goroutine) staging buffer:
// spec's foreign-intake queue.
type foreignQueue[T any] struct {
	id           int64
	linkCapacity int
	headLink     atomic.Pointer[link[T]] // first not-fully-drained link; advanced by the owner
	tail         *link[T]                // current write target; touched only by the owning foreign goroutine
	next         atomic.Pointer[foreignQueue[T]]
	ownerCanary  weak.Pointer[canary]
	releasable   *atomic.Int64 // link-capacity currently reserved by this queue, not yet returned
}

func newForeignQueue[T any](linkCapacity int) *foreignQueue[T] {
	l := &link[T]{elements: make([]*Handle[T], linkCapacity)}
	releasable := new(atomic.Int64)
	releasable.Store(int64(linkCapacity))
	fq := &foreignQueue[T]{
		id:           queueIDCounter.Add(1),
		linkCapacity: linkCapacity,
		tail:         l,
		ownerCanary:  currentWeakCanary(),
		releasable:   releasable,
	}
	fq.headLink.Store(l)
	return fq
}

// append stores h at the queue's tail, reserving another link from s's
// shared capacity if the tail is full. Returns false if a new link was
// needed and the reservation failed (caller drops the handle).
func (q *foreignQueue[T]) append(h *Handle[T], s *stack[T]) bool {
	h.lastRecycleID = q.id
	tail := q.tail
	wi := tail.writeIndex.Load()
	if int(wi) == q.linkCapacity {
		if !s.reserveSharedCapacity(int64(q.linkCapacity)) {
			return false
		}
		nl := &link[T]{elements: make([]*Handle[T], q.linkCapacity)}
		tail.next.Store(nl)
		q.tail = nl
		q.releasable.Add(int64(q.linkCapacity))
		tail = nl
		wi = 0
	}
	tail.elements[wi] = h
	h.stack = nil
	tail.writeIndex.Store(wi + 1)
	return true
}
