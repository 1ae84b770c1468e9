package recycler

import (
	"sync"
	"sync/atomic"

	"github.com/gorecycler/recycler/goroutineid"
	"github.com/gorecycler/recycler/internal/gcwatch"
	"github.com/gorecycler/recycler/internal/nextpow2"
)

// ownerSentinel is the value both of a Handle's recycleID and lastRecycleID
// are set to once it has been pushed back onto its owner stack directly
// (spec's "owned-recycled" state). It is disjoint from 0 (fresh/acquired)
// and from every positive foreignQueue id (queued-foreign state).
const ownerSentinel = -1

// stack is per-(Pool, owner goroutine) state: spec's Stack.
type stack[T any] struct {
	pool    *Pool[T]
	ownerID int64

	// Touched only by the owner goroutine (invariant 6).
	elements       []*Handle[T]
	size           int
	recycleCounter int64
	cursor         *foreignQueue[T]
	prev           *foreignQueue[T]

	maxCapacity      int
	maxDelayedQueues int
	dropMask         int64

	headMu sync.Mutex
	head   atomic.Pointer[foreignQueue[T]]

	availableSharedCapacity atomic.Int64
	initialSharedCapacity   int64

	foreignIDs sync.Map // int64 -> struct{}, diagnostics only
}

func newStack[T any](p *Pool[T]) *stack[T] {
	maxCap := p.opts.maxCapacityPerThread
	initLen := 256
	if maxCap < initLen {
		initLen = maxCap
	}
	if initLen < 1 {
		initLen = 1
	}
	s := &stack[T]{
		pool:             p,
		ownerID:          goroutineid.Get(),
		elements:         make([]*Handle[T], initLen),
		maxCapacity:      maxCap,
		maxDelayedQueues: p.opts.maxDelayedQueuesPerOwner,
		dropMask:         int64(nextpow2.Of(p.opts.ratio) - 1),
		recycleCounter:   -1,
	}
	initShared := int64(maxCap / p.opts.sharedCapacityFactor)
	if linkCap := int64(p.opts.linkCapacity); initShared < linkCap {
		initShared = linkCap
	}
	s.availableSharedCapacity.Store(initShared)
	s.initialSharedCapacity = initShared
	return s
}

func (s *stack[T]) reserveSharedCapacity(n int64) bool {
	for {
		cur := s.availableSharedCapacity.Load()
		if cur < n {
			return false
		}
		if s.availableSharedCapacity.CompareAndSwap(cur, cur-n) {
			return true
		}
	}
}

func (s *stack[T]) reclaimSharedCapacity(n int64) {
	s.availableSharedCapacity.Add(n)
}

// dropPolicy is the admission filter (spec §4.2.6). Only ever called from
// the owner goroutine (pushOwner directly, transfer indirectly via
// scavenge/Acquire), so recycleCounter needs no synchronization.
func (s *stack[T]) dropPolicy(h *Handle[T]) bool {
	if h.hasBeenRecycled {
		return false
	}
	s.recycleCounter++
	if s.recycleCounter&s.dropMask != 0 {
		return true
	}
	h.hasBeenRecycled = true
	return false
}

func (s *stack[T]) growTo(want int) {
	newLen := len(s.elements)
	if newLen == 0 {
		newLen = 1
	}
	for newLen < want && newLen < s.maxCapacity {
		newLen *= 2
	}
	if newLen > s.maxCapacity {
		newLen = s.maxCapacity
	}
	if newLen <= len(s.elements) {
		return
	}
	grown := make([]*Handle[T], newLen)
	copy(grown, s.elements)
	s.elements = grown
}

// push is the entry point for Handle.Recycle: dispatches to the owner or
// foreign path depending on which goroutine is calling.
func (s *stack[T]) push(h *Handle[T]) {
	if goroutineid.Get() == s.ownerID {
		s.pushOwner(h)
		return
	}
	s.pushForeign(h)
}

func (s *stack[T]) pushOwner(h *Handle[T]) {
	h.recycleID = ownerSentinel
	h.lastRecycleID = ownerSentinel

	if s.size >= s.maxCapacity {
		s.pool.opts.metrics.capacityDropsTotal.Add(1)
		return
	}
	if s.dropPolicy(h) {
		s.pool.opts.metrics.ratioDropsTotal.Add(1)
		return
	}
	if s.size == len(s.elements) {
		s.growTo(s.size + 1)
		if s.size == len(s.elements) {
			s.pool.opts.metrics.capacityDropsTotal.Add(1)
			return
		}
	}
	s.elements[s.size] = h
	s.size++
	s.pool.opts.metrics.ownerRecyclesTotal.Add(1)
}

// pushForeign never fails loudly: every drop path is silent, per spec §7.
func (s *stack[T]) pushForeign(h *Handle[T]) {
	s.foreignIDs.Store(goroutineid.Get(), struct{}{})

	fq, dummy := s.foreignQueueOrDummy()
	if dummy {
		s.pool.opts.metrics.queueCapDropsTotal.Add(1)
		return
	}
	if fq == nil {
		s.pool.opts.metrics.capacityDropsTotal.Add(1)
		return
	}
	if !fq.append(h, s) {
		s.pool.opts.metrics.capacityDropsTotal.Add(1)
		return
	}
	s.pool.opts.metrics.foreignRecyclesTotal.Add(1)
}

// foreignQueueOrDummy implements spec §4.2.1's foreign branch: look up (or
// create) the calling goroutine's queue targeting s, subject to the
// per-foreign-goroutine queue cap and the shared-capacity reservation.
func (s *stack[T]) foreignQueueOrDummy() (q *foreignQueue[T], dummy bool) {
	m := currentForeignMap()
	key := any(s)
	if v, ok := m.Load(key); ok {
		if v == dummySentinel {
			return nil, true
		}
		return v.(*foreignQueue[T]), false
	}

	count := 0
	m.Range(func(_, _ any) bool { count++; return true })
	if count >= s.maxDelayedQueues {
		m.Store(key, dummySentinel)
		return nil, true
	}

	if !s.reserveSharedCapacity(int64(s.pool.opts.linkCapacity)) {
		return nil, false
	}
	fq := newForeignQueue[T](s.pool.opts.linkCapacity)
	m.Store(key, fq)
	s.publishHead(fq)

	metrics := s.pool.opts.metrics
	metrics.liveForeignQueues.Add(1)
	releasable := fq.releasable
	gcwatch.Register(fq, func() {
		if n := releasable.Load(); n > 0 {
			s.reclaimSharedCapacity(n)
		}
		metrics.liveForeignQueues.Add(-1)
	})

	return fq, false
}

func (s *stack[T]) publishHead(q *foreignQueue[T]) {
	s.headMu.Lock()
	q.next.Store(s.head.Load())
	s.head.Store(q)
	s.headMu.Unlock()
}

// pop is spec §4.2.2, always called on the owner goroutine (via Pool's
// per-goroutine lookup), so it never needs to check ownership itself.
func (s *stack[T]) pop() (*Handle[T], error) {
	if s.size == 0 {
		s.pool.opts.metrics.scavengeAttempts.Add(1)
		ok, err := s.scavenge()
		if err != nil {
			return nil, err
		}
		if ok {
			s.pool.opts.metrics.scavengeSuccesses.Add(1)
		}
		if !ok {
			return nil, nil
		}
	}
	s.size--
	h := s.elements[s.size]
	s.elements[s.size] = nil
	if h.lastRecycleID != h.recycleID {
		return nil, ErrInconsistentHandle
	}
	h.recycleID = 0
	h.lastRecycleID = 0
	h.recycled.Store(false)
	return h, nil
}

// scavenge is spec §4.2.3.
func (s *stack[T]) scavenge() (bool, error) {
	if s.cursor == nil {
		s.cursor = s.head.Load()
		if s.cursor == nil {
			return false, nil
		}
	}
	for {
		q := s.cursor
		ok, err := s.transfer(q)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}

		if q.ownerCanary.Value() == nil {
			for {
				more, terr := s.transfer(q)
				if terr != nil {
					return false, terr
				}
				if !more {
					break
				}
			}
			next := q.next.Load()
			if s.prev != nil {
				s.prev.next.Store(next)
			}
			s.cursor = next
		} else {
			s.prev = q
			s.cursor = q.next.Load()
		}

		if s.cursor == nil {
			s.prev = nil
			s.cursor = s.head.Load()
			return false, nil
		}
	}
}

// transfer is spec §4.2.5, always run on the owner goroutine.
func (s *stack[T]) transfer(q *foreignQueue[T]) (bool, error) {
	l := q.headLink.Load()
	for {
		if l == nil {
			return false, nil
		}
		wi := l.writeIndex.Load()
		if l.readIndex == wi {
			next := l.next.Load()
			if next == nil {
				return false, nil
			}
			q.headLink.Store(next)
			q.releasable.Add(-int64(q.linkCapacity))
			s.reclaimSharedCapacity(int64(q.linkCapacity))
			l = next
			continue
		}

		start := l.readIndex
		end := wi
		need := int(end - start)
		avail := len(s.elements) - s.size
		if need > avail {
			s.growTo(s.size + need)
			avail = len(s.elements) - s.size
			if need > avail {
				end = start + int32(avail)
				need = avail
			}
		}

		transferred := false
		for i := start; i < end; i++ {
			h := l.elements[i]
			l.elements[i] = nil
			if h.recycleID == 0 {
				h.recycleID = h.lastRecycleID
			} else if h.recycleID != h.lastRecycleID {
				return false, ErrInconsistentHandle
			}
			if s.dropPolicy(h) {
				s.pool.opts.metrics.ratioDropsTotal.Add(1)
				continue
			}
			h.stack = s
			s.elements[s.size] = h
			s.size++
			transferred = true
		}
		l.readIndex = end
		return transferred, nil
	}
}
