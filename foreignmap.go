package recycler

import (
	"sync"

	"github.com/gorecycler/recycler/tlslot"
)

// foreignMap is the per-goroutine "which stacks have I already opened a
// queue against" map described by spec's foreign-queue map: a map from
// *stack[T] (stored as `any`, since a single map is shared by every Pool
// type a goroutine has ever released to) to either a *foreignQueue[T] or
// dummySentinel. It lives in tlslot.DefaultTable under a slot reserved once
// for this purpose, so each goroutine gets exactly one such map regardless
// of how many Pool types it touches.
//
// Go's sync.Map has no weak keys, so unlike the map this generalizes from,
// entries here are not automatically dropped when their target stack
// becomes unreachable; the target stack is instead kept alive for as long
// as this map references it. This divergence is intentional and recorded in
// DESIGN.md: the capacity-accounting invariant the pool actually cares about
// is preserved by the gcwatch-driven release of a foreign queue's
// link-capacity reservation, not by this map shrinking.

var (
	foreignMapSlotOnce sync.Once
	foreignMapSlot     tlslot.Index
)

// dummySentinel marks "this goroutine has already opened
// maxDelayedQueuesPerOwner queues against distinct stacks; drop everything
// else", per spec's DUMMY queue.
var dummySentinel = &struct{ dummy byte }{}

func foreignMapIndex() tlslot.Index {
	foreignMapSlotOnce.Do(func() {
		idx, err := tlslot.NextSlot()
		if err != nil {
			panic(err)
		}
		foreignMapSlot = idx
	})
	return foreignMapSlot
}

func currentForeignMap() *sync.Map {
	idx := foreignMapIndex()
	if v, ok := tlslot.DefaultTable.Get(idx); ok {
		return v.(*sync.Map)
	}
	m := &sync.Map{}
	tlslot.DefaultTable.Set(idx, m)
	return m
}
