package recycler

import (
	"sync"
	"weak"

	"github.com/gorecycler/recycler/tlslot"
)

// canary is a tiny per-goroutine marker. Every goroutine that ever acts as a
// foreign releaser lazily gets exactly one, stored in tlslot.DefaultTable
// under a reserved slot private to this file. A foreign-intake queue records
// a weak.Pointer to the creating goroutine's canary; once that goroutine
// calls tlslot.DefaultTable.ClearAll() (or is otherwise forgotten), nothing
// but the weak pointer refers to the canary, it is collected, and
// weak.Pointer.Value returns nil — the signal scavenge uses to treat a
// foreign queue's owner as gone. This is this package's substitute for
// spec's "weak reference to owning thread": Go has no handle on a goroutine
// to hold weakly, so liveness is tracked through a value whose reachability
// is deliberately tied to the goroutine's own slot-map record instead.
type canary struct{}

var (
	canarySlotOnce sync.Once
	canarySlot     tlslot.Index
)

func canaryIndex() tlslot.Index {
	canarySlotOnce.Do(func() {
		idx, err := tlslot.NextSlot()
		if err != nil {
			// The process-wide slot counter is shared by every Pool and this
			// one reserved slot; exhaustion here means the whole package is
			// already unusable.
			panic(err)
		}
		canarySlot = idx
	})
	return canarySlot
}

func currentCanary() *canary {
	idx := canaryIndex()
	if v, ok := tlslot.DefaultTable.Get(idx); ok {
		return v.(*canary)
	}
	c := &canary{}
	tlslot.DefaultTable.Set(idx, c)
	return c
}

func currentWeakCanary() weak.Pointer[canary] {
	return weak.Make(currentCanary())
}
