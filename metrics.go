// metrics.go - counters a Pool maintains about its own behaviour, exposed
// via Pool.Stats. Unlike the richer latency-quantile metrics used elsewhere
// in this codebase for request/response timing, pooling metrics are all
// simple monotonic counters: there's no latency to estimate, only counts of
// which path an Acquire or Recycle took.

package recycler

import "sync/atomic"

// Metrics accumulates counters across every Pool it's attached to via
// WithMetrics. The zero value is ready to use.
type Metrics struct {
	acquiresTotal        atomic.Int64
	allocationsTotal     atomic.Int64
	ownerRecyclesTotal   atomic.Int64
	foreignRecyclesTotal atomic.Int64
	ratioDropsTotal      atomic.Int64
	capacityDropsTotal   atomic.Int64
	queueCapDropsTotal   atomic.Int64
	scavengeAttempts     atomic.Int64
	scavengeSuccesses    atomic.Int64
	liveForeignQueues    atomic.Int64
}

func newMetrics() *Metrics { return &Metrics{} }

// Stats is an immutable snapshot of a Metrics at the moment Pool.Stats was
// called.
type Stats struct {
	// Acquires is the total number of completed Acquire calls.
	Acquires int64
	// Allocations is how many of those Acquires fell through to the
	// supplied constructor instead of reusing a pooled object.
	Allocations int64
	// OwnerRecycles is how many Recycle calls were handled directly by the
	// calling goroutine's own stack.
	OwnerRecycles int64
	// ForeignRecycles is how many Recycle calls were handed off to a
	// foreign-intake queue for later transfer back to the owner.
	ForeignRecycles int64
	// RatioDrops is how many Recycle calls were discarded by the
	// ratio-based admission policy.
	RatioDrops int64
	// CapacityDrops is how many Recycle calls were discarded because the
	// owner stack (or its shared capacity budget) was full.
	CapacityDrops int64
	// QueueCapDrops is how many Recycle calls were discarded because the
	// calling foreign thread had already opened queues against the maximum
	// number of distinct stacks (WithMaxDelayedQueuesPerThread).
	QueueCapDrops int64
	// ScavengeAttempts is how many times an Acquire tried to pull queued
	// foreign recycles onto the owner's local stack.
	ScavengeAttempts int64
	// ScavengeSuccesses is how many of those attempts transferred at least
	// one object.
	ScavengeSuccesses int64
	// LiveForeignQueues is the current number of open foreign-intake
	// queues across every Pool sharing this Metrics.
	LiveForeignQueues int64
}

// Snapshot returns the current counter values. Safe for concurrent use.
func (m *Metrics) Snapshot() Stats {
	return Stats{
		Acquires:          m.acquiresTotal.Load(),
		Allocations:       m.allocationsTotal.Load(),
		OwnerRecycles:     m.ownerRecyclesTotal.Load(),
		ForeignRecycles:   m.foreignRecyclesTotal.Load(),
		RatioDrops:        m.ratioDropsTotal.Load(),
		CapacityDrops:     m.capacityDropsTotal.Load(),
		QueueCapDrops:     m.queueCapDropsTotal.Load(),
		ScavengeAttempts:  m.scavengeAttempts.Load(),
		ScavengeSuccesses: m.scavengeSuccesses.Load(),
		LiveForeignQueues: m.liveForeignQueues.Load(),
	}
}
