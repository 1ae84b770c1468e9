// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package recycler

import (
	"fmt"
	"runtime"
)

// Defaults, chosen to match the reference pooling design this package
// generalizes from: a 4096-per-thread ceiling, an 8:1 owner-recycle ratio,
// 16-slot links, and GOMAXPROCS*2 delayed foreign queues per foreign thread.
const (
	defaultMaxCapacityPerThread     = 4096
	defaultSharedCapacityFactor     = 2
	defaultRatio                    = 8
	defaultLinkCapacity             = 16
	defaultMaxDelayedQueuesPerOwner = 0 // resolved from runtime.GOMAXPROCS at New time
)

// poolOptions holds the resolved configuration for a Pool.
type poolOptions struct {
	maxCapacityPerThread     int
	sharedCapacityFactor     int
	ratio                    int
	linkCapacity             int
	maxDelayedQueuesPerOwner int
	logger                   Logger
	metrics                  *Metrics
	autoSized                bool
}

// Option configures a Pool at construction time.
type Option interface {
	apply(*poolOptions) error
}

type optionFunc func(*poolOptions) error

func (f optionFunc) apply(o *poolOptions) error { return f(o) }

// WithMaxCapacityPerThread bounds how many objects an owner thread's stack
// retains. A value of 0 disables pooling entirely: every Acquire allocates
// and every Recycle drops the object on the floor.
func WithMaxCapacityPerThread(n int) Option {
	return optionFunc(func(o *poolOptions) error {
		if n < 0 {
			return fmt.Errorf("recycler: max capacity per thread must be >= 0, got %d", n)
		}
		o.maxCapacityPerThread = n
		return nil
	})
}

// WithSharedCapacityFactor sets the divisor used to derive an owner
// thread's shared capacity budget (maxCapacityPerThread / factor, but never
// less than the link capacity) from which every foreign thread's delayed
// recycles are funded. Must be >= 1.
func WithSharedCapacityFactor(factor int) Option {
	return optionFunc(func(o *poolOptions) error {
		if factor < 1 {
			return fmt.Errorf("recycler: shared capacity factor must be >= 1, got %d", factor)
		}
		o.sharedCapacityFactor = factor
		return nil
	})
}

// WithRatio sets the admission ratio: a pool accepts 1 object out of every
// ratio first-time releases (whether pushed by the owner thread or
// transferred from a foreign queue), dropping the rest; ratio is rounded up
// to the next power of two. A handle admitted once is always admitted
// afterwards. Must be >= 1; 1 disables the ratio-based drop policy (every
// call is admitted, subject only to the capacity ceiling).
func WithRatio(ratio int) Option {
	return optionFunc(func(o *poolOptions) error {
		if ratio < 1 {
			return fmt.Errorf("recycler: ratio must be >= 1, got %d", ratio)
		}
		o.ratio = ratio
		return nil
	})
}

// WithLinkCapacity sets how many entries each link chunk in a foreign
// thread's delayed-recycle queue holds. Must be a power of two.
func WithLinkCapacity(capacity int) Option {
	return optionFunc(func(o *poolOptions) error {
		if capacity <= 0 || capacity&(capacity-1) != 0 {
			return fmt.Errorf("recycler: link capacity must be a positive power of two, got %d", capacity)
		}
		o.linkCapacity = capacity
		return nil
	})
}

// WithMaxDelayedQueuesPerThread caps how many distinct owner stacks a single
// foreign thread may open a delayed-recycle queue against. Once a foreign
// thread has reached this cap, its Recycle calls targeting any further stack
// drop the object instead of queueing it. 0 selects runtime.GOMAXPROCS(0)*2,
// matching the default this package's pooling model was generalized from.
func WithMaxDelayedQueuesPerThread(n int) Option {
	return optionFunc(func(o *poolOptions) error {
		if n < 0 {
			return fmt.Errorf("recycler: max delayed queues per thread must be >= 0, got %d", n)
		}
		o.maxDelayedQueuesPerOwner = n
		return nil
	})
}

// WithLogger attaches a structured Logger to the pool. Defaults to a no-op
// logger.
func WithLogger(logger Logger) Option {
	return optionFunc(func(o *poolOptions) error {
		if logger == nil {
			return fmt.Errorf("recycler: logger must not be nil")
		}
		o.logger = logger
		return nil
	})
}

// WithMetrics attaches a Metrics collector to the pool. Defaults to a
// private, unexported collector reachable only through Pool.Stats.
func WithMetrics(m *Metrics) Option {
	return optionFunc(func(o *poolOptions) error {
		if m == nil {
			return fmt.Errorf("recycler: metrics must not be nil")
		}
		o.metrics = m
		return nil
	})
}

// WithAutoSizedCapacity derives maxCapacityPerThread from the host's total
// system memory instead of a fixed constant (see autoSizedCapacity). It
// overrides any WithMaxCapacityPerThread in the same New call, whether that
// option comes before or after it.
func WithAutoSizedCapacity() Option {
	return optionFunc(func(o *poolOptions) error {
		o.autoSized = true
		return nil
	})
}

// resolveOptions applies opts over the package defaults, skipping nils.
func resolveOptions(opts []Option) (*poolOptions, error) {
	cfg := &poolOptions{
		maxCapacityPerThread: defaultMaxCapacityPerThread,
		sharedCapacityFactor: defaultSharedCapacityFactor,
		ratio:                defaultRatio,
		linkCapacity:         defaultLinkCapacity,
		logger:               NoOpLogger{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.maxDelayedQueuesPerOwner == defaultMaxDelayedQueuesPerOwner {
		cfg.maxDelayedQueuesPerOwner = runtime.GOMAXPROCS(0) * 2
	}
	if cfg.autoSized {
		cfg.maxCapacityPerThread = autoSizedCapacity()
	}
	if cfg.metrics == nil {
		cfg.metrics = newMetrics()
	}
	return cfg, nil
}
