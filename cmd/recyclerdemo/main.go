// Command recyclerdemo runs a small multi-goroutine workload against a
// recycler.Pool, demonstrating the owner-thread fast path and the
// cross-goroutine recycle path (spec scenario S2) side by side, and prints
// periodic pool statistics until the workload completes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	_ "github.com/KimMachineGun/automemlimit/memlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/gorecycler/recycler"
	"github.com/gorecycler/recycler/completion"
	"github.com/gorecycler/recycler/config"
)

// Buffer is a pooled scratch byte slice. It embeds the Handle it was
// constructed with so callers can release it without holding onto the Pool.
type Buffer struct {
	handle *recycler.Handle[*Buffer]
	data   []byte
}

// Release returns the Buffer to its pool.
func (b *Buffer) Release() { _ = b.handle.Recycle() }

func newBuffer(h *recycler.Handle[*Buffer]) *Buffer {
	return &Buffer{handle: h, data: make([]byte, 4096)}
}

func main() {
	configPath := flag.String("config", "", "path to a recycler TOML config file (optional)")
	workers := flag.Int("workers", 8, "number of concurrent worker goroutines")
	iterations := flag.Int("iterations", 20000, "acquire/release iterations per worker")
	flag.Parse()

	if err := run(*configPath, *workers, *iterations); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string, workers, iterations int) error {
	opts, err := loadOptions(configPath)
	if err != nil {
		return fmt.Errorf("recyclerdemo: %w", err)
	}

	pool, err := recycler.New(newBuffer, opts...)
	if err != nil {
		return fmt.Errorf("recyclerdemo: constructing pool: %w", err)
	}

	done := completion.New[struct{}]()
	statsCtx, cancelStats := context.WithCancel(context.Background())
	defer cancelStats()
	go printStats(statsCtx, pool)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			runWorker(pool, worker, iterations)
		}(i)
	}
	wg.Wait()
	_ = done.SetSuccess(struct{}{})

	stats := pool.Stats()
	fmt.Fprintf(os.Stdout, "final: acquires=%d allocations=%d owner_recycles=%d foreign_recycles=%d ratio_drops=%d\n",
		stats.Acquires, stats.Allocations, stats.OwnerRecycles, stats.ForeignRecycles, stats.RatioDrops)
	return nil
}

// runWorker acquires buffers on its own goroutine and hands a fraction of
// them off to a sibling goroutine for cross-goroutine recycling, exercising
// both the owner fast path and the foreign-queue path in the same run.
func runWorker(pool *recycler.Pool[*Buffer], worker, iterations int) {
	handoff := make(chan *Buffer, 64)
	var handoffWG sync.WaitGroup
	handoffWG.Add(1)
	go func() {
		defer handoffWG.Done()
		for b := range handoff {
			b.Release()
		}
	}()

	rnd := rand.New(rand.NewSource(int64(worker) + 1))
	for i := 0; i < iterations; i++ {
		b, err := pool.Acquire()
		if err != nil {
			log.Fatalf("recyclerdemo: worker %d: %v", worker, err)
		}
		b.data[0] = byte(i)
		if rnd.Intn(4) == 0 {
			handoff <- b
			continue
		}
		b.Release()
	}
	close(handoff)
	handoffWG.Wait()
}

func printStats(ctx context.Context, pool *recycler.Pool[*Buffer]) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := pool.Stats()
			fmt.Fprintf(os.Stdout, "acquires=%d allocations=%d owner_recycles=%d foreign_recycles=%d live_foreign_queues=%d\n",
				s.Acquires, s.Allocations, s.OwnerRecycles, s.ForeignRecycles, s.LiveForeignQueues)
		}
	}
}

func loadOptions(configPath string) ([]recycler.Option, error) {
	if configPath == "" {
		return nil, nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg.Options()
}
