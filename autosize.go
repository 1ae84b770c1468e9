package recycler

import "github.com/pbnjay/memory"

// autoSizedBudgetFraction is the share of total system memory a pool's
// default per-thread capacity is allowed to assume it can use; the capacity
// is that budget divided by autoSizedAssumedObjectBytes per object, clamped
// to [16, 1<<20].
const (
	autoSizedBudgetFraction     = 64 // 1/64th of total system memory
	autoSizedAssumedObjectBytes = 512
)

// autoSizedCapacity derives a maxCapacityPerThread from total system memory,
// for WithAutoSizedCapacity. It falls back to defaultMaxCapacityPerThread
// when system memory can't be determined (memory.TotalMemory returns 0 in
// that case).
func autoSizedCapacity() int {
	total := memory.TotalMemory()
	if total == 0 {
		return defaultMaxCapacityPerThread
	}
	budget := total / autoSizedBudgetFraction
	n := int(budget / autoSizedAssumedObjectBytes)
	if n < 16 {
		return 16
	}
	if n > 1<<20 {
		return 1 << 20
	}
	return n
}
