// Package tlslot implements an indexed thread-local map: a process-wide,
// globally-minted slot index, paired with a per-goroutine, densely-grown
// array keyed by that index.
//
// Go has no native thread-local storage, so "per-thread" is realized as
// "per-goroutine", identified via goroutineid.Get(). Netty's FastThreadLocal
// keeps two tiers, one for threads it controls and one generic fallback;
// there's no way to get a faster path than an indexed slice behind a
// goroutine-id lookup in Go, so a single implementation serves both roles.
// See DESIGN.md for the full rationale.
package tlslot

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gorecycler/recycler/goroutineid"
	"github.com/gorecycler/recycler/internal/nextpow2"
)

// ErrSlotExhausted is returned by NextSlot when the process-wide slot
// counter has been exhausted.
var ErrSlotExhausted = errors.New("tlslot: slot index counter exhausted")

// Index identifies a slot, minted once per logical "owner" (typically once
// per Pool) via NextSlot. Indices are never reused.
type Index int

// minRecordLen is the minimum length a goroutine's slot array is grown to on
// first use.
const minRecordLen = 32

var slotCounter atomic.Int64

// NextSlot mints a new, process-wide unique, ascending slot index.
// It returns ErrSlotExhausted (and rolls the counter back) if minting would
// overflow into a negative index.
func NextSlot() (Index, error) {
	n := slotCounter.Add(1) - 1
	if n < 0 {
		slotCounter.Add(-1)
		return 0, ErrSlotExhausted
	}
	return Index(n), nil
}

// record is one goroutine's slot array. It is only ever read or written by
// the goroutine it belongs to (a single-writer discipline applied at the
// slot-map level): the sync.Map in Table only needs to synchronize the
// creation and removal of a goroutine's record, never concurrent access to
// the record's contents.
type record struct {
	values []any
	set    []bool
}

func (r *record) grow(idx Index) {
	n := nextpow2.Of(int(idx) + 1)
	if n < minRecordLen {
		n = minRecordLen
	}
	if n <= len(r.values) {
		return
	}
	values := make([]any, n)
	set := make([]bool, n)
	copy(values, r.values)
	copy(set, r.set)
	r.values = values
	r.set = set
}

// Table is a process-wide registry of per-goroutine slot arrays. The zero
// value is ready to use. A single Table is normally shared by every Pool in
// a process (see DefaultTable).
type Table struct {
	byGoroutine sync.Map // int64 (goroutine id) -> *record
}

// DefaultTable is the Table every Pool uses. Sharing a single Table lets
// every Pool's slots live in the
// same per-goroutine array, rather than each Pool paying for its own
// sync.Map entry per goroutine it touches.
var DefaultTable = &Table{}

func (t *Table) currentRecord(createIfMissing bool) (*record, bool) {
	id := goroutineid.Get()
	if v, ok := t.byGoroutine.Load(id); ok {
		return v.(*record), true
	}
	if !createIfMissing {
		return nil, false
	}
	r := &record{}
	actual, _ := t.byGoroutine.LoadOrStore(id, r)
	return actual.(*record), true
}

// Get returns the value stored at idx for the calling goroutine, and
// whether it has ever been set. An index that has never been Set on this
// goroutine (or on a goroutine that never touched idx at all) reports
// ok == false, representing "unset" without needing a reserved sentinel value.
func (t *Table) Get(idx Index) (value any, ok bool) {
	r, found := t.currentRecord(false)
	if !found || int(idx) >= len(r.values) {
		return nil, false
	}
	return r.values[idx], r.set[idx]
}

// Set stores value at idx for the calling goroutine, growing the
// goroutine's slot array (to the next power of two, minimum 32) if idx
// hasn't been reached yet.
func (t *Table) Set(idx Index, value any) {
	r, _ := t.currentRecord(true)
	r.grow(idx)
	r.values[idx] = value
	r.set[idx] = true
}

// Remove clears idx for the calling goroutine and returns the previous
// value, if any was set.
func (t *Table) Remove(idx Index) (previous any, ok bool) {
	r, found := t.currentRecord(false)
	if !found || int(idx) >= len(r.values) || !r.set[idx] {
		return nil, false
	}
	previous = r.values[idx]
	r.values[idx] = nil
	r.set[idx] = false
	return previous, true
}

// ClearAll drops every slot belonging to the calling goroutine, and forgets
// the goroutine entirely. This is the operation a goroutine (or whatever
// manages its lifecycle, e.g. a worker-pool wrapper) should call just before
// it exits, mirroring Netty's FastThreadLocal.removeAll() convention of
// running at the end of a pooled worker's task loop. Without it, a
// goroutine's slot array (and anything reachable through it, such as a
// pool's per-goroutine Stack) is retained by the Table forever: Go has no
// hook that fires on goroutine exit, so this is the only reclamation path
// for a goroutine's own slots (see DESIGN.md).
func (t *Table) ClearAll() {
	id := goroutineid.Get()
	t.byGoroutine.Delete(id)
}

// Len reports how many goroutines currently have a record in the table.
// Diagnostic only.
func (t *Table) Len() int {
	n := 0
	t.byGoroutine.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
