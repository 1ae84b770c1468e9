package tlslot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSlot_monotonic(t *testing.T) {
	a, err := NextSlot()
	require.NoError(t, err)
	b, err := NextSlot()
	require.NoError(t, err)
	assert.Less(t, a, b)
}

func TestNextSlot_concurrentUnique(t *testing.T) {
	const n = 500
	seen := make(chan Index, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			idx, err := NextSlot()
			require.NoError(t, err)
			seen <- idx
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[Index]struct{}, n)
	for idx := range seen {
		_, dup := unique[idx]
		assert.False(t, dup, "duplicate slot index minted: %d", idx)
		unique[idx] = struct{}{}
	}
	assert.Len(t, unique, n)
}

func TestTable_getUnsetByDefault(t *testing.T) {
	tbl := &Table{}
	idx, err := NextSlot()
	require.NoError(t, err)

	v, ok := tbl.Get(idx)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestTable_setThenGet(t *testing.T) {
	tbl := &Table{}
	idx, err := NextSlot()
	require.NoError(t, err)

	tbl.Set(idx, "hello")
	v, ok := tbl.Get(idx)
	require.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestTable_setNilIsDistinctFromUnset(t *testing.T) {
	tbl := &Table{}
	unsetIdx, err := NextSlot()
	require.NoError(t, err)
	nilIdx, err := NextSlot()
	require.NoError(t, err)

	tbl.Set(nilIdx, nil)

	v, ok := tbl.Get(unsetIdx)
	assert.False(t, ok)
	assert.Nil(t, v)

	v, ok = tbl.Get(nilIdx)
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestTable_remove(t *testing.T) {
	tbl := &Table{}
	idx, err := NextSlot()
	require.NoError(t, err)

	tbl.Set(idx, 42)
	prev, ok := tbl.Remove(idx)
	require.True(t, ok)
	assert.Equal(t, 42, prev)

	v, ok := tbl.Get(idx)
	assert.False(t, ok)
	assert.Nil(t, v)

	_, ok = tbl.Remove(idx)
	assert.False(t, ok, "removing an already-unset slot reports not-found")
}

func TestTable_growsPastInitialLength(t *testing.T) {
	tbl := &Table{}
	var last Index
	for i := 0; i < 100; i++ {
		idx, err := NextSlot()
		require.NoError(t, err)
		last = idx
	}
	tbl.Set(last, "far")
	v, ok := tbl.Get(last)
	require.True(t, ok)
	assert.Equal(t, "far", v)
}

func TestTable_isolatedPerGoroutine(t *testing.T) {
	tbl := &Table{}
	idx, err := NextSlot()
	require.NoError(t, err)
	tbl.Set(idx, "main")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, ok := tbl.Get(idx)
		assert.False(t, ok, "a slot set on one goroutine must not be visible on another")
		assert.Nil(t, v)

		tbl.Set(idx, "other")
		v, ok = tbl.Get(idx)
		require.True(t, ok)
		assert.Equal(t, "other", v)
	}()
	wg.Wait()

	v, ok := tbl.Get(idx)
	require.True(t, ok)
	assert.Equal(t, "main", v, "the other goroutine's write must not leak back")
}

func TestTable_clearAllRemovesGoroutineRecord(t *testing.T) {
	tbl := &Table{}
	idx, err := NextSlot()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tbl.Set(idx, "gone-soon")
		assert.Equal(t, 1, tbl.Len())
		tbl.ClearAll()
		assert.Equal(t, 0, tbl.Len())

		v, ok := tbl.Get(idx)
		assert.False(t, ok)
		assert.Nil(t, v)
	}()
	wg.Wait()
}

func TestDefaultTable_isUsable(t *testing.T) {
	idx, err := NextSlot()
	require.NoError(t, err)
	DefaultTable.Set(idx, "shared")
	v, ok := DefaultTable.Get(idx)
	require.True(t, ok)
	assert.Equal(t, "shared", v)
	DefaultTable.ClearAll()
}
