package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion_setSuccess(t *testing.T) {
	c := New[int]()
	assert.Equal(t, Uncompleted, c.State())

	require.NoError(t, c.SetSuccess(42))
	assert.Equal(t, Success, c.State())

	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestCompletion_setFailure(t *testing.T) {
	c := New[int]()
	boom := errors.New("boom")
	require.NoError(t, c.SetFailure(boom))
	assert.Equal(t, Failure, c.State())

	_, err := c.Get()
	assert.ErrorIs(t, err, boom)
}

func TestCompletion_doubleCompleteFails(t *testing.T) {
	c := New[int]()
	require.NoError(t, c.SetSuccess(1))
	assert.ErrorIs(t, c.SetSuccess(2), ErrAlreadyCompleted)
	assert.ErrorIs(t, c.SetFailure(errors.New("x")), ErrAlreadyCompleted)
	assert.ErrorIs(t, c.Cancel(), ErrAlreadyCompleted)
}

func TestCompletion_trySuccessTryFailure(t *testing.T) {
	c := New[string]()
	assert.True(t, c.TrySuccess("a"))
	assert.False(t, c.TrySuccess("b"))
	assert.False(t, c.TryFailure(errors.New("x")))
}

func TestCompletion_cancel(t *testing.T) {
	c := New[int]()
	require.NoError(t, c.Cancel())
	assert.Equal(t, Cancelled, c.State())

	_, err := c.Get()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompletion_uncancellable(t *testing.T) {
	c := New[int]()
	require.True(t, c.MarkUncancellable())
	assert.ErrorIs(t, c.Cancel(), ErrUncancellable)

	require.NoError(t, c.SetSuccess(5))
	assert.False(t, c.MarkUncancellable())
}

func TestCompletion_addListenerBeforeComplete(t *testing.T) {
	c := New[int]()
	var got State
	var gotVal int
	done := make(chan struct{})
	c.AddListener(func(state State, value int, err error) {
		got, gotVal = state, value
		close(done)
	})
	require.NoError(t, c.SetSuccess(99))
	<-done
	assert.Equal(t, Success, got)
	assert.Equal(t, 99, gotVal)
}

func TestCompletion_addListenerAfterComplete(t *testing.T) {
	c := New[int]()
	require.NoError(t, c.SetSuccess(7))

	var got int
	c.AddListener(func(state State, value int, err error) {
		got = value
	})
	assert.Equal(t, 7, got)
}

func TestCompletion_listenersRunInFIFOOrder(t *testing.T) {
	c := New[int]()
	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		c.AddListener(func(State, int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	require.NoError(t, c.SetSuccess(0))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestCompletion_panickingListenerDoesNotBlockOthers(t *testing.T) {
	c := New[int]()
	var secondRan bool
	c.AddListener(func(State, int, error) {
		panic("listener exploded")
	})
	c.AddListener(func(State, int, error) {
		secondRan = true
	})
	assert.NotPanics(t, func() {
		require.NoError(t, c.SetSuccess(1))
	})
	assert.True(t, secondRan)
}

func TestCompletion_getContextTimesOut(t *testing.T) {
	c := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.GetContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCompletion_concurrentWaiters(t *testing.T) {
	c := New[int]()
	const n = 50
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get()
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.SetSuccess(123))
	wg.Wait()
	for _, r := range results {
		assert.Equal(t, 123, r)
	}
}

func TestCompletion_tooManyWaiters(t *testing.T) {
	c := New[int]()
	c.waiters = make([]chan struct{}, maxWaiters)
	for i := range c.waiters {
		c.waiters[i] = make(chan struct{})
	}

	_, err := c.GetContext(context.Background())
	assert.ErrorIs(t, err, ErrTooManyWaiters)
}

func TestCompletion_removeListenerBeforeFire(t *testing.T) {
	c := New[int]()
	var ran bool
	h := c.AddListener(func(State, int, error) {
		ran = true
	})
	assert.True(t, c.RemoveListener(h))
	require.NoError(t, c.SetSuccess(1))
	assert.False(t, ran, "removed listener must not run on settlement")
}

func TestCompletion_removeListenerTwiceSecondIsNoop(t *testing.T) {
	c := New[int]()
	h := c.AddListener(func(State, int, error) {})
	assert.True(t, c.RemoveListener(h))
	assert.False(t, c.RemoveListener(h), "removing the same handle twice must not report success the second time")
}

func TestCompletion_removeListenerDoesNotDisturbOthers(t *testing.T) {
	c := New[int]()
	var order []int
	var mu sync.Mutex
	record := func(i int) Listener[int] {
		return func(State, int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}
	c.AddListener(record(0))
	toRemove := c.AddListener(record(1))
	c.AddListener(record(2))

	require.True(t, c.RemoveListener(toRemove))
	require.NoError(t, c.SetSuccess(0))
	assert.Equal(t, []int{0, 2}, order)
}

func TestCompletion_removeListenerZeroHandleIsNoop(t *testing.T) {
	c := New[int]()
	var h ListenerHandle
	assert.False(t, c.RemoveListener(h), "RemoveListener before any AddListener must be a silent no-op")
}

func TestCompletion_removeListenerAfterFireIsNoop(t *testing.T) {
	c := New[int]()
	h := c.AddListener(func(State, int, error) {})
	require.NoError(t, c.SetSuccess(1))
	assert.False(t, c.RemoveListener(h), "a handle for a listener that already fired must not be removable")
}

func TestCompletion_addListenerAfterCompleteReturnsZeroHandle(t *testing.T) {
	c := New[int]()
	require.NoError(t, c.SetSuccess(1))
	h := c.AddListener(func(State, int, error) {})
	assert.Equal(t, ListenerHandle{}, h)
}

func TestCompleted_helper(t *testing.T) {
	c := Completed("x")
	v, err := c.Get()
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
