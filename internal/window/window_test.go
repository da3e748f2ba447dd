package window

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_PushBelowCapacity(t *testing.T) {
	w := New[float64](4)
	w.Push(1)
	w.Push(2)

	assert.Equal(t, []float64{1, 2}, w.Snapshot())
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, 4, w.Cap())
	assert.False(t, w.Full())
}

func TestWindow_EvictsOldest(t *testing.T) {
	for n := 1; n <= 8; n++ {
		w := New[int](n)
		for i := 0; i <= n; i++ {
			w.Push(i)
		}

		got := w.Snapshot()
		require.Len(t, got, n, "capacity %d", n)
		for i, v := range got {
			// value 0 was evicted, 1..n remain in arrival order
			assert.Equal(t, i+1, v, "capacity %d index %d", n, i)
		}
		assert.True(t, w.Full())
	}
}

func TestWindow_WrapsManyTimes(t *testing.T) {
	w := New[int](3)
	for i := 0; i < 100; i++ {
		w.Push(i)
	}
	assert.Equal(t, []int{97, 98, 99}, w.Snapshot())
}

func TestWindow_Clear(t *testing.T) {
	w := New[float64](3)
	for i := 0; i < 5; i++ {
		w.Push(float64(i))
	}

	w.Clear()
	assert.Empty(t, w.Snapshot())
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 3, w.Cap())

	w.Push(42)
	assert.Equal(t, []float64{42}, w.Snapshot())
}

func TestWindow_ClearEmpty(t *testing.T) {
	w := New[float64](2)
	w.Clear()
	assert.Empty(t, w.Snapshot())
}

func TestWindow_SnapshotIsCopy(t *testing.T) {
	w := New[int](3)
	w.Push(1)
	snap := w.Snapshot()
	snap[0] = 99

	assert.Equal(t, []int{1}, w.Snapshot())
}

func TestWindow_InvalidCapacity(t *testing.T) {
	w := New[int](0)
	assert.Equal(t, 1, w.Cap())

	w.Push(1)
	w.Push(2)
	assert.Equal(t, []int{2}, w.Snapshot())
}

func TestWindow_ConcurrentPushSnapshot(t *testing.T) {
	const n = 50
	w := New[int](n)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			w.Push(i)
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := w.Snapshot()
			assert.LessOrEqual(t, len(snap), n)
			// a consistent snapshot is strictly increasing
			for j := 1; j < len(snap); j++ {
				if snap[j] != snap[j-1]+1 {
					t.Errorf("torn snapshot at %d: %v", j, snap)
					return
				}
			}
			if i%100 == 0 {
				w.Clear()
			}
		}
	}()

	wg.Wait()
}
