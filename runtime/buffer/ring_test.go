package buffer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRing_OverwriteDropsOldest(t *testing.T) {
	r := New[int](Options{Capacity: 4, Policy: Overwrite})

	for i := 0; i < 6; i++ {
		require.True(t, r.Write(i))
	}
	require.Equal(t, uint64(2), r.Dropped())

	got := r.ReadBatch(10)
	require.Equal(t, []int{2, 3, 4, 5}, got)
}

func TestRing_BlockTimesOutWhenFull(t *testing.T) {
	r := New[int](Options{Capacity: 2, Policy: Block, BlockTimeout: 30 * time.Millisecond})
	require.True(t, r.Write(1))
	require.True(t, r.Write(2))

	start := time.Now()
	ok := r.Write(3)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRing_BlockUnblocksOnRead(t *testing.T) {
	r := New[int](Options{Capacity: 1, Policy: Block, BlockTimeout: time.Second})
	require.True(t, r.Write(1))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.True(t, r.Write(2))
	}()

	time.Sleep(10 * time.Millisecond)
	v, ok := r.Read()
	require.True(t, ok)
	require.Equal(t, 1, v)

	wg.Wait()
	v2, ok := r.Read()
	require.True(t, ok)
	require.Equal(t, 2, v2)
}

func TestRing_HighWaterMarkFiresOnce(t *testing.T) {
	var fired int
	r := New[int](Options{
		Capacity:      8,
		Policy:        Overwrite,
		HighWaterMark: 4,
		OnHighWater:   func() { fired++ },
	})

	for i := 0; i < 4; i++ {
		r.Write(i)
	}
	require.Equal(t, 1, fired)

	// Stays above the mark: no repeat callback.
	r.Write(4)
	require.Equal(t, 1, fired)

	// Drop below and cross again: callback fires a second time.
	r.ReadBatch(3)
	r.Write(5)
	r.Write(6)
	require.Equal(t, 2, fired)
}

func TestRing_ReadBatchRespectsMax(t *testing.T) {
	r := New[int](Options{Capacity: 8, Policy: Overwrite})
	for i := 0; i < 5; i++ {
		r.Write(i)
	}
	batch := r.ReadBatch(3)
	require.Equal(t, []int{0, 1, 2}, batch)
	require.Equal(t, 2, r.Len())
}

func TestRing_ConcurrentWritesPreserveCount(t *testing.T) {
	r := New[int](Options{Capacity: 1024, Policy: Overwrite})
	var wg sync.WaitGroup
	producers := 16
	perProducer := 50
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				r.Write(i)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, producers*perProducer, r.Len())
}
