package vector

import (
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSafeAllocatorConcurrentAccess(t *testing.T) {
	s := NewSafeAllocator(NewArenaAllocator(1024))
	const numGoroutines = 10
	const allocsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < allocsPerGoroutine; j++ {
				p, err := s.Allocate(LayoutOf[int64](1))
				if err != nil || p == nil {
					t.Errorf("Allocate failed: %v", err)
					return
				}
				*(*int64)(p) = int64(j)
				s.Free(p, LayoutOf[int64](1))
				runtime.Gosched()
			}
		}()
	}

	wg.Wait()

	m, ok := s.Metrics()
	require.True(t, ok)
	expected := numGoroutines * allocsPerGoroutine * 8
	if m.SizeInUse != expected {
		t.Errorf("SizeInUse = %d, want %d", m.SizeInUse, expected)
	}
}

func TestSafeAllocatorReset(t *testing.T) {
	s := NewSafeAllocator(NewArenaAllocator(1024))
	_, err := s.Allocate(LayoutOf[int32](10))
	require.NoError(t, err)

	s.Reset()
	m, ok := s.Metrics()
	require.True(t, ok)
	require.Equal(t, 0, m.SizeInUse)

	_, ok = NewSafeAllocator(NewGoAllocator()).Metrics()
	require.False(t, ok)
}

func TestSafeAllocatorSharedByArrays(t *testing.T) {
	s := NewSafeAllocator(NewArenaAllocator(0))
	useAllocator(t, s)

	var wg sync.WaitGroup
	results := make([]int64, 8)
	for w := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := New[int64]()
			defer a.Release()
			for i := int64(1); i <= 50; i++ {
				if err := a.PushBack(i); err != nil {
					t.Errorf("PushBack: %v", err)
					return
				}
			}
			for _, v := range a.Values() {
				results[w] += v
			}
		}()
	}
	wg.Wait()

	for w, sum := range results {
		require.Equal(t, int64(1275), sum, "worker %d", w)
	}
}
