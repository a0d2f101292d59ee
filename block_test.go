package vector

import (
	"math"
	"runtime"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type testStruct struct {
	a int64
	b int32
	c int16
	d int8
}

func TestNewBlock(t *testing.T) {
	ia := NewInstrumentedAllocator(NewGoAllocator(), nil, nil)
	useAllocator(t, ia)

	tests := []struct {
		name     string
		capacity int
		allocs   int64
	}{
		{"empty", 0, 0},
		{"single", 1, 1},
		{"several", 16, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBlock[testStruct](tt.capacity)
			require.NoError(t, err)
			defer b.Free()
			if b.Cap() != tt.capacity {
				t.Errorf("NewBlock(%d) capacity = %d, want %d", tt.capacity, b.Cap(), tt.capacity)
			}
			if (b.Addr() != nil) != (tt.capacity > 0) {
				t.Errorf("NewBlock(%d) address = %v", tt.capacity, b.Addr())
			}
			if got := ia.Stats().Allocations; got != tt.allocs {
				t.Errorf("allocations = %d, want %d", got, tt.allocs)
			}
		})
	}
}

func TestBlockAllocationFailure(t *testing.T) {
	useAllocator(t, &flakyAllocator{next: NewGoAllocator(), fail: true})

	b, err := NewBlock[int](8)
	require.Nil(t, b)
	require.True(t, errors.Is(err, ErrOutOfMemory), "got %v", err)
}

func TestBlockOverflow(t *testing.T) {
	_, err := NewBlock[[1 << 20]byte](1 << 30)
	require.True(t, errors.Is(err, ErrOutOfMemory), "got %v", err)
}

func TestMaxAllocSize(t *testing.T) {
	require.LessOrEqual(t, uint64(MaxAllocSize), uint64(math.MaxInt))

	for _, a := range []Allocator{NewGoAllocator(), NewArenaAllocator(0)} {
		_, err := a.Allocate(LayoutOf[[2]byte](MaxAllocSize/2 + 1))
		require.True(t, errors.Is(err, ErrOutOfMemory), "%T: got %v", a, err)
	}
}

func TestBlockSlots(t *testing.T) {
	b, err := NewBlock[int64](4)
	require.NoError(t, err)
	defer b.Free()

	for i := 0; i < b.Cap(); i++ {
		*b.At(i) = int64(i * 2)
	}
	require.Equal(t, []int64{0, 2, 4, 6}, b.Slots(0, 4))
	require.Equal(t, []int64{4}, b.Slots(2, 3))
	require.Empty(t, b.Slots(4, 4))

	// Writes through a view land in the block.
	b.Slots(1, 2)[0] = 7
	require.Equal(t, int64(7), *b.At(1))

	addr := uintptr(unsafe.Pointer(b.At(1)))
	if addr%unsafe.Alignof(int64(0)) != 0 {
		t.Errorf("slot 1 not properly aligned: %x", addr)
	}
	require.Equal(t, uintptr(b.Addr())+unsafe.Sizeof(int64(0)), addr)
}

func TestBlockBounds(t *testing.T) {
	if !assertEnabled {
		t.Skip("assertions compiled out")
	}
	b, err := NewBlock[int](2)
	require.NoError(t, err)
	defer b.Free()

	require.Panics(t, func() { b.At(2) })
	require.Panics(t, func() { b.At(-1) })
	require.Panics(t, func() { b.Slots(0, 3) })
	require.Panics(t, func() { b.Slots(2, 1) })
	require.NotPanics(t, func() { b.Slots(2, 2) })
	require.Panics(t, func() { _, _ = NewBlock[int](-1) })
}

func TestBlockOwnership(t *testing.T) {
	ia := NewInstrumentedAllocator(NewGoAllocator(), nil, nil)
	useAllocator(t, ia)

	a, err := NewBlock[int](4)
	require.NoError(t, err)
	*a.At(0) = 42
	addr := a.Addr()

	b := a.Take()
	require.Equal(t, 0, a.Cap())
	require.Nil(t, a.Addr())
	require.Equal(t, 4, b.Cap())
	require.Equal(t, addr, b.Addr())
	require.Equal(t, 42, *b.At(0))

	c, err := NewBlock[int](2)
	require.NoError(t, err)
	c.MoveFrom(b)
	require.Equal(t, 4, c.Cap())
	require.Equal(t, 0, b.Cap())
	require.Equal(t, int64(1), ia.Stats().Frees, "MoveFrom must free the old region")

	c.MoveFrom(c)
	require.Equal(t, 4, c.Cap())

	c.Free()
	c.Free()
	a.Free()
	b.Free()
	stats := ia.Stats()
	require.Equal(t, int64(2), stats.Allocations)
	require.Equal(t, int64(2), stats.Frees)
	require.Equal(t, int64(0), stats.InUse)
}

func TestBlockSwap(t *testing.T) {
	a, err := NewBlock[int](1)
	require.NoError(t, err)
	defer a.Free()
	b, err := NewBlock[int](3)
	require.NoError(t, err)
	defer b.Free()
	*a.At(0), *b.At(2) = 1, 3

	a.Swap(b)
	require.Equal(t, 3, a.Cap())
	require.Equal(t, 1, b.Cap())
	require.Equal(t, 3, *a.At(2))
	require.Equal(t, 1, *b.At(0))
}

func TestBlockFreesToOwningAllocator(t *testing.T) {
	first := NewInstrumentedAllocator(NewGoAllocator(), nil, nil)
	useAllocator(t, first)
	b, err := NewBlock[int](4)
	require.NoError(t, err)

	second := NewInstrumentedAllocator(NewGoAllocator(), nil, nil)
	DefaultAllocator = second
	b.Free()
	require.Equal(t, int64(1), first.Stats().Frees)
	require.Equal(t, int64(0), second.Stats().Frees)
}

func TestBlockHoldsPointers(t *testing.T) {
	b, err := NewBlock[*testStruct](128)
	require.NoError(t, err)
	defer b.Free()

	for i := 0; i < b.Cap(); i++ {
		*b.At(i) = &testStruct{a: int64(i)}
	}
	runtime.GC()
	for i := 0; i < b.Cap(); i++ {
		require.Equal(t, int64(i), (*b.At(i)).a)
	}
}

func TestZeroSizedElements(t *testing.T) {
	b, err := NewBlock[struct{}](3)
	require.NoError(t, err)
	defer b.Free()
	require.Equal(t, 3, b.Cap())
	require.NotNil(t, b.Addr())

	a := New[struct{}]()
	defer a.Release()
	for i := 0; i < 5; i++ {
		require.NoError(t, a.PushBack(struct{}{}))
	}
	require.Equal(t, 5, a.Len())
}

func BenchmarkNewBlock(b *testing.B) {
	for i := 0; i < b.N; i++ {
		blk, _ := NewBlock[int64](64)
		blk.Free()
	}
}
