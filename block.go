package vector

import (
	"unsafe"

	"github.com/pkg/errors"
)

// noCopy makes go vet's copylocks check flag copies of the enclosing struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Block owns a contiguous region of raw slots for values of T.
// It never constructs or destroys a T: slots hold bytes, not objects, until
// the owner constructs into them. A Block must not be copied; ownership moves
// through Take, MoveFrom or Swap.
//
// Invariant: the address is non-nil if and only if Cap() > 0.
type Block[T any] struct {
	_     noCopy
	buf   []T
	alloc Allocator
}

// NewBlock allocates raw storage for capacity values of T from
// DefaultAllocator. A zero capacity makes no request.
func NewBlock[T any](capacity int) (*Block[T], error) {
	b := &Block[T]{}
	if err := b.init(capacity); err != nil {
		return nil, err
	}
	return b, nil
}

// init allocates into an empty block. On failure the block stays empty.
func (b *Block[T]) init(capacity int) error {
	assert(capacity >= 0, "negative block capacity %d", capacity)
	assert(b.buf == nil, "init of a non-empty block")
	if capacity == 0 {
		return nil
	}
	alloc := DefaultAllocator
	p, err := alloc.Allocate(LayoutOf[T](capacity))
	if err != nil {
		return errors.Wrapf(err, "block of %d slots", capacity)
	}
	if p == nil {
		return errors.Wrapf(ErrOutOfMemory, "block of %d slots: allocator returned nil", capacity)
	}
	b.buf = unsafe.Slice((*T)(p), capacity)
	b.alloc = alloc
	return nil
}

// Cap returns the number of slots in the block.
func (b *Block[T]) Cap() int {
	return len(b.buf)
}

// Addr returns the base address of the region, nil for an empty block.
func (b *Block[T]) Addr() unsafe.Pointer {
	if b.buf == nil {
		return nil
	}
	return unsafe.Pointer(unsafe.SliceData(b.buf))
}

// At returns the slot at index i. i must be in [0, Cap()).
func (b *Block[T]) At(i int) *T {
	assert(i >= 0 && i < len(b.buf), "slot %d out of range [0, %d)", i, len(b.buf))
	return &b.buf[i]
}

// Slots returns the slots in [from, to). from == to == Cap() is the end
// address and yields an empty view.
func (b *Block[T]) Slots(from, to int) []T {
	assert(0 <= from && from <= to && to <= len(b.buf),
		"slots [%d, %d) out of range [0, %d]", from, to, len(b.buf))
	return b.buf[from:to:to]
}

// Swap exchanges the regions of two blocks without touching their contents.
func (b *Block[T]) Swap(other *Block[T]) {
	b.buf, other.buf = other.buf, b.buf
	b.alloc, other.alloc = other.alloc, b.alloc
}

// Take moves the region into a new Block and leaves b empty.
func (b *Block[T]) Take() *Block[T] {
	nb := &Block[T]{}
	nb.Swap(b)
	return nb
}

// MoveFrom releases b's region and adopts src's. src is left empty.
// Moving a block onto itself does nothing.
func (b *Block[T]) MoveFrom(src *Block[T]) {
	if b == src {
		return
	}
	b.Free()
	b.Swap(src)
}

// Free returns the region to the allocator it came from. The block is empty
// afterwards, so freeing again is a no-op.
func (b *Block[T]) Free() {
	if b.buf == nil {
		return
	}
	p, n, alloc := b.Addr(), len(b.buf), b.alloc
	b.buf, b.alloc = nil, nil
	alloc.Free(p, LayoutOf[T](n))
}
