package vector

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// DefaultChunkSize is the default chunk size for new arena allocators (64 KiB).
const DefaultChunkSize = 1 << 16

// chunk represents a single memory chunk within an arena.
type chunk struct {
	buf    []byte  // backing memory
	offset uintptr // allocation offset within buf
}

// ArenaAllocator is a chunked bump allocator. Regions are carved out of
// large byte chunks, so only element types without pointers can be served;
// the garbage collector does not scan the chunks. Free is a no-op: memory is
// reclaimed in bulk by Reset or Release.
//
// ArenaAllocator is not goroutine-safe. Wrap it with NewSafeAllocator before
// installing it as DefaultAllocator.
type ArenaAllocator struct {
	chunks       []chunk
	chunkSize    int
	currentChunk *chunk
}

// NewArenaAllocator creates an arena with the specified chunk size.
// If chunkSize <= 0, DefaultChunkSize is used.
func NewArenaAllocator(chunkSize int) *ArenaAllocator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	a := &ArenaAllocator{chunkSize: chunkSize}
	a.grow(chunkSize)
	return a
}

// Allocate returns a region for the layout carved from the current chunk.
func (a *ArenaAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	a.panicIfReleased()
	if l.Len <= 0 {
		return nil, nil
	}
	if hasPointers(l.Type) {
		return nil, errors.Wrapf(ErrUnsupportedLayout, "arena cannot hold pointers: %s", l)
	}
	size := l.Size()
	if size < 0 || size > MaxAllocSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "arena allocate %s", l)
	}
	if size == 0 {
		// Zero-sized elements need an address, not bytes.
		size = 1
	}
	align := uintptr(l.Align())

	// Fast path: use cached current chunk
	if c := a.currentChunk; c != nil {
		if p, ok := c.carve(size, align); ok {
			return p, nil
		}
	}

	// Slow path: need new chunk, padded so the region can be aligned.
	a.grow(size + int(align))
	p, _ := a.currentChunk.carve(size, align)
	return p, nil
}

// Free is a no-op; arena memory is reclaimed by Reset or Release.
func (a *ArenaAllocator) Free(unsafe.Pointer, Layout) {}

// carve takes size bytes aligned to align from the chunk if they fit.
func (c *chunk) carve(size int, align uintptr) (unsafe.Pointer, bool) {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(c.buf)))
	off := alignUp(base+c.offset, align) - base
	if off+uintptr(size) > uintptr(len(c.buf)) {
		return nil, false
	}
	c.offset = off + uintptr(size)
	return unsafe.Pointer(&c.buf[off]), true
}

// Reset resets allocation offsets to zero but keeps allocated chunks for reuse.
// Every region handed out before is invalid afterwards.
func (a *ArenaAllocator) Reset() {
	a.panicIfReleased()
	for i := range a.chunks {
		a.chunks[i].offset = 0
	}
	// Reset cached chunk to first chunk
	if len(a.chunks) > 0 {
		a.currentChunk = &a.chunks[0]
	}
}

// Release drops all chunks and makes the arena unusable.
// Any subsequent operations will panic.
func (a *ArenaAllocator) Release() {
	a.chunks = nil
	a.currentChunk = nil
}

// grow appends a new chunk of at least min bytes.
func (a *ArenaAllocator) grow(min int) {
	size := a.chunkSize
	if min > size {
		size = min
	}
	buf := make([]byte, size)
	a.chunks = append(a.chunks, chunk{buf: buf, offset: 0})
	a.currentChunk = &a.chunks[len(a.chunks)-1]
}

// panicIfReleased panics if the arena has been released.
func (a *ArenaAllocator) panicIfReleased() {
	if a.chunks == nil {
		panic("vector: arena use after Release()")
	}
}

// alignUp rounds off up to a multiple of align, which must be a power of two.
func alignUp(off, align uintptr) uintptr {
	mask := align - 1
	return (off + mask) & ^mask
}

// hasPointers reports whether values of t hold pointers the garbage collector
// must see.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
