package vector

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// MaxAllocSize is the largest single request GoAllocator accepts: 1 TiB, or
// math.MaxInt where int is narrower.
const MaxAllocSize = min(1<<40, math.MaxInt)

// Layout describes a request for Len consecutive slots of one element type.
type Layout struct {
	Type reflect.Type
	Len  int
}

// LayoutOf returns the layout of n slots of T.
func LayoutOf[T any](n int) Layout {
	return Layout{Type: reflect.TypeFor[T](), Len: n}
}

// Size returns the byte size of the layout, or -1 if it overflows int.
func (l Layout) Size() int {
	elem := int(l.Type.Size())
	if elem == 0 || l.Len == 0 {
		return 0
	}
	if l.Len > math.MaxInt/elem {
		return -1
	}
	return elem * l.Len
}

// Align returns the alignment the region must satisfy.
func (l Layout) Align() int {
	return l.Type.Align()
}

// String formats the layout as an array type, e.g. "[4]int64".
func (l Layout) String() string {
	return fmt.Sprintf("[%d]%s", l.Len, l.Type)
}

// Allocator hands out raw regions and takes them back. A region returned by
// Allocate is sized and aligned for the layout but holds no live values.
// Free must accept a nil pointer as a no-op.
type Allocator interface {
	Allocate(l Layout) (unsafe.Pointer, error)
	Free(p unsafe.Pointer, l Layout)
}

// wrapper is implemented by allocators that forward to another one.
type wrapper interface {
	Unwrap() Allocator
}

// ArenaOf returns the shared arena at the bottom of an allocator chain built
// from wrappers in this package, such as the one NewAllocator returns.
func ArenaOf(a Allocator) (*SafeAllocator, bool) {
	for a != nil {
		if s, ok := a.(*SafeAllocator); ok {
			if _, isArena := s.a.(*ArenaAllocator); isArena {
				return s, true
			}
			return nil, false
		}
		w, ok := a.(wrapper)
		if !ok {
			break
		}
		a = w.Unwrap()
	}
	return nil, false
}

// DefaultAllocator is the process-wide allocator every Block draws from.
// Replace it during process setup, before any Block is created.
var DefaultAllocator Allocator = NewGoAllocator()

// GoAllocator allocates through the Go runtime. Regions are typed by the
// layout's element type so the garbage collector scans the pointers that
// later get stored in them. Free only drops the reference.
//
// GoAllocator is safe to use from multiple goroutines.
type GoAllocator struct{}

// NewGoAllocator returns an allocator backed by the Go runtime.
func NewGoAllocator() *GoAllocator { return &GoAllocator{} }

// Allocate returns a zeroed region typed as l.Type. A layout with no slots
// yields nil.
func (a *GoAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	if l.Len <= 0 {
		return nil, nil
	}
	size := l.Size()
	if size < 0 || size > MaxAllocSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocate %s", l)
	}
	s := reflect.MakeSlice(reflect.SliceOf(l.Type), l.Len, l.Len)
	return s.UnsafePointer(), nil
}

// Free drops nothing; the garbage collector reclaims the region once no
// block refers to it.
func (a *GoAllocator) Free(unsafe.Pointer, Layout) {}
