package vector

import (
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
)

// LimitedAllocator caps the bytes outstanding from the allocator it wraps.
// A request that would exceed the limit fails with ErrOutOfMemory and never
// reaches the wrapped allocator.
//
// LimitedAllocator is safe for concurrent use when the wrapped allocator is.
type LimitedAllocator struct {
	next  Allocator
	limit int64
	used  atomic.Int64
}

// NewLimitedAllocator returns an allocator that hands out at most limit bytes
// at a time from next.
func NewLimitedAllocator(next Allocator, limit int64) *LimitedAllocator {
	return &LimitedAllocator{next: next, limit: limit}
}

// Allocate reserves the layout's bytes from the budget and forwards the
// request. The reservation is returned if the wrapped allocator fails.
func (a *LimitedAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	if l.Len <= 0 {
		return nil, nil
	}
	size := int64(l.Size())
	if size < 0 {
		return nil, errors.Wrapf(ErrOutOfMemory, "allocate %s", l)
	}
	if used := a.used.Add(size); used > a.limit {
		a.used.Sub(size)
		return nil, errors.Wrapf(ErrOutOfMemory, "allocate %s: %d bytes in use, limit %d", l, used-size, a.limit)
	}
	p, err := a.next.Allocate(l)
	if err != nil {
		a.used.Sub(size)
		return nil, err
	}
	return p, nil
}

// Free returns the region to the wrapped allocator and its bytes to the
// budget.
func (a *LimitedAllocator) Free(p unsafe.Pointer, l Layout) {
	if p == nil {
		return
	}
	a.next.Free(p, l)
	a.used.Sub(int64(l.Size()))
}

// InUse returns the bytes currently handed out.
func (a *LimitedAllocator) InUse() int64 {
	return a.used.Load()
}

// Limit returns the configured byte limit.
func (a *LimitedAllocator) Limit() int64 {
	return a.limit
}

// Unwrap returns the wrapped allocator.
func (a *LimitedAllocator) Unwrap() Allocator {
	return a.next
}
