package vector

import (
	"sync"
	"unsafe"
)

// SafeAllocator is a mutex-protected wrapper around an Allocator for
// concurrent access. It is meant for allocators such as ArenaAllocator that
// are not goroutine-safe on their own.
type SafeAllocator struct {
	mu sync.Mutex
	a  Allocator
}

// NewSafeAllocator wraps a so that every call is serialized.
func NewSafeAllocator(a Allocator) *SafeAllocator {
	return &SafeAllocator{a: a}
}

// Allocate thread-safely requests a region from the wrapped allocator.
func (s *SafeAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.a.Allocate(l)
}

// Free thread-safely returns a region to the wrapped allocator.
func (s *SafeAllocator) Free(p unsafe.Pointer, l Layout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.a.Free(p, l)
}

// Reset thread-safely resets the wrapped arena, if it is one.
func (s *SafeAllocator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.a.(*ArenaAllocator); ok {
		a.Reset()
	}
}

// Unwrap returns the wrapped allocator.
func (s *SafeAllocator) Unwrap() Allocator {
	return s.a
}
