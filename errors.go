package vector

import "github.com/pkg/errors"

var (
	// ErrOutOfMemory is reported when an allocator cannot satisfy a request.
	ErrOutOfMemory = errors.New("vector: out of memory")
	// ErrUnsupportedLayout is reported by allocators that cannot hold the
	// requested element type.
	ErrUnsupportedLayout = errors.New("vector: unsupported layout")
	// ErrInvalidTraits is reported when element traits cannot relocate values.
	ErrInvalidTraits = errors.New("vector: invalid traits")
)
