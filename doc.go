// Package vector implements a growable array over raw, uninitialized storage.
//
// # Overview
//
// The package is split in two layers:
//
//   - Block[T] owns a contiguous region of raw slots for values of T. It
//     allocates and frees the region and gives indexed access to the slots,
//     but never constructs or destroys a value.
//   - Array[T] owns one Block[T] and a length. It constructs, copies, moves
//     and destroys values inside the block, grows it by doubling, and
//     implements append, insert, erase, resize and reserve.
//
// Slots [0, Len()) of an array hold live values; slots [Len(), Cap()) are
// raw. This holds after every operation, including failed ones.
//
// # Basic Usage
//
//	a := vector.New[int]()
//	defer a.Release()
//
//	_ = a.PushBack(1)
//	_ = a.PushBack(3)
//	_, _ = a.Insert(1, 2) // [1 2 3]
//	_, _ = a.Erase(0)     // [2 3]
//	a.PopBack()           // [2]
//
// # Element Lifetime
//
// Values are managed through Traits. By default they are derived from the
// methods of *T: Initializer, Copier, Mover, NoFailMover, NonCopyable and
// Destroyer. A type with none of them is a plain value: the zero value is its
// default, assignment copies it, and moving it cannot fail.
//
// When the block must grow, existing values are moved into the new block if
// moving cannot fail. Otherwise they are copied, so that a failed copy
// leaves the original block intact. Types that can neither be moved safely
// nor copied are moved anyway, with only basic safety.
//
// # Failure Safety
//
// Hooks report failure with an error. EmplaceBack, PushBack, Reserve and
// every growing path leave the array unchanged when they fail. In-place
// Emplace and Erase only promise that nothing leaks or is destroyed twice.
// Out-of-range indices and positions are programmer errors and panic; build
// with the vector_noassert tag to drop the checks.
//
// # Allocators
//
// Every Block draws from DefaultAllocator, set once during process setup.
// GoAllocator is the default. LimitedAllocator enforces a byte budget,
// ArenaAllocator serves pointer-free element types from large chunks,
// SafeAllocator serializes access, and InstrumentedAllocator records
// Prometheus metrics. NewAllocator builds a chain from a Config.
package vector
