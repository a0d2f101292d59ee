package vector

import (
	"iter"
	"math"

	"github.com/pkg/errors"
)

// Array is a growable sequence of T built on a raw Block. Slots [0, Len())
// hold live values; slots [Len(), Cap()) are raw. The zero value is an empty
// array ready to use. An Array must not be copied; use Clone, Take or Swap.
//
// Array is not safe for concurrent use.
type Array[T any] struct {
	data Block[T]
	size int
	tr   *Traits[T]
}

// New returns an empty array with no storage.
func New[T any]() *Array[T] {
	return &Array[T]{}
}

// NewWithTraits returns an empty array whose values are managed by tr
// instead of the traits derived from T's methods.
func NewWithTraits[T any](tr Traits[T]) (*Array[T], error) {
	if err := tr.validate(); err != nil {
		return nil, err
	}
	tr.fill()
	return &Array[T]{tr: &tr}, nil
}

// WithSize returns an array of n default-constructed values in a block of
// exactly n slots.
func WithSize[T any](n int) (*Array[T], error) {
	a := New[T]()
	if err := a.data.init(n); err != nil {
		return nil, err
	}
	if err := a.constructRange(a.data.Slots(0, n)); err != nil {
		a.data.Free()
		return nil, err
	}
	a.size = n
	return a, nil
}

func (a *Array[T]) traits() *Traits[T] {
	if a.tr == nil {
		a.tr = TraitsOf[T]()
	}
	return a.tr
}

// Len returns the number of live values.
func (a *Array[T]) Len() int {
	return a.size
}

// Cap returns the number of slots in the underlying block.
func (a *Array[T]) Cap() int {
	return a.data.Cap()
}

// At returns the value at index i. i must be in [0, Len()).
func (a *Array[T]) At(i int) *T {
	assert(i >= 0 && i < a.size, "index %d out of range [0, %d)", i, a.size)
	return a.data.At(i)
}

// Back returns the last value. The array must not be empty.
func (a *Array[T]) Back() *T {
	return a.At(a.size - 1)
}

// Values returns a view of the live values. The view is invalidated by any
// operation that changes the length or capacity.
func (a *Array[T]) Values() []T {
	return a.data.Slots(0, a.size)
}

// All iterates over the live values in order.
func (a *Array[T]) All() iter.Seq2[int, *T] {
	return func(yield func(int, *T) bool) {
		for i := 0; i < a.size; i++ {
			if !yield(i, a.data.At(i)) {
				return
			}
		}
	}
}

// Reserve grows the block to exactly n slots when n exceeds Cap(). On failure
// the array is unchanged.
func (a *Array[T]) Reserve(n int) error {
	if n <= a.data.Cap() {
		return nil
	}
	return a.regrow(n, 0, nil)
}

// Resize destroys values past n, or appends default-constructed values up to
// n. A failed construction leaves the existing values in place.
func (a *Array[T]) Resize(n int) error {
	assert(n >= 0, "negative size %d", n)
	switch {
	case n < a.size:
		destroyRange(a.traits(), a.data.Slots(n, a.size))
		a.size = n
	case n > a.size:
		if err := a.Reserve(n); err != nil {
			return err
		}
		if err := a.constructRange(a.data.Slots(a.size, n)); err != nil {
			return errors.Wrapf(err, "resize to %d", n)
		}
		a.size = n
	}
	return nil
}

// Clone returns a deep copy in a block of exactly Len() slots.
func (a *Array[T]) Clone() (*Array[T], error) {
	c := &Array[T]{tr: a.traits()}
	if err := c.copyAll(a); err != nil {
		return nil, err
	}
	return c, nil
}

// CopyFrom replaces the contents of a with copies of src's values, reusing
// a's block when it is large enough.
func (a *Array[T]) CopyFrom(src *Array[T]) error {
	if a == src {
		return nil
	}
	tr := a.traits()
	assert(tr.Copy != nil, "copy of a non-copyable element type")
	if src.size > a.data.Cap() {
		tmp := &Array[T]{tr: tr}
		if err := tmp.copyAll(src); err != nil {
			return err
		}
		a.data.Swap(&tmp.data)
		a.size, tmp.size = tmp.size, a.size
		tmp.Release()
		return nil
	}
	common := min(a.size, src.size)
	for i := 0; i < common; i++ {
		if err := tr.CopyAssign(a.data.At(i), src.data.At(i)); err != nil {
			return errors.Wrapf(err, "copy assign element %d", i)
		}
	}
	if src.size < a.size {
		destroyRange(tr, a.data.Slots(src.size, a.size))
	} else if err := buildRange(tr, tr.Copy, a.data.Slots(a.size, src.size), src.data.Slots(a.size, src.size)); err != nil {
		return err
	}
	a.size = src.size
	return nil
}

// copyAll fills the empty array a with copies of src's values.
func (a *Array[T]) copyAll(src *Array[T]) error {
	tr := a.traits()
	assert(tr.Copy != nil, "copy of a non-copyable element type")
	if err := a.data.init(src.size); err != nil {
		return err
	}
	if err := buildRange(tr, tr.Copy, a.data.Slots(0, src.size), src.Values()); err != nil {
		a.data.Free()
		return err
	}
	a.size = src.size
	return nil
}

// Take moves the contents into a new array and leaves a empty with no
// storage.
func (a *Array[T]) Take() *Array[T] {
	b := &Array[T]{tr: a.tr}
	b.data.Swap(&a.data)
	b.size, a.size = a.size, 0
	return b
}

// MoveFrom releases a's contents and adopts src's. src is left empty with no
// storage. Moving an array onto itself does nothing.
func (a *Array[T]) MoveFrom(src *Array[T]) {
	if a == src {
		return
	}
	a.Release()
	a.data.Swap(&src.data)
	a.size, src.size = src.size, 0
	a.tr = src.tr
}

// Swap exchanges the contents of two arrays in constant time.
func (a *Array[T]) Swap(other *Array[T]) {
	a.data.Swap(&other.data)
	a.size, other.size = other.size, a.size
	a.tr, other.tr = other.tr, a.tr
}

// Release destroys every live value and frees the block. The array is empty
// and usable afterwards.
func (a *Array[T]) Release() {
	destroyRange(a.traits(), a.data.Slots(0, a.size))
	a.size = 0
	a.data.Free()
}

// grownCap returns the capacity used when an append or insert overflows.
func (a *Array[T]) grownCap() (int, error) {
	c := a.data.Cap()
	if c == 0 {
		return 1, nil
	}
	if c > math.MaxInt/2 {
		return 0, errors.Wrapf(ErrOutOfMemory, "grow beyond %d slots", c)
	}
	return 2 * c, nil
}

// regrow moves the live values into a new block of n slots. When build is
// not nil, a new value is constructed first at index pos of the new block
// and the old values are placed on either side of it. Nothing in the old
// block is touched until the new value exists, so a failure leaves the array
// as it was.
func (a *Array[T]) regrow(n, pos int, build func(*T) error) error {
	var nb Block[T]
	if err := nb.init(n); err != nil {
		return err
	}
	tr := a.traits()
	old := a.data.Slots(0, a.size)

	if build == nil {
		if err := a.transfer(nb.Slots(0, a.size), old); err != nil {
			nb.Free()
			return err
		}
	} else {
		slot := nb.At(pos)
		if err := build(slot); err != nil {
			clear(nb.Slots(pos, pos+1))
			nb.Free()
			return err
		}
		if err := a.transfer(nb.Slots(0, pos), old[:pos]); err != nil {
			tr.Destroy(slot)
			nb.Free()
			return err
		}
		if err := a.transfer(nb.Slots(pos+1, a.size+1), old[pos:]); err != nil {
			destroyRange(tr, nb.Slots(0, pos))
			tr.Destroy(slot)
			nb.Free()
			return err
		}
	}

	destroyRange(tr, old)
	a.data.Swap(&nb)
	nb.Free()
	return nil
}

// transfer builds the values of src into the raw slots dst, moving when a
// move cannot fail or no copy exists, copying otherwise. A failed copy
// leaves src untouched.
func (a *Array[T]) transfer(dst, src []T) error {
	tr := a.traits()
	if tr.relocateByCopy() {
		return buildRange(tr, tr.Copy, dst, src)
	}
	return buildRange(tr, tr.Move, dst, src)
}

// constructRange default-constructs every raw slot in s. On failure the
// values built so far are destroyed and s is raw again.
func (a *Array[T]) constructRange(s []T) error {
	tr := a.traits()
	for i := range s {
		if err := tr.Construct(&s[i]); err != nil {
			destroyRange(tr, s[:i])
			clear(s[i : i+1])
			return errors.Wrapf(err, "construct element %d", i)
		}
	}
	return nil
}

// buildRange constructs dst[i] from src[i] for every i. On failure the values
// built so far are destroyed and dst is raw again.
func buildRange[T any](tr *Traits[T], build func(dst, src *T) error, dst, src []T) error {
	assert(len(dst) == len(src), "range length mismatch %d != %d", len(dst), len(src))
	for i := range src {
		if err := build(&dst[i], &src[i]); err != nil {
			destroyRange(tr, dst[:i])
			clear(dst[i : i+1])
			return errors.Wrapf(err, "transfer element %d", i)
		}
	}
	return nil
}

// destroyRange ends the lifetime of every value in s and returns the slots to
// the raw (zero) state so they no longer retain references.
func destroyRange[T any](tr *Traits[T], s []T) {
	for i := range s {
		tr.Destroy(&s[i])
	}
	clear(s)
}
