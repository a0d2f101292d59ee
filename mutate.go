package vector

import "github.com/pkg/errors"

// EmplaceBack constructs a new value at the end with construct, or with the
// default constructor when construct is nil, and returns it. When the block
// is full it grows to max(1, 2*Cap()) and the new value is built in the new
// block before any existing value moves. On failure the array is unchanged.
func (a *Array[T]) EmplaceBack(construct func(*T) error) (*T, error) {
	if construct == nil {
		construct = a.traits().Construct
	}
	if a.size < a.data.Cap() {
		slot := a.data.At(a.size)
		if err := construct(slot); err != nil {
			clear(a.data.Slots(a.size, a.size+1))
			return nil, errors.Wrap(err, "emplace back")
		}
		a.size++
		return slot, nil
	}
	n, err := a.grownCap()
	if err != nil {
		return nil, err
	}
	if err := a.regrow(n, a.size, construct); err != nil {
		return nil, errors.Wrap(err, "emplace back")
	}
	a.size++
	return a.data.At(a.size - 1), nil
}

// PushBack appends a copy of v.
func (a *Array[T]) PushBack(v T) error {
	cp := a.copier()
	_, err := a.EmplaceBack(func(dst *T) error { return cp(dst, &v) })
	return err
}

// PushBackMove appends v by moving it; v is left moved-from.
func (a *Array[T]) PushBackMove(v *T) error {
	mv := a.traits().Move
	_, err := a.EmplaceBack(func(dst *T) error { return mv(dst, v) })
	return err
}

// PopBack destroys the last value. It does nothing on an empty array.
func (a *Array[T]) PopBack() {
	if a.size == 0 {
		return
	}
	destroyRange(a.traits(), a.data.Slots(a.size-1, a.size))
	a.size--
}

// Emplace constructs a new value at index pos, shifting the values at and
// after pos one slot right, and returns pos. pos must be in [0, Len()].
//
// When the block has room and pos < Len(), the value is built in a temporary
// first; if that fails nothing has changed. A later failure while shifting
// drops the extra end slot and may leave the shifted values mutated. When
// the block is full the new value is built at its final index in a new block
// and the array is unchanged on any failure.
func (a *Array[T]) Emplace(pos int, construct func(*T) error) (int, error) {
	assert(pos >= 0 && pos <= a.size, "position %d out of range [0, %d]", pos, a.size)
	tr := a.traits()
	if construct == nil {
		construct = tr.Construct
	}

	if a.size == a.data.Cap() {
		n, err := a.grownCap()
		if err != nil {
			return pos, err
		}
		if err := a.regrow(n, pos, construct); err != nil {
			return pos, errors.Wrapf(err, "emplace at %d", pos)
		}
		a.size++
		return pos, nil
	}

	if pos == a.size {
		_, err := a.EmplaceBack(construct)
		return pos, err
	}

	var tmp T
	if err := construct(&tmp); err != nil {
		return pos, errors.Wrapf(err, "emplace at %d", pos)
	}
	defer tr.Destroy(&tmp)

	end := a.data.At(a.size)
	if err := tr.Move(end, a.data.At(a.size-1)); err != nil {
		clear(a.data.Slots(a.size, a.size+1))
		return pos, errors.Wrapf(err, "emplace at %d", pos)
	}
	for i := a.size - 1; i > pos; i-- {
		if err := tr.MoveAssign(a.data.At(i), a.data.At(i-1)); err != nil {
			destroyRange(tr, a.data.Slots(a.size, a.size+1))
			return pos, errors.Wrapf(err, "emplace at %d: shift element %d", pos, i-1)
		}
	}
	if err := tr.MoveAssign(a.data.At(pos), &tmp); err != nil {
		destroyRange(tr, a.data.Slots(a.size, a.size+1))
		return pos, errors.Wrapf(err, "emplace at %d", pos)
	}
	a.size++
	return pos, nil
}

// Insert inserts a copy of v at index pos and returns pos.
func (a *Array[T]) Insert(pos int, v T) (int, error) {
	cp := a.copier()
	return a.Emplace(pos, func(dst *T) error { return cp(dst, &v) })
}

// InsertMove inserts v at index pos by moving it and returns pos.
func (a *Array[T]) InsertMove(pos int, v *T) (int, error) {
	mv := a.traits().Move
	return a.Emplace(pos, func(dst *T) error { return mv(dst, v) })
}

// Erase removes the value at index pos, shifting later values one slot left,
// and returns the index of the value that now follows the removed one. pos
// must be in [0, Len()). A failed shift leaves the tail mutated but no value
// is leaked or destroyed twice.
func (a *Array[T]) Erase(pos int) (int, error) {
	assert(pos >= 0 && pos < a.size, "position %d out of range [0, %d)", pos, a.size)
	tr := a.traits()
	for i := pos; i < a.size-1; i++ {
		if err := tr.MoveAssign(a.data.At(i), a.data.At(i+1)); err != nil {
			return pos, errors.Wrapf(err, "erase at %d: shift element %d", pos, i+1)
		}
	}
	a.PopBack()
	return pos, nil
}

func (a *Array[T]) copier() func(dst, src *T) error {
	tr := a.traits()
	assert(tr.Copy != nil, "copy of a non-copyable element type")
	return tr.Copy
}
