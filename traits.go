package vector

import (
	"reflect"
	"sync"

	"github.com/pkg/errors"
)

// Initializer is implemented by element types whose default construction can
// fail or needs more than the zero value.
type Initializer interface {
	Init() error
}

// Copier is implemented by element types with a custom copy constructor.
// CopyFrom is called on a raw (zero) slot.
type Copier[T any] interface {
	CopyFrom(src *T) error
}

// Mover is implemented by element types with a custom move constructor.
// MoveFrom is called on a raw (zero) slot and leaves src in a moved-from
// state that Destroy accepts. A Mover is assumed to be able to fail unless it
// also implements NoFailMover.
type Mover[T any] interface {
	MoveFrom(src *T) error
}

// Assigner is implemented by element types with a custom copy assignment.
// AssignFrom is called on a live value and must leave it live on failure.
type Assigner[T any] interface {
	AssignFrom(src *T) error
}

// NoFailMover marks a Mover whose MoveFrom never returns an error.
type NoFailMover interface {
	NoFailMove()
}

// NonCopyable marks element types that must never be copied.
type NonCopyable interface {
	NonCopyable()
}

// Destroyer is implemented by element types that release resources when their
// lifetime ends. Destroy is also called on moved-from values.
type Destroyer interface {
	Destroy()
}

// Traits are the lifetime hooks an Array uses to manage values of T in raw
// slots. A nil Copy means T is not copyable. Move or Copy must be set.
//
// When MoveAssign is not set it destroys the target and moves into it if
// Move cannot fail; otherwise it moves into a temporary first and relocates
// the temporary with a plain assignment. CopyAssign is built the same way
// from Copy. Types whose values depend on their own address need a
// failure-free Move.
type Traits[T any] struct {
	Construct  func(dst *T) error
	Copy       func(dst, src *T) error
	Move       func(dst, src *T) error
	CopyAssign func(dst, src *T) error
	MoveAssign func(dst, src *T) error
	Destroy    func(p *T)

	// NoFailMove reports that Move never returns an error.
	NoFailMove bool
}

// traitsCache holds the derived traits of each element type.
var traitsCache sync.Map // reflect.Type -> *Traits[T]

// TraitsOf returns the traits derived from the method set of *T. The
// derivation runs once per element type.
func TraitsOf[T any]() *Traits[T] {
	key := reflect.TypeFor[T]()
	if tr, ok := traitsCache.Load(key); ok {
		return tr.(*Traits[T])
	}
	tr, _ := traitsCache.LoadOrStore(key, deriveTraits[T]())
	return tr.(*Traits[T])
}

func deriveTraits[T any]() *Traits[T] {
	var ptr *T
	tr := &Traits[T]{NoFailMove: true}

	if _, ok := any(ptr).(Initializer); ok {
		tr.Construct = func(dst *T) error { return any(dst).(Initializer).Init() }
	} else {
		tr.Construct = func(*T) error { return nil }
	}

	if _, ok := any(ptr).(Destroyer); ok {
		tr.Destroy = func(p *T) { any(p).(Destroyer).Destroy() }
	} else {
		tr.Destroy = func(*T) {}
	}

	if _, ok := any(ptr).(Mover[T]); ok {
		tr.Move = func(dst, src *T) error { return any(dst).(Mover[T]).MoveFrom(src) }
		_, tr.NoFailMove = any(ptr).(NoFailMover)
	} else {
		tr.Move = func(dst, src *T) error {
			var zero T
			*dst, *src = *src, zero
			return nil
		}
	}

	if _, ok := any(ptr).(Assigner[T]); ok {
		tr.CopyAssign = func(dst, src *T) error { return any(dst).(Assigner[T]).AssignFrom(src) }
	}

	_, nonCopyable := any(ptr).(NonCopyable)
	switch _, ok := any(ptr).(Copier[T]); {
	case nonCopyable:
	case ok:
		tr.Copy = func(dst, src *T) error { return any(dst).(Copier[T]).CopyFrom(src) }
	default:
		tr.Copy = func(dst, src *T) error {
			*dst = *src
			return nil
		}
	}

	tr.fill()
	return tr
}

// fill completes optional hooks from the required ones.
func (tr *Traits[T]) fill() {
	if tr.Construct == nil {
		tr.Construct = func(*T) error { return nil }
	}
	if tr.Destroy == nil {
		tr.Destroy = func(*T) {}
	}
	if tr.Move == nil && tr.Copy != nil {
		// A copy is a valid, if slower, move. The source keeps its value.
		tr.Move = tr.Copy
		tr.NoFailMove = false
	}
	if tr.MoveAssign == nil {
		if tr.NoFailMove {
			tr.MoveAssign = tr.rebuild
		} else {
			tr.MoveAssign = tr.assignVia(tr.Move)
		}
	}
	if tr.CopyAssign == nil && tr.Copy != nil {
		tr.CopyAssign = tr.assignVia(tr.Copy)
	}
}

// rebuild ends the lifetime of dst and moves src into the raw slot. Move
// cannot fail, so dst is never left raw.
func (tr *Traits[T]) rebuild(dst, src *T) error {
	tr.Destroy(dst)
	var zero T
	*dst = zero
	return tr.Move(dst, src)
}

// assignVia builds an assignment from a constructor: the new value is built in
// a temporary first, so a failure leaves dst untouched. The temporary reaches
// dst through Move when that cannot fail, and through a plain assignment
// otherwise.
func (tr *Traits[T]) assignVia(construct func(dst, src *T) error) func(dst, src *T) error {
	return func(dst, src *T) error {
		var tmp T
		if err := construct(&tmp, src); err != nil {
			return err
		}
		if tr.NoFailMove {
			err := tr.rebuild(dst, &tmp)
			tr.Destroy(&tmp)
			return err
		}
		tr.Destroy(dst)
		*dst = tmp
		return nil
	}
}

func (tr *Traits[T]) validate() error {
	if tr.Move == nil && tr.Copy == nil {
		return errors.Wrapf(ErrInvalidTraits, "%s: neither Move nor Copy is set", reflect.TypeFor[T]())
	}
	return nil
}

// relocateByCopy reports whether transfers to new storage copy instead of
// move: only when a move could fail and a copy is available.
func (tr *Traits[T]) relocateByCopy() bool {
	return !tr.NoFailMove && tr.Copy != nil
}
