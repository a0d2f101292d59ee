package vector

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

// useAllocator installs a as DefaultAllocator for the duration of the test.
func useAllocator(t testing.TB, a Allocator) {
	t.Helper()
	prev := DefaultAllocator
	DefaultAllocator = a
	t.Cleanup(func() { DefaultAllocator = prev })
}

// flakyAllocator fails every request once armed.
type flakyAllocator struct {
	next  Allocator
	fail  bool
	calls int
}

func (a *flakyAllocator) Allocate(l Layout) (unsafe.Pointer, error) {
	a.calls++
	if a.fail {
		return nil, errors.Wrapf(ErrOutOfMemory, "injected failure for %s", l)
	}
	return a.next.Allocate(l)
}

func (a *flakyAllocator) Free(p unsafe.Pointer, l Layout) {
	a.next.Free(p, l)
}

// item is an element whose lifetime is tracked by a lab.
type item struct {
	val   int
	alive bool
}

// lab builds traits for item that count live values and fail on demand.
// A fail* field set to n makes the n-th call of that hook fail.
type lab struct {
	live        int
	badDestroys int

	inits, copies, moves, assigns int

	failInit, failCopy, failMove, failAssign int

	copyable   bool
	noFailMove bool
}

func (l *lab) traits() Traits[item] {
	tr := Traits[item]{
		Construct: func(dst *item) error {
			l.inits++
			if l.inits == l.failInit {
				return errBoom
			}
			*dst = item{alive: true}
			l.live++
			return nil
		},
		Move: func(dst, src *item) error {
			l.moves++
			if !l.noFailMove && l.moves == l.failMove {
				return errBoom
			}
			*dst = item{val: src.val, alive: true}
			src.val = 0
			l.live++
			return nil
		},
		MoveAssign: func(dst, src *item) error {
			l.assigns++
			if l.assigns == l.failAssign {
				return errBoom
			}
			dst.val, src.val = src.val, 0
			return nil
		},
		Destroy: func(p *item) {
			if !p.alive {
				l.badDestroys++
				return
			}
			p.alive = false
			l.live--
		},
		NoFailMove: l.noFailMove,
	}
	if l.copyable {
		tr.Copy = func(dst, src *item) error {
			l.copies++
			if l.copies == l.failCopy {
				return errBoom
			}
			*dst = item{val: src.val, alive: true}
			l.live++
			return nil
		}
	}
	return tr
}

// newLabArray returns an array managed by l holding vals.
func newLabArray(t *testing.T, l *lab, vals ...int) *Array[item] {
	t.Helper()
	a, err := NewWithTraits(l.traits())
	if err != nil {
		t.Fatalf("NewWithTraits: %v", err)
	}
	for _, v := range vals {
		if _, err := a.EmplaceBack(func(dst *item) error {
			*dst = item{val: v, alive: true}
			l.live++
			return nil
		}); err != nil {
			t.Fatalf("EmplaceBack(%d): %v", v, err)
		}
	}
	return a
}

func labValues(a *Array[item]) []int {
	out := make([]int, 0, a.Len())
	for _, it := range a.All() {
		out = append(out, it.val)
	}
	return out
}

// checkInvariant verifies that live slots hold live values and raw slots are
// zero.
func checkInvariant[T comparable](t *testing.T, a *Array[T]) {
	t.Helper()
	if a.Len() > a.Cap() {
		t.Fatalf("Len() = %d > Cap() = %d", a.Len(), a.Cap())
	}
	var zero T
	for i, v := range a.data.Slots(a.Len(), a.Cap()) {
		if v != zero {
			t.Fatalf("raw slot %d holds %v", a.Len()+i, v)
		}
	}
}
