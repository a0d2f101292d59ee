package main

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"

	"github.com/pavanmanishd/vector"
)

type opKind int

const (
	opPushBack opKind = iota
	opPopBack
	opInsert
	opErase
	opResize
	opReserve
	numOps
)

func (k opKind) String() string {
	switch k {
	case opPushBack:
		return "push_back"
	case opPopBack:
		return "pop_back"
	case opInsert:
		return "insert"
	case opErase:
		return "erase"
	case opResize:
		return "resize"
	case opReserve:
		return "reserve"
	}
	return fmt.Sprintf("op(%d)", int(k))
}

// workloadStats counts what a workload did.
type workloadStats struct {
	Ops      [numOps]int
	Failures [numOps]int
	MaxLen   int
	MaxCap   int
}

// workload drives an Array[int64] and a plain slice with the same random
// operations and checks that they agree after every step. Operations that
// fail with ErrOutOfMemory must leave the array as it was.
type workload struct {
	logger log.Logger
	rnd    *rand.Rand
	maxLen int

	arr   *vector.Array[int64]
	model []int64
	stats workloadStats
}

func newWorkload(logger log.Logger, seed int64, maxLen int) *workload {
	return &workload{
		logger: logger,
		rnd:    rand.New(rand.NewSource(seed)),
		maxLen: maxLen,
		arr:    vector.New[int64](),
	}
}

// run performs n operations and returns the first invariant violation.
func (w *workload) run(n int) error {
	for i := 0; i < n; i++ {
		if err := w.step(); err != nil {
			return errors.Wrapf(err, "operation %d", i)
		}
	}
	return nil
}

func (w *workload) step() error {
	k := w.pick()
	w.stats.Ops[k]++

	var err error
	switch k {
	case opPushBack:
		v := w.rnd.Int63()
		if err = w.arr.PushBack(v); err == nil {
			w.model = append(w.model, v)
		}
	case opPopBack:
		w.arr.PopBack()
		if len(w.model) > 0 {
			w.model = w.model[:len(w.model)-1]
		}
	case opInsert:
		pos := w.rnd.Intn(len(w.model) + 1)
		v := w.rnd.Int63()
		if _, err = w.arr.Insert(pos, v); err == nil {
			w.model = append(w.model, 0)
			copy(w.model[pos+1:], w.model[pos:])
			w.model[pos] = v
		}
	case opErase:
		if len(w.model) == 0 {
			return w.check(k)
		}
		pos := w.rnd.Intn(len(w.model))
		if _, err = w.arr.Erase(pos); err == nil {
			w.model = append(w.model[:pos], w.model[pos+1:]...)
		}
	case opResize:
		n := w.rnd.Intn(w.maxLen + 1)
		if err = w.arr.Resize(n); err == nil {
			if n < len(w.model) {
				w.model = w.model[:n]
			} else {
				w.model = append(w.model, make([]int64, n-len(w.model))...)
			}
		}
	case opReserve:
		err = w.arr.Reserve(w.rnd.Intn(2*w.maxLen + 1))
	}

	if err != nil {
		if !errors.Is(err, vector.ErrOutOfMemory) {
			return errors.Wrapf(err, "%s", k)
		}
		w.stats.Failures[k]++
		level.Debug(w.logger).Log("msg", "operation failed", "op", k, "len", w.arr.Len(), "cap", w.arr.Cap(), "err", err)
	}
	return w.check(k)
}

// pick favours growth while the array is short and shrinking once it nears
// maxLen.
func (w *workload) pick() opKind {
	k := opKind(w.rnd.Intn(int(numOps)))
	if len(w.model) >= w.maxLen {
		switch k {
		case opPushBack:
			return opPopBack
		case opInsert:
			return opErase
		}
	}
	return k
}

func (w *workload) check(k opKind) error {
	if w.arr.Len() > w.arr.Cap() {
		return errors.Errorf("after %s: length %d exceeds capacity %d", k, w.arr.Len(), w.arr.Cap())
	}
	if got := w.arr.Values(); !slices.Equal(w.model, got) {
		diff := cmp.Diff(w.model, got, cmpopts.EquateEmpty())
		return errors.Errorf("after %s: array differs from model (-model +array):\n%s", k, diff)
	}
	w.stats.MaxLen = max(w.stats.MaxLen, w.arr.Len())
	w.stats.MaxCap = max(w.stats.MaxCap, w.arr.Cap())
	return nil
}

func (w *workload) close() {
	w.arr.Release()
	w.model = nil
}
