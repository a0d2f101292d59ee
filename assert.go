//go:build !vector_noassert

package vector

import "fmt"

// assertEnabled reports whether contract checks are compiled in.
const assertEnabled = true

// assert panics when a caller breaks a precondition. Contract violations are
// programmer errors, not recoverable failures.
func assert(cond bool, format string, args ...any) {
	if !cond {
		panic("vector: " + fmt.Sprintf(format, args...))
	}
}
