//go:build vector_noassert

package vector

const assertEnabled = false

func assert(bool, string, ...any) {}
