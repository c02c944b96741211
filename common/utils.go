package common

import "fmt"

// AlignedTo8 returns true if the integer is a multiple of 8.
func AlignedTo8(n int) bool {
	return n%8 == 0
}

// Assert checks a condition and panics if it is false.
//
// Assertions guard invariants: truths about engine state that must always hold, e.g. a tuple
// handed to a physical table has the table's column count. Conditions a query can legitimately
// trigger (bad column maps, missing capabilities, out-of-order inputs) are returned as errors instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
