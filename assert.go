package rhmap

import (
	"github.com/cockroachdb/errors"
)

// contractViolation panics with an assertion failure. It is reserved for
// broken invariants and API misuse; expected conditions never reach it.
//
//go:noinline
func contractViolation(format string, args ...any) {
	panic(errors.AssertionFailedf("rhmap: "+format, args...))
}

// IsContractViolation reports whether a recovered panic value was raised by
// a broken map invariant or by misuse of the map API.
func IsContractViolation(r any) bool {
	err, ok := r.(error)
	return ok && errors.HasAssertionFailure(err)
}
