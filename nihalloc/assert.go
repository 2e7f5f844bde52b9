package nihalloc

import "github.com/cockroachdb/errors"

// assertf is the fatal-assert primitive: programmer errors (nil handles
// where forbidden, unref of a missing reference, foreign handles) are not
// recoverable and panic with an assertion failure.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
