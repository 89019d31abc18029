package libidle

import "fmt"

// ContractViolation reports that the instrumented program broke one of the
// usage contracts documented on the wrapped primitives - for example,
// destroying a semaphore that still has waiters, or passing an object to a
// shim call that was never registered with this Core. These are always
// programming errors in the instrumented program, never conditions this
// package can recover from, so every call site that detects one panics with
// a ContractViolation rather than threading an error return through every
// wrapper.
type ContractViolation struct {
	Op      string
	Message string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("libidle: contract violation in %s: %s", e.Op, e.Message)
}

func violate(op, format string, args ...interface{}) {
	panic(&ContractViolation{Op: op, Message: fmt.Sprintf(format, args...)})
}
