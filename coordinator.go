package libidle

import (
	"runtime"
	"sync"
)

// recursiveMutex is the Boundary/Coordinator: a single process-wide lock
// serializing every read and write of the Registry and every call into the
// Idleness Evaluator.
//
// It is adapted from ilock.Mutex's technique
// (_examples/dijkstracula-go-ilock/ilock.go): a compatibility check against
// the current holder state, a loop that blocks on a sync.Cond when
// incompatible, and a broadcast when the lock returns to the unheld state.
// ilock.Mutex packs four independent holder counts (X/S/IX/IS) into one
// word because it implements a multi-granularity intention lock; this
// Coordinator only ever needs one mode, held exclusively, but re-entrant by
// the same goroutine - the Condition Variable shim calls back into the
// Semaphore shim while still holding the Coordinator (see cond.go) - so the
// bit-packed state word is replaced by an (owner goroutine id, depth) pair
// and the four register*/compatableWith* helpers collapse into one
// comparison against the owner.
type recursiveMutex struct {
	mtx   sync.Mutex
	cond  *sync.Cond
	owner uint64 // 0 means unheld; goroutine ids here are always >= 1.
	depth int
}

func newRecursiveMutex() *recursiveMutex {
	m := &recursiveMutex{}
	m.cond = sync.NewCond(&m.mtx)
	return m
}

// Lock blocks until the calling goroutine holds the Coordinator, either
// because no goroutine holds it or because the calling goroutine already
// does (reentrant acquisition just bumps the depth counter).
func (m *recursiveMutex) Lock() {
	gid := getGoroutineID()
	m.mtx.Lock()
	for m.owner != 0 && m.owner != gid {
		m.cond.Wait()
	}
	m.owner = gid
	m.depth++
	m.mtx.Unlock()
}

// Unlock releases one level of the calling goroutine's hold. Only once the
// depth returns to zero is the lock actually released and waiters woken;
// unlocking a mutex the calling goroutine does not hold is a contract
// violation.
func (m *recursiveMutex) Unlock() {
	gid := getGoroutineID()
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.owner != gid {
		violate("recursiveMutex.Unlock", "goroutine %d does not hold the coordinator (held by %d)", gid, m.owner)
	}
	m.depth--
	if m.depth == 0 {
		m.owner = 0
		m.cond.Broadcast()
	}
}

// heldByCaller reports whether the calling goroutine currently holds the
// Coordinator. No locking decision or assertion in this package calls it.
func (m *recursiveMutex) heldByCaller() bool {
	gid := getGoroutineID()
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.owner == gid
}

// getGoroutineID returns the current goroutine's runtime id, parsed from
// the leading "goroutine <N> [...]" line of runtime.Stack's output.
//
// Grounded on joeycumines-go-utilpkg/eventloop/loop.go's getGoroutineID,
// which uses the same approach to let its event loop cheaply tell whether
// it is executing on its own goroutine without threading a context value
// through every call. This package uses it for the same reason: the
// Coordinator and the per-thread bookkeeping both need to identify "the
// calling goroutine" at call sites that cannot be asked to pass a token
// through (the instrumented program calls libidle.Default().NewSemaphore
// the same way it would call make(chan ...), with no extra parameter).
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
