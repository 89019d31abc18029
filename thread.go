package libidle

import "net"

// ThreadHandle is a Thread Record's exported handle, returned by
// Core.RegisterThread. Most callers never need one directly - Semaphore,
// Cond, Blocking, Accept, Recv, and Join all resolve the calling
// goroutine's record automatically - but a long-lived worker goroutine that
// wants to mark itself terminated explicitly (rather than simply exiting,
// which this package has no way to observe) can hold on to one.
type ThreadHandle struct {
	core *Core
	rec  *threadRecord
}

// RegisterThread resolves (creating if necessary) the Thread Record for
// the calling goroutine. Registration is idempotent: calling it twice from
// the same goroutine returns handles over the same underlying record.
func (c *Core) RegisterThread() *ThreadHandle {
	return &ThreadHandle{core: c, rec: c.currentThread()}
}

// MarkTerminated marks the handle's thread as terminated: excluded from
// activeThreads from this point on. The record itself is retained, not
// removed, since the Registry is append-only.
func (h *ThreadHandle) MarkTerminated() {
	c := h.core
	c.coordinator.Lock()
	h.rec.terminated = true
	maybeUnlock(c)
	c.traceTransition("terminated")
	c.coordinator.Unlock()
}

// currentThread resolves the calling goroutine's Thread Record, lazily
// registering one on first use - this is what lets Semaphore.Wait,
// Cond.Wait, and the blocking I/O brackets below identify "the calling
// thread" the same way the original's interposed C functions implicitly
// know they're running on whichever pthread called them, without requiring
// the instrumented program to thread a handle through every call.
//
// A freshly registered thread is active by default (not sleeping, not
// forced idle), so registering one while the program was idle is itself a
// state change that can flip the gate busy - hence the maybeLock call.
func (c *Core) currentThread() *threadRecord {
	gid := getGoroutineID()
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	if t := c.registry.findThreadByGoroutineID(gid); t != nil {
		return t
	}
	t := &threadRecord{goroutineID: gid}
	c.registry.addThread(t)
	maybeLock(c)
	return t
}

// enterBlockedOp is the entering-blocked-op bracket: mark the calling
// thread sleeping and let the evaluator decide whether the program just
// went idle. Traced unconditionally, independent of whether the gate
// actually flipped, so LIBIDLE_VERBOSE shows every blocked-op transition
// rather than only the ones that happen to change the aggregate state.
func (c *Core) enterBlockedOp(t *threadRecord) {
	c.coordinator.Lock()
	t.sleeping = true
	maybeUnlock(c)
	c.traceTransition("enter-blocked")
	c.coordinator.Unlock()
}

// leaveBlockedOp is the left-blocked-op bracket for operations with no
// semaphore link (plain blocking I/O, thread join, forced-idle release):
// clear sleeping and let the evaluator decide whether the program just
// went busy. Traced unconditionally, same reasoning as enterBlockedOp.
func (c *Core) leaveBlockedOp(t *threadRecord) {
	c.coordinator.Lock()
	t.sleeping = false
	maybeLock(c)
	c.traceTransition("leave-blocked")
	c.coordinator.Unlock()
}

// Blocking brackets an arbitrary blocking call with entering/leaving-
// blocked-op, exactly like the original's accept/recv/pthread_join
// wrappers bracket the real call. fn's error, if any, is returned unchanged - a
// real-primitive failure never affects the bookkeeping, which always runs
// via defer.
func (c *Core) Blocking(fn func() error) error {
	t := c.currentThread()
	c.enterBlockedOp(t)
	defer c.leaveBlockedOp(t)
	return fn()
}

// Accept brackets a connection-accepting call the way the original wraps
// the libc accept(2).
func (c *Core) Accept(fn func() (net.Conn, error)) (net.Conn, error) {
	t := c.currentThread()
	c.enterBlockedOp(t)
	defer c.leaveBlockedOp(t)
	return fn()
}

// Recv brackets a stream-receive call the way the original wraps recv(2).
func (c *Core) Recv(fn func() (int, error)) (int, error) {
	t := c.currentThread()
	c.enterBlockedOp(t)
	defer c.leaveBlockedOp(t)
	return fn()
}

// Join brackets a thread-join call the way the original wraps
// pthread_join.
func (c *Core) Join(fn func()) {
	t := c.currentThread()
	c.enterBlockedOp(t)
	defer c.leaveBlockedOp(t)
	fn()
}

// EnableForcedIdle pins the calling thread as idle for idle-detection
// purposes, independent of any blocking primitive. The canonical use is a
// worker that has finished a blocking receive and is
// about to do in-memory work that should not itself register as "busy" to
// an external observer - enable forced idle before the work, disable it
// after, and the observer never sees a spurious idle-then-busy blip in
// between.
func EnableForcedIdle() { Default().EnableForcedIdle() }

// DisableForcedIdle clears the calling thread's forced-idle pin.
func DisableForcedIdle() { Default().DisableForcedIdle() }

// EnableForcedIdle is the Core-scoped form of the package-level
// EnableForcedIdle, for programs that do not use the default singleton.
func (c *Core) EnableForcedIdle() {
	t := c.currentThread()
	c.coordinator.Lock()
	t.forcedIdle = true
	maybeUnlock(c)
	c.traceTransition("forced-idle-on")
	c.coordinator.Unlock()
}

// DisableForcedIdle is the Core-scoped form of the package-level
// DisableForcedIdle.
func (c *Core) DisableForcedIdle() {
	t := c.currentThread()
	c.coordinator.Lock()
	t.forcedIdle = false
	maybeLock(c)
	c.traceTransition("forced-idle-off")
	c.coordinator.Unlock()
}
