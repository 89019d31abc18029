package libidle

import (
	"sync"
	"time"
)

// Cond is a condition variable reimplemented end-to-end on top of
// Semaphore rather than on a native sync.Cond, because the native
// primitive offers no deterministic quiescence contract - it permits
// spurious wakeups and wakes an unspecified subset of waiters on Signal,
// so there is no moment at which an observer could conclude "the
// condition has quiesced". Semaphore already exposes an exact
// pending-wakeup count the evaluator consumes, so building Cond out of two
// of them (named IN and OUT below) gets that contract back.
//
// This is the one component with no direct analogue anywhere in the
// example pack to adapt from: the teacher's own ilock.Mutex uses a native
// sync.Cond precisely because an intention lock's wake conditions are
// simple predicates re-checked in a loop, which is exactly the kind of use
// native condition variables are good at and this module's cross-thread
// quiescence contract is not.
type Cond struct {
	core *Core

	// in and out are swapped out wholesale on every Broadcast; guarded by
	// core.coordinator.
	in, out         *Semaphore
	sleepingThreads int
}

// NewCond creates a Cond with fresh IN/OUT semaphores (initial value 0)
// and registers it.
func (c *Core) NewCond() *Cond {
	cond := &Cond{core: c}
	c.coordinator.Lock()
	cond.in = c.NewSemaphore(0)
	cond.out = c.NewSemaphore(0)
	c.registry.addCond(cond)
	c.coordinator.Unlock()
	return cond
}

// Destroy requires sleepingThreads == 0 - undefined behavior otherwise,
// per the underlying contract, so this is a contract violation rather than
// a best-effort cleanup - then destroys IN and OUT and removes the record.
func (c *Cond) Destroy() {
	core := c.core
	core.coordinator.Lock()
	defer core.coordinator.Unlock()
	if c.sleepingThreads != 0 {
		violate("Cond.Destroy", "condition variable has active waiters")
	}
	if !core.registry.removeCond(c) {
		violate("Cond.Destroy", "condition variable is not registered with this Core")
	}
	c.in.Destroy()
	c.out.Destroy()
}

// Wait releases l (the external mutex guarding the condition, already held
// by the caller per the usual condition-variable protocol), waits for a
// broadcast, and reacquires l before returning. l is released while still
// holding the Coordinator mutex so that a concurrent Broadcast cannot slip
// in and be missed between the release and the registration of this
// waiter.
func (c *Cond) Wait(l sync.Locker) {
	core := c.core
	core.coordinator.Lock()
	l.Unlock()
	in, out := c.in, c.out
	c.sleepingThreads++
	core.coordinator.Unlock()

	in.Wait()
	out.Post()

	l.Lock()
}

// TimedWait is Wait with a deadline, routed through the inner semaphore's
// TimedWait directly on the captured IN rather than through untimed Wait.
// Whether or not the wait acquired its token before the deadline, OUT is
// always posted, so a concurrent
// Broadcast's n-token wait on the detached OUT still balances.
func (c *Cond) TimedWait(l sync.Locker, d time.Duration) (acquired bool) {
	core := c.core
	core.coordinator.Lock()
	l.Unlock()
	in, out := c.in, c.out
	c.sleepingThreads++
	core.coordinator.Unlock()

	acquired = in.TimedWait(d)
	out.Post()

	l.Lock()
	return acquired
}

// Signal is equivalent to Broadcast: the condition-variable contract
// permits a signal to wake more than one waiter, so promoting every Signal
// to a full Broadcast is conformant and avoids needing a second,
// single-token rotation protocol.
func (c *Cond) Signal() {
	c.Broadcast()
}

// Broadcast rotates IN/OUT to a fresh generation and releases every
// waiter registered against the old generation. The rotation is the
// linearization point: a waiter that entered on the old IN receives a
// token from this Broadcast; a waiter that enters afterward binds to the
// new IN and will not.
func (c *Cond) Broadcast() {
	core := c.core

	core.coordinator.Lock()
	n := c.sleepingThreads
	oldIn, oldOut := c.in, c.out
	c.in = core.NewSemaphore(0)
	c.out = core.NewSemaphore(0)
	c.sleepingThreads = 0
	core.coordinator.Unlock()

	for i := 0; i < n; i++ {
		oldIn.Post()
	}
	for i := 0; i < n; i++ {
		oldOut.Wait()
	}
	oldIn.Destroy()
	oldOut.Destroy()
}
