package libidle

import "time"

// semaCapacity bounds the token buffer backing realSema. Because the
// buffered element type is the zero-sized struct{}, a channel of this
// capacity costs no more memory than an empty one - only the bookkeeping
// header - so this is effectively "unbounded" for any workload this
// package is meant for (dozens of threads), while still giving Post a
// channel send to perform instead of hand-rolling a mutex+condvar counter.
const semaCapacity = 1 << 20

// realSema is the real underlying semaphore primitive the Semaphore Shim
// wraps - the boundary this package assumes it can always call through to.
// It is a classic buffered-channel counting semaphore: Post sends a token,
// Wait/TimedWait receive one, and a full channel's send blocking is the
// only way a well-behaved Post could ever stall, which in practice it will
// not at this capacity.
//
// Grounded on the buffered-channel-as-semaphore idiom surveyed across
// other_examples/47ffcbe2_DanDo385-go-edu and
// other_examples/b331abe4_DanDo385-go-edu (token-bucket acquire/release),
// with the acquire/release direction flipped to match POSIX semaphore
// semantics: here Post supplies a token and Wait consumes one, rather than
// a resource-limiting semaphore where Acquire supplies the blocking send.
type realSema struct {
	tokens chan struct{}
}

func newRealSema(initial int) *realSema {
	s := &realSema{tokens: make(chan struct{}, semaCapacity)}
	for i := 0; i < initial; i++ {
		s.tokens <- struct{}{}
	}
	return s
}

func (s *realSema) post() {
	s.tokens <- struct{}{}
}

func (s *realSema) wait() {
	<-s.tokens
}

// timedWait reports whether a token was acquired before d elapsed.
func (s *realSema) timedWait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.tokens:
		return true
	case <-timer.C:
		return false
	}
}

// Semaphore is a counting semaphore whose Post/Wait/TimedWait bookend the
// real semaphore above with the pending-wakeup accounting the Idleness
// Evaluator depends on.
//
// A named Semaphore (opened via Core.OpenNamedSemaphore) may be posted by
// code this Core never sees running, so it is excluded from idle
// accounting entirely: Wait and TimedWait on a named Semaphore never touch
// the calling thread's sleeping state and never contribute to
// pendingWakeups.
type Semaphore struct {
	core      *Core
	real      *realSema
	named     bool
	name      string
	namedRefs int

	// pendingWakeups counts posts that have not yet been matched by a
	// successful wait. Meaningless - and never consulted - for named
	// semaphores. Guarded by core.coordinator.
	pendingWakeups int
}

// NewSemaphore creates an anonymous Semaphore with the given initial
// value, registers it, and returns it. pendingWakeups starts at the
// initial value, since that many Waits may succeed before any Post.
func (c *Core) NewSemaphore(initial int) *Semaphore {
	s := &Semaphore{core: c, real: newRealSema(initial), pendingWakeups: initial}
	c.coordinator.Lock()
	c.registry.addSemaphore(s)
	c.coordinator.Unlock()
	return s
}

// OpenNamedSemaphore opens (creating on first use) a Semaphore identified
// by name, analogous to POSIX sem_open. Because this module cannot share a
// semaphore across OS processes without cgo, "named" here means "shared
// across every goroutine using this same Core" with open-count
// refcounting; the named-semaphore idle-exclusion semantics are unaffected
// by that simulation. Each successful OpenNamedSemaphore call
// should be matched with a CloseNamed.
func (c *Core) OpenNamedSemaphore(name string, initial int) *Semaphore {
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	if c.namedSemaphores == nil {
		c.namedSemaphores = make(map[string]*Semaphore)
	}
	if existing, ok := c.namedSemaphores[name]; ok {
		existing.namedRefs++
		return existing
	}
	s := &Semaphore{core: c, real: newRealSema(initial), named: true, name: name, namedRefs: 1}
	c.registry.addSemaphore(s)
	c.namedSemaphores[name] = s
	return s
}

// CloseNamed drops one reference to a named Semaphore, destroying it once
// the last reference is closed. Calling CloseNamed on an anonymous
// Semaphore is a contract violation.
func (s *Semaphore) CloseNamed() {
	if !s.named {
		violate("Semaphore.CloseNamed", "semaphore is not named")
	}
	c := s.core
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	s.namedRefs--
	if s.namedRefs > 0 {
		return
	}
	delete(c.namedSemaphores, s.name)
	c.registry.removeSemaphore(s)
}

// Destroy removes the Semaphore Record and releases the underlying
// primitive. Destroying a semaphore with active waiters is a contract
// violation - the underlying contract (POSIX sem_destroy) is undefined in
// that case, so this aborts rather than guessing.
func (s *Semaphore) Destroy() {
	c := s.core
	c.coordinator.Lock()
	defer c.coordinator.Unlock()
	for _, t := range c.registry.threads {
		if t.sleeping && t.waitingSemaphore == s {
			violate("Semaphore.Destroy", "semaphore has active waiters")
		}
	}
	if !c.registry.removeSemaphore(s) {
		violate("Semaphore.Destroy", "semaphore is not registered with this Core")
	}
	if s.named && c.namedSemaphores[s.name] == s {
		delete(c.namedSemaphores, s.name)
	}
}

// Post increments pendingWakeups (for anonymous semaphores) before calling
// through to the real post, so that no waiter can ever observe a
// post-with-zero-pending window.
func (s *Semaphore) Post() {
	c := s.core
	c.coordinator.Lock()
	if !c.registry.hasSemaphore(s) {
		c.coordinator.Unlock()
		violate("Semaphore.Post", "semaphore is not registered with this Core")
	}
	if !s.named {
		s.pendingWakeups++
	}
	c.coordinator.Unlock()
	s.real.post()
}

// Wait blocks until a token is available. For an anonymous semaphore this
// participates fully in idle accounting: the calling thread is marked
// sleeping and linked to this semaphore before the real wait, and the
// left-blocked-op sequence - clear sleeping, then clear the semaphore
// link, then decrement pendingWakeups, then re-evaluate - runs as one
// critical section afterward, in that order, because a thread must be
// observable as awake before its semaphore link is cleared.
//
// Waiting on a named semaphore bypasses all of this: the calling thread is
// never marked sleeping, so it never contributes to idle accounting.
func (s *Semaphore) Wait() {
	c := s.core
	if s.named {
		s.real.wait()
		return
	}
	t := c.currentThread()

	c.coordinator.Lock()
	t.waitingSemaphore = s
	c.coordinator.Unlock()

	c.enterBlockedOp(t)

	s.real.wait()

	c.coordinator.Lock()
	t.sleeping = false
	t.waitingSemaphore = nil
	s.pendingWakeups--
	maybeLock(c)
	c.traceTransition("leave-blocked")
	c.coordinator.Unlock()
}

// TimedWait is Wait with a deadline. pendingWakeups is decremented only
// when a token was actually acquired - on expiry, the post this thread
// might have been about to consume is left pending for the next waiter.
func (s *Semaphore) TimedWait(d time.Duration) (acquired bool) {
	c := s.core
	if s.named {
		return s.real.timedWait(d)
	}
	t := c.currentThread()

	c.coordinator.Lock()
	t.waitingSemaphore = s
	c.coordinator.Unlock()

	c.enterBlockedOp(t)

	acquired = s.real.timedWait(d)

	c.coordinator.Lock()
	t.sleeping = false
	t.waitingSemaphore = nil
	if acquired {
		s.pendingWakeups--
	}
	maybeLock(c)
	c.traceTransition("leave-blocked")
	c.coordinator.Unlock()
	return acquired
}
