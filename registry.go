package libidle

// threadRecord is the Thread Record: one per goroutine this Core has
// observed, created lazily the first time that goroutine reaches
// currentThread (see thread.go) - waiting on an anonymous Semaphore or a
// Cond, a blocking bracket, a forced-idle toggle, or RegisterThread; Post,
// NewSemaphore and waits on named semaphores do not register. Records are
// append-only - a terminated goroutine's record is marked terminated, not
// removed, since the Registry never shrinks.
type threadRecord struct {
	goroutineID      uint64
	sleeping         bool
	forcedIdle       bool
	terminated       bool
	waitingSemaphore *Semaphore
}

// blocked reports whether a thread counts as blocked: it is forced idle,
// terminated (inert, excluded from active accounting), or sleeping with
// either no semaphore link or a semaphore link whose pending-wakeup count
// has been drained to zero.
func (t *threadRecord) blocked() bool {
	if t.terminated || t.forcedIdle {
		return true
	}
	if !t.sleeping {
		return false
	}
	if t.waitingSemaphore == nil {
		return true
	}
	return t.waitingSemaphore.pendingWakeups == 0
}

// registry is the in-memory table of every thread, semaphore, and condition
// variable known to a Core, looked up by identity. Lookup is a linear scan
// and containers are unordered sets keyed on identity; removal may reorder
// survivors (we use the standard Go swap-with-last-element compaction).
// Expected scale is dozens of each, so linear scan is not a bottleneck.
//
// Every method on registry assumes the Coordinator mutex is already held by
// the caller; registry itself does no locking.
type registry struct {
	threads    []*threadRecord
	semaphores []*Semaphore
	conds      []*Cond
}

func newRegistry() *registry {
	return &registry{}
}

func (r *registry) addThread(t *threadRecord) {
	r.threads = append(r.threads, t)
}

func (r *registry) findThreadByGoroutineID(gid uint64) *threadRecord {
	for _, t := range r.threads {
		if t.goroutineID == gid {
			return t
		}
	}
	return nil
}

func (r *registry) addSemaphore(s *Semaphore) {
	r.semaphores = append(r.semaphores, s)
}

func (r *registry) hasSemaphore(s *Semaphore) bool {
	for _, v := range r.semaphores {
		if v == s {
			return true
		}
	}
	return false
}

func (r *registry) removeSemaphore(s *Semaphore) bool {
	for i, v := range r.semaphores {
		if v == s {
			last := len(r.semaphores) - 1
			r.semaphores[i] = r.semaphores[last]
			r.semaphores[last] = nil
			r.semaphores = r.semaphores[:last]
			return true
		}
	}
	return false
}

func (r *registry) addCond(c *Cond) {
	r.conds = append(r.conds, c)
}

func (r *registry) hasCond(c *Cond) bool {
	for _, v := range r.conds {
		if v == c {
			return true
		}
	}
	return false
}

func (r *registry) removeCond(c *Cond) bool {
	for i, v := range r.conds {
		if v == c {
			last := len(r.conds) - 1
			r.conds[i] = r.conds[last]
			r.conds[last] = nil
			r.conds = r.conds[:last]
			return true
		}
	}
	return false
}

// activeThreads is recomputed from scratch from the Thread Record set on
// every call, tolerating the ambient noise of named-semaphore waiters and
// forced-idle toggles the evaluator must not assume is monotonic.
func (r *registry) activeThreads() int {
	n := 0
	for _, t := range r.threads {
		if !t.blocked() {
			n++
		}
	}
	return n
}

// blockMap renders one byte per registered thread, in registration order,
// 'x' for blocked and '-' for active - the per-thread block map the
// LIBIDLE_VERBOSE diagnostic output prints alongside each blocked-op
// transition.
func (r *registry) blockMap() []byte {
	m := make([]byte, len(r.threads))
	for i, t := range r.threads {
		if t.blocked() {
			m[i] = 'x'
		} else {
			m[i] = '-'
		}
	}
	return m
}
