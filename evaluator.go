package libidle

// The Idleness Evaluator has exactly two entry points, both always called
// with the Coordinator mutex held. Neither takes or returns any incremental
// state: activeThreads is recomputed from the registry from scratch every
// time, so the evaluator never has to assume the set of active threads
// changes monotonically - a named-semaphore waiter or a forced-idle toggle
// can move it in either direction between any two calls.

// maybeUnlock is invoked after any state change that could have reduced
// activeThreads to zero. If the gate is currently locked (the program is
// busy) and no thread is active, this performs the idle transition.
func maybeUnlock(c *Core) {
	if c.gate.locked && c.registry.activeThreads() == 0 {
		if err := c.gate.idleTransition(); err != nil {
			panic(err)
		}
	}
}

// maybeLock is invoked after any state change that could have raised
// activeThreads above zero. If the gate is currently unlocked (the program
// is idle) and at least one thread is active, this performs the busy
// transition - including, if necessary, blocking on the state file's
// advisory lock. That block happens with the Coordinator mutex still held:
// it is the sole case where a core operation blocks while holding the
// Coordinator, because a harness that is holding the file lock to
// deliberately pause the program is meant to freeze every goroutine that
// would otherwise touch the registry, not just the one that noticed the
// transition.
func maybeLock(c *Core) {
	if !c.gate.locked && c.registry.activeThreads() > 0 {
		if err := c.gate.busyTransition(); err != nil {
			panic(err)
		}
	}
}
