// Copyright 2024 The libidle Authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package libidle implements a process-wide quiescence detector for
// multi-threaded (goroutine-heavy) programs that perform I/O and
// inter-goroutine synchronization.
//
// A program that wants to be observed replaces the handful of blocking
// primitives it uses to coordinate goroutines with the equivalents this
// package provides: libidle.Semaphore instead of a raw counting channel,
// libidle.Cond instead of sync.Cond, and the Blocking/Accept/Recv/Join
// brackets instead of calling net.Listener.Accept or sync.WaitGroup.Wait
// directly. Every wrapped call bookends the real blocking operation with
// bookkeeping that lets the Core decide, without races, whether every
// goroutine known to it is now blocked on something only an external event
// can resolve.
//
// Whenever that transition happens, the Core opens a narrow, observable
// window: it writes an incrementing counter into a state file and releases
// an exclusive advisory lock on it. An external driver - typically a test
// harness stepping a simulated clock or feeding sockets - waits on that
// lock, reads the counter, drives the program forward, and waits again.
// The driver never has to guess when the program has "settled"; the Core
// tells it, exactly once per settle.
//
// ## Why not just use sync.Cond and a WaitGroup?
//
// Because native condition variables permit spurious wakeups and an
// unspecified choice of which waiter a Signal wakes, there is no moment at
// which an outside observer can conclude "nothing further is about to
// happen as a result of this signal." This package reimplements condition
// variables on top of its own semaphore primitive, which does expose an
// exact pending-wakeup count, and it is that count the idleness evaluator
// consumes. See Cond for the construction.
//
// ## Components
//
// The registry (registry.go) holds every known thread, semaphore, and
// condition variable, keyed by the identity of the Go value itself. The
// evaluator (evaluator.go) is a pure function over that registry deciding
// whether to flip the gate (gate.go), which owns the state file and its
// lock. Every wrapped primitive mutates the registry and then calls into
// the evaluator, all of it serialized by a single reentrant Coordinator
// mutex (coordinator.go) - reentrant because the condition-variable shim
// calls back into the semaphore shim while already holding it.
package libidle
