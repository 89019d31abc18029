package libidle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondBroadcastWakesAllWaiters(t *testing.T) {
	c := newTestCore(t)
	cond := c.NewCond()
	var mu sync.Mutex

	const n = 5
	woken := make(chan int, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			mu.Lock()
			cond.Wait(&mu)
			mu.Unlock()
			woken <- i
		}(i)
	}

	require.Eventually(t, func() bool {
		c.coordinator.Lock()
		defer c.coordinator.Unlock()
		return cond.sleepingThreads == n
	}, time.Second, time.Millisecond, "all waiters should register before broadcast")

	cond.Broadcast()

	for i := 0; i < n; i++ {
		select {
		case <-woken:
		case <-time.After(time.Second):
			t.Fatalf("waiter %d never woke", i)
		}
	}
}

func TestCondBroadcastWithNoWaitersIsNoop(t *testing.T) {
	c := newTestCore(t)
	cond := c.NewCond()
	cond.Broadcast()
	cond.Broadcast()
	cond.Destroy()
}

func TestCondSignalPromotesToBroadcast(t *testing.T) {
	c := newTestCore(t)
	cond := c.NewCond()
	var mu sync.Mutex

	done := make(chan struct{})
	go func() {
		mu.Lock()
		cond.Wait(&mu)
		mu.Unlock()
		close(done)
	}()

	require.Eventually(t, func() bool {
		c.coordinator.Lock()
		defer c.coordinator.Unlock()
		return cond.sleepingThreads == 1
	}, time.Second, time.Millisecond)

	cond.Signal()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter never woke from Signal")
	}
}

func TestCondTimedWaitExpiryStillBalancesOut(t *testing.T) {
	c := newTestCore(t)
	cond := c.NewCond()
	var mu sync.Mutex

	mu.Lock()
	acquired := cond.TimedWait(&mu, 10*time.Millisecond)
	mu.Unlock()
	assert.False(t, acquired)

	// The timed-out waiter is still counted in sleepingThreads, so the next
	// broadcast waits for one token on OUT; if TimedWait's expiry path had
	// failed to post OUT, this would hang waiting on a token that never
	// arrives.
	done := make(chan struct{})
	go func() {
		cond.Broadcast()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast hung after a timed-out wait")
	}
}

func TestCondDestroyWithActiveWaiterPanics(t *testing.T) {
	c := newTestCore(t)
	cond := c.NewCond()
	var mu sync.Mutex

	go func() {
		mu.Lock()
		cond.Wait(&mu)
		mu.Unlock()
	}()

	require.Eventually(t, func() bool {
		c.coordinator.Lock()
		defer c.coordinator.Unlock()
		return cond.sleepingThreads == 1
	}, time.Second, time.Millisecond)

	assert.Panics(t, func() { cond.Destroy() })
	cond.Broadcast()
}
