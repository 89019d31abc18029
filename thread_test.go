package libidle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingPropagatesResultAndBracketsState(t *testing.T) {
	c := newTestCore(t)
	sentinel := errors.New("boom")

	handles := make(chan *ThreadHandle, 1)
	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	var got error
	go func() {
		handles <- c.RegisterThread()
		got = c.Blocking(func() error {
			close(inside)
			<-release
			return sentinel
		})
		close(done)
	}()
	h := <-handles
	<-inside

	require.Eventually(t, func() bool {
		c.coordinator.Lock()
		defer c.coordinator.Unlock()
		return h.rec.sleeping
	}, time.Second, time.Millisecond, "Blocking must mark the calling goroutine's thread record sleeping for the duration of fn")

	close(release)
	<-done
	assert.Same(t, sentinel, got)

	c.coordinator.Lock()
	sleeping := h.rec.sleeping
	c.coordinator.Unlock()
	assert.False(t, sleeping, "Blocking clears sleeping once fn returns")
}

func TestJoinRunsFnAndClearsBlockedOnReturn(t *testing.T) {
	c := newTestCore(t)
	ran := false
	c.Join(func() { ran = true })
	assert.True(t, ran)

	c.coordinator.Lock()
	active := c.registry.activeThreads()
	c.coordinator.Unlock()
	assert.Equal(t, 1, active, "the caller is active again once Join returns")
}

func TestRegisterThreadIsIdempotentPerGoroutine(t *testing.T) {
	c := newTestCore(t)
	h1 := c.RegisterThread()
	h2 := c.RegisterThread()
	assert.Same(t, h1.rec, h2.rec, "two calls from the same goroutine resolve the same record")
}

func TestMarkTerminatedExcludesFromActiveThreads(t *testing.T) {
	c := newTestCore(t)
	done := make(chan struct{})
	go func() {
		h := c.RegisterThread()
		h.MarkTerminated()
		close(done)
	}()
	<-done

	c.coordinator.Lock()
	n := len(c.registry.threads)
	active := c.registry.activeThreads()
	c.coordinator.Unlock()
	assert.Equal(t, 2, n, "the terminated thread's record is retained, not removed")
	assert.Equal(t, 1, active, "only the still-running initial thread counts as active")
}
