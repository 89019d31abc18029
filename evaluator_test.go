package libidle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluatorInitialStateIsBusy(t *testing.T) {
	c := newTestCore(t)
	idle, err := c.TimesIdle()
	require.NoError(t, err)
	assert.Zero(t, idle, "a Core with its initial thread still active has not gone idle yet")
}

func TestEvaluatorTerminatingLastThreadGoesIdle(t *testing.T) {
	c := newTestCore(t)
	h := c.RegisterThread()
	h.MarkTerminated()

	idle, err := c.TimesIdle()
	require.NoError(t, err)
	assert.EqualValues(t, 1, idle)
}

func TestEvaluatorForcedIdleExcludesThreadWithoutBlocking(t *testing.T) {
	c := newTestCore(t)
	c.EnableForcedIdle()

	idle, err := c.TimesIdle()
	require.NoError(t, err)
	assert.EqualValues(t, 1, idle, "forced idle must flip the gate even though the thread never blocked on anything")

	c.DisableForcedIdle()
	idle, err = c.TimesIdle()
	require.NoError(t, err)
	assert.EqualValues(t, 1, idle, "re-activating keeps the counter where it was; it only increments on idle transitions")
}

func TestEvaluatorRegisteringNewThreadWhileIdleGoesBusyAgain(t *testing.T) {
	c := newTestCore(t)
	h := c.RegisterThread()
	h.MarkTerminated()
	idle, _ := c.TimesIdle()
	require.EqualValues(t, 1, idle)

	done := make(chan struct{})
	go func() {
		c.RegisterThread()
		close(done)
	}()
	<-done

	require.Eventually(t, func() bool {
		c.coordinator.Lock()
		defer c.coordinator.Unlock()
		return c.gate.locked
	}, time.Second, time.Millisecond, "a freshly registered active thread must re-lock the gate")
}
