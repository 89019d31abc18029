package libidle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestCore builds an independent Core backed by a state file under the
// test's temp directory, so tests never contend over a real process-wide
// path or leak file descriptors into other tests.
func newTestCore(t *testing.T) *Core {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state")
	c, err := Init(WithStateFile(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// retireCallingGoroutine marks the calling goroutine's own thread record
// terminated. Init registers whichever goroutine calls it as the initial
// active thread; tests that want to observe a worker goroutine driving the
// gate by itself call this first so the test goroutine - a bystander that
// never itself blocks through the library - does not keep the gate locked
// forever.
func retireCallingGoroutine(c *Core) {
	c.RegisterThread().MarkTerminated()
}
