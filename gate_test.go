package libidle

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateBusyThenIdlePublishesCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	g, err := openGate(path)
	require.NoError(t, err)
	defer g.close()

	assert.False(t, g.locked)
	require.NoError(t, g.busyTransition())
	assert.True(t, g.locked)

	require.NoError(t, g.idleTransition())
	assert.False(t, g.locked)
	assert.EqualValues(t, 1, g.timesIdle)

	require.NoError(t, g.busyTransition())
	require.NoError(t, g.idleTransition())
	assert.EqualValues(t, 2, g.timesIdle)
}

func TestReadStateFileMatchesPublishedCounter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	g, err := openGate(path)
	require.NoError(t, err)
	defer g.close()

	require.NoError(t, g.busyTransition())
	require.NoError(t, g.idleTransition())

	v, err := ReadStateFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
}

func TestReadStateFileOnUnwrittenFileIsZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	v, err := ReadStateFile(path)
	require.NoError(t, err)
	assert.Zero(t, v)
}
