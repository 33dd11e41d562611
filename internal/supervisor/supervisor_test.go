//go:build !windows

package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusWithoutPidFile(t *testing.T) {
	sup := New(t.TempDir())
	pid, running := sup.Status("worker")
	assert.False(t, running)
	assert.Zero(t, pid)
}

func TestStalePidFile(t *testing.T) {
	base := t.TempDir()
	sup := New(base)

	require.NoError(t, os.MkdirAll(filepath.Join(base, "run"), 0o755))
	// pid that cannot exist
	require.NoError(t, os.WriteFile(filepath.Join(base, "run", "worker.pid"), []byte("99999999"), 0o644))

	_, running := sup.Status("worker")
	assert.False(t, running)

	err := sup.Stop("worker")
	assert.ErrorIs(t, err, ErrNotRunning)
	assert.NoFileExists(t, filepath.Join(base, "run", "worker.pid"))
}

func TestGarbagePidFile(t *testing.T) {
	base := t.TempDir()
	sup := New(base)
	require.NoError(t, os.MkdirAll(filepath.Join(base, "run"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "run", "worker.pid"), []byte("not-a-pid"), 0o644))

	_, running := sup.Status("worker")
	assert.False(t, running)
}

func TestStartStopWorker(t *testing.T) {
	sup := New(t.TempDir())

	pid, err := sup.Start("worker", "sleep", "30")
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	gotPid, running := sup.Status("worker")
	assert.True(t, running)
	assert.Equal(t, pid, gotPid)

	// double start is rejected while the worker lives
	_, err = sup.Start("worker", "sleep", "30")
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, sup.Stop("worker"))

	require.Eventually(t, func() bool {
		_, running := sup.Status("worker")
		return !running
	}, 5*time.Second, 50*time.Millisecond)

	assert.ErrorIs(t, sup.Stop("worker"), ErrNotRunning)
}
