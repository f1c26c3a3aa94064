package proc

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempPIDFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "devstack.pids"))
}

func TestAppendAndEntries(t *testing.T) {
	f := tempPIDFile(t)

	require.NoError(t, f.Append(Entry{PID: 1234, Name: "tunnel"}))
	require.NoError(t, f.Append(Entry{PID: 5678, Name: "forward argocd"}))

	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{PID: 1234, Name: "tunnel"}, entries[0])
	assert.Equal(t, Entry{PID: 5678, Name: "forward argocd"}, entries[1])
}

func TestEntriesMissingFile(t *testing.T) {
	f := tempPIDFile(t)
	entries, err := f.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEntriesSkipsMalformedLines(t *testing.T) {
	f := tempPIDFile(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(f.Path()), 0o750))
	require.NoError(t, os.WriteFile(f.Path(), []byte("garbage\n42 ok\n-1 bad\n\n"), 0o644))

	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 42, entries[0].PID)
}

func TestAppendRejectsInvalidPID(t *testing.T) {
	f := tempPIDFile(t)
	require.Error(t, f.Append(Entry{PID: 0, Name: "x"}))
}

func TestRemove(t *testing.T) {
	f := tempPIDFile(t)
	require.NoError(t, f.Append(Entry{PID: 1, Name: "a"}))
	require.NoError(t, f.Append(Entry{PID: 2, Name: "b"}))

	require.NoError(t, f.Remove(1))

	entries, err := f.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].PID)

	// Removing the last entry deletes the file.
	require.NoError(t, f.Remove(2))
	_, statErr := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveUntracked(t *testing.T) {
	f := tempPIDFile(t)
	require.NoError(t, f.Append(Entry{PID: 1, Name: "a"}))
	assert.ErrorIs(t, f.Remove(99), ErrNotTracked)
}

func TestAliveAndTerminate(t *testing.T) {
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	defer func() { _ = cmd.Process.Kill() }()

	assert.True(t, Alive(pid))
	require.NoError(t, Terminate(pid, 2*time.Second))
	_ = cmd.Wait()
	assert.False(t, Alive(pid))

	// Terminating an already-dead process is a no-op.
	require.NoError(t, Terminate(pid, time.Second))
}

func TestStopAllPrunesDeadAndStopsLive(t *testing.T) {
	f := tempPIDFile(t)

	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	defer func() { _ = cmd.Process.Kill() }()

	require.NoError(t, f.Append(Entry{PID: cmd.Process.Pid, Name: "live"}))
	// A PID that is almost certainly not running.
	require.NoError(t, f.Append(Entry{PID: 1 << 21, Name: "dead"}))

	stopped, err := f.StopAll(2 * time.Second)
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	assert.Equal(t, "live", stopped[0].Name)

	_ = cmd.Wait()
	assert.False(t, Alive(cmd.Process.Pid))

	_, statErr := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(statErr))
}
