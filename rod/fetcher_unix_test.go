//go:build integration && !windows

package rod_test

import (
	"syscall"
	"testing"
	"time"

	"github.com/fwojciec/calregs/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// alive reports whether a process with pid exists. Signal 0 performs the
// existence check without delivering anything.
func alive(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

func TestFetcher_CloseStopsBrowser(t *testing.T) {
	t.Parallel()

	f, err := rod.NewFetcher(rod.WithRecycleAfter(1))
	require.NoError(t, err)

	pid := f.LauncherPID()
	require.NotZero(t, pid)
	require.True(t, alive(pid), "browser should run until Close")

	require.NoError(t, f.Close())

	assert.Eventually(t, func() bool { return !alive(pid) }, 2*time.Second, 50*time.Millisecond,
		"browser process %d still running after Close", pid)
}
