package exec

import (
	"bytes"
	"context"
	hRuntime "runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/engine/runtime"
)

func newTestRuntime(t *testing.T) *Runtime {
	dir := t.TempDir()
	return NewRuntime(Config{
		Config: runtime.Config{
			RuntimeID:    "test",
			StagingDir:   dir,
			WorkspaceDir: dir,
		},
	})
}

func TestExec(t *testing.T) {
	if hRuntime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	rt := newTestRuntime(t)
	var stdout bytes.Buffer

	err := rt.Exec(context.Background(), runtime.ExecConfig{
		Name:     "hello",
		Commands: []string{"echo hello"},
		Stdout:   &stdout,
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "hello")
}

func TestExec_NonZeroExit(t *testing.T) {
	if hRuntime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	rt := newTestRuntime(t)

	err := rt.Exec(context.Background(), runtime.ExecConfig{
		Name:     "fails",
		Commands: []string{"exit 7"},
	})
	require.Error(t, err)
	assert.True(t, gerror.IsCommandFailed(err))
}

func TestExec_CancellationKillsChildProcesses(t *testing.T) {
	if hRuntime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	rt := newTestRuntime(t)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	var stdout bytes.Buffer
	start := time.Now()
	// The sleep holds the output pipes open; only killing the process group
	// makes Exec return before the sleep finishes.
	err := rt.Exec(ctx, runtime.ExecConfig{
		Name:     "slow",
		Commands: []string{"sleep 30"},
		Stdout:   &stdout,
		Stderr:   &stdout,
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, gerror.IsCommandFailed(err))
	assert.Less(t, elapsed, 10*time.Second)
}
