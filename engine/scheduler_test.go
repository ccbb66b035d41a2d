package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/provision"
)

func newTestScheduler(t *testing.T, workDir string) *Scheduler {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)

	provisioner := provision.NewProvisioner(provision.Config{}, logFactory)
	executorFactory := MakeExecutorFactory(ExecutorConfig{
		WorkDir:      workDir,
		WorkspaceDir: workDir,
	}, provisioner, logFactory)
	orchestratorFactory := MakeOrchestratorFactory(executorFactory, logFactory)
	return NewScheduler(orchestratorFactory, NewNoOpRunRecorder(), logFactory, SchedulerConfig{})
}

func TestScheduler_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	workDir := t.TempDir()
	manifest := &models.Manifest{
		Version: "0.1",
		Environments: []*models.Environment{
			{
				Name:     "build",
				Commands: models.Commands{"echo building", "true"},
			},
			{
				Name:     "test",
				Commands: models.Commands{"echo testing"},
				Depends:  []models.ResourceName{"build"},
			},
		},
	}

	scheduler := newTestScheduler(t, workDir)
	result, err := scheduler.Run(context.Background(), manifest, nil)
	require.NoError(t, err)
	require.Len(t, result.EnvResults, 2)
	assert.False(t, result.Failed())
	assert.Equal(t, models.StatusSucceeded, result.Run.Status)

	// Results are in dependency order
	assert.Equal(t, models.ResourceName("build"), result.EnvResults[0].Name)
	assert.Equal(t, models.ResourceName("test"), result.EnvResults[1].Name)
	for _, envResult := range result.EnvResults {
		assert.Equal(t, models.StatusSucceeded, envResult.Status)
		require.NotNil(t, envResult.FinishedAt)
	}
	require.Len(t, result.EnvResults[0].CommandResults, 2)
	assert.Equal(t, models.StatusSucceeded, result.EnvResults[0].CommandResults[0].Status)

	// The environment's structured log file was written
	logFile := filepath.Join(workDir, "envs", "build", "logs", "build.log")
	info, err := os.Stat(logFile)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestScheduler_Run_DependencyFailureSkipsDependents(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	manifest := &models.Manifest{
		Version: "0.1",
		Environments: []*models.Environment{
			{
				Name:     "build",
				Commands: models.Commands{"exit 3", "echo never runs"},
			},
			{
				Name:     "test",
				Commands: models.Commands{"echo testing"},
				Depends:  []models.ResourceName{"build"},
			},
		},
	}

	scheduler := newTestScheduler(t, t.TempDir())
	result, err := scheduler.Run(context.Background(), manifest, nil)
	require.NoError(t, err)
	require.Len(t, result.EnvResults, 2)
	assert.True(t, result.Failed())
	assert.Equal(t, models.StatusFailed, result.Run.Status)
	require.True(t, result.Run.Error.Valid())

	buildResult := result.EnvResults[0]
	assert.Equal(t, models.StatusFailed, buildResult.Status)
	require.Len(t, buildResult.CommandResults, 2)
	assert.Equal(t, models.StatusFailed, buildResult.CommandResults[0].Status)
	assert.Equal(t, 3, buildResult.CommandResults[0].ExitCode)
	assert.Equal(t, models.StatusSkipped, buildResult.CommandResults[1].Status)

	testResult := result.EnvResults[1]
	assert.Equal(t, models.StatusSkipped, testResult.Status)
	require.True(t, testResult.Error.Valid())
}

func TestScheduler_Run_CancellationRecordsEveryEnvironment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	manifest := &models.Manifest{
		Version: "0.1",
		Environments: []*models.Environment{
			{Name: "one", Commands: models.Commands{"sleep 30"}},
			{Name: "two", Commands: models.Commands{"sleep 30"}},
			{Name: "three", Commands: models.Commands{"sleep 30"}},
		},
	}

	workDir := t.TempDir()
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)
	provisioner := provision.NewProvisioner(provision.Config{}, logFactory)
	executorFactory := MakeExecutorFactory(ExecutorConfig{
		WorkDir:      workDir,
		WorkspaceDir: workDir,
	}, provisioner, logFactory)
	orchestratorFactory := MakeOrchestratorFactory(executorFactory, logFactory)
	// One environment at a time, so the others are waiting when we cancel
	scheduler := NewScheduler(orchestratorFactory, NewNoOpRunRecorder(), logFactory,
		SchedulerConfig{ParallelEnvironments: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(500 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result, err := scheduler.Run(ctx, manifest, nil)
	elapsed := time.Since(start)
	require.NoError(t, err)

	// The run returns promptly rather than waiting out the sleeps
	assert.Less(t, elapsed, 15*time.Second)
	assert.Equal(t, models.StatusCanceled, result.Run.Status)

	// Every environment has a finished result, including those canceled
	// while waiting their turn to run
	require.Len(t, result.EnvResults, 3)
	canceled := 0
	for _, envResult := range result.EnvResults {
		assert.True(t, envResult.Status.HasFinished())
		assert.NotEqual(t, models.StatusSucceeded, envResult.Status)
		if envResult.Status == models.StatusCanceled {
			canceled++
		}
	}
	assert.GreaterOrEqual(t, canceled, 2)
}

func TestScheduler_Run_UnknownEnvironment(t *testing.T) {
	manifest := &models.Manifest{
		Version: "0.1",
		Environments: []*models.Environment{
			{Name: "build", Commands: models.Commands{"true"}},
		},
	}
	scheduler := newTestScheduler(t, t.TempDir())
	_, err := scheduler.Run(context.Background(), manifest, []models.ResourceName{"nope"})
	require.Error(t, err)
	assert.True(t, gerror.IsNotFound(err))
}

func TestScheduler_Run_RequestedIncludesDependencies(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	manifest := &models.Manifest{
		Version: "0.1",
		Environments: []*models.Environment{
			{Name: "base", Commands: models.Commands{"true"}},
			{Name: "lint", Commands: models.Commands{"true"}, Depends: []models.ResourceName{"base"}},
			{Name: "unrelated", Commands: models.Commands{"true"}},
		},
	}
	scheduler := newTestScheduler(t, t.TempDir())
	result, err := scheduler.Run(context.Background(), manifest, []models.ResourceName{"lint"})
	require.NoError(t, err)
	require.Len(t, result.EnvResults, 2)
	assert.Equal(t, models.ResourceName("base"), result.EnvResults[0].Name)
	assert.Equal(t, models.ResourceName("lint"), result.EnvResults[1].Name)
}
