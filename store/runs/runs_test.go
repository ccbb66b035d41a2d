package runs

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/store"
	"github.com/runwayhq/runway/store/migrations"
)

func connectTestDB(t *testing.T) (*RunStore, logger.LogFactory) {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)

	connectionString := fmt.Sprintf("file:%s?cache=shared&_foreign_keys=1&parseTime=true",
		filepath.Join(t.TempDir(), "history.db"))
	databaseConfig := store.DatabaseConfig{
		ConnectionString:   store.DatabaseConnectionString(connectionString),
		Driver:             store.Sqlite,
		MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
		MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
	}
	migrationRunner := migrations.NewRunwayMigrateRunner(logFactory)
	db, cleanup, err := store.NewDatabase(context.Background(), databaseConfig, migrationRunner)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	return NewStore(db, logFactory), logFactory
}

func TestRunStore_RecordAndRead(t *testing.T) {
	runStore, _ := connectTestDB(t)
	ctx := context.Background()

	run := &models.Run{
		CreatedAt:           models.NewTime(time.Now().UTC()),
		ManifestFingerprint: "cafef00d",
		Requested:           models.ResourceNames{"build", "test"},
		Status:              models.StatusRunning,
	}
	err := runStore.RecordRunStarted(ctx, run)
	require.NoError(t, err)
	require.True(t, run.ID.Valid())

	started := models.NewTime(time.Now().UTC())
	result := &models.EnvResult{
		RunID:      run.ID,
		Name:       "build",
		Status:     models.StatusSucceeded,
		StartedAt:  started,
		FinishedAt: models.NewTimePtr(started.Add(2 * time.Second)),
	}
	err = runStore.RecordEnvResult(ctx, run.ID, result)
	require.NoError(t, err)

	run.Status = models.StatusSucceeded
	run.FinishedAt = models.NewTimePtr(time.Now().UTC())
	err = runStore.RecordRunFinished(ctx, run)
	require.NoError(t, err)

	read, err := runStore.ReadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, read.ID)
	assert.Equal(t, models.StatusSucceeded, read.Status)
	assert.Equal(t, "cafef00d", read.ManifestFingerprint)
	assert.Equal(t, models.ResourceNames{"build", "test"}, read.Requested)
	require.NotNil(t, read.FinishedAt)

	results, err := runStore.ListEnvResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, models.ResourceName("build"), results[0].Name)
	assert.Equal(t, models.StatusSucceeded, results[0].Status)
	assert.Equal(t, 2*time.Second, results[0].Duration())
}

func TestRunStore_ReadRun_NotFound(t *testing.T) {
	runStore, _ := connectTestDB(t)

	_, err := runStore.ReadRun(context.Background(), models.RunID(12345))
	require.Error(t, err)
	assert.True(t, gerror.IsNotFound(err))
}

func TestRunStore_ListRuns(t *testing.T) {
	runStore, _ := connectTestDB(t)
	ctx := context.Background()

	makeRun := func(requested models.ResourceNames, createdAt time.Time) *models.Run {
		run := &models.Run{
			CreatedAt:           models.NewTime(createdAt),
			ManifestFingerprint: "cafef00d",
			Requested:           requested,
			Status:              models.StatusRunning,
		}
		require.NoError(t, runStore.RecordRunStarted(ctx, run))
		return run
	}

	base := time.Now().UTC().Add(-time.Hour)
	first := makeRun(models.ResourceNames{"build"}, base)
	second := makeRun(models.ResourceNames{"lint"}, base.Add(time.Minute))

	require.NoError(t, runStore.RecordEnvResult(ctx, first.ID, &models.EnvResult{
		RunID:     first.ID,
		Name:      "build",
		Status:    models.StatusSucceeded,
		StartedAt: models.NewTime(base),
	}))
	require.NoError(t, runStore.RecordEnvResult(ctx, second.ID, &models.EnvResult{
		RunID:     second.ID,
		Name:      "lint",
		Status:    models.StatusFailed,
		StartedAt: models.NewTime(base.Add(time.Minute)),
	}))

	// Newest first
	runs, err := runStore.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	// Filtered to runs containing a result for one environment
	runs, err = runStore.ListRuns(ctx, "lint", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)

	// Limit applies
	runs, err = runStore.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)
}
