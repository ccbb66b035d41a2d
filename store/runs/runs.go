package runs

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/store"
)

// DefaultHistoryLimit caps how many runs are returned when listing history
// without an explicit limit.
const DefaultHistoryLimit = 20

// RunStore persists runs and their environment results, and answers history queries.
type RunStore struct {
	db *store.DB
	logger.Log
}

func NewStore(db *store.DB, logFactory logger.LogFactory) *RunStore {
	return &RunStore{
		db:  db,
		Log: logFactory("run_store"),
	}
}

// RecordRunStarted persists a new run record, setting run.ID on success.
func (d *RunStore) RecordRunStarted(ctx context.Context, run *models.Run) error {
	return d.db.Write(nil, func(db store.Writer) error {
		requested, err := run.Requested.Value()
		if err != nil {
			return fmt.Errorf("error serializing requested environments: %w", err)
		}
		query := db.Insert(goqu.T("runs")).Rows(
			goqu.Record{
				"run_created_at":           run.CreatedAt,
				"run_manifest_fingerprint": run.ManifestFingerprint,
				"run_requested":            requested,
				"run_status":               run.Status,
				"run_error":                run.Error,
			})
		result, err := query.Executor().ExecContext(ctx)
		if err != nil {
			return gerror.NewErrHistoryUnavailable("Failed to record run", store.MakeStandardDBError(err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			// Postgres does not support LastInsertId; read the id back.
			return d.readLastRunID(ctx, db, run)
		}
		run.ID = models.RunID(id)
		return nil
	})
}

// readLastRunID reads back the id of the run that was just inserted, for drivers
// that do not report LastInsertId.
func (d *RunStore) readLastRunID(ctx context.Context, db store.Reader, run *models.Run) error {
	var id int64
	found, err := db.From(goqu.T("runs")).
		Select(goqu.I("run_id")).
		Where(goqu.Ex{"run_created_at": run.CreatedAt}).
		Order(goqu.I("run_id").Desc()).
		Limit(1).
		ScanValContext(ctx, &id)
	if err != nil {
		return gerror.NewErrHistoryUnavailable("Failed to read back run id", store.MakeStandardDBError(err))
	}
	if !found {
		return gerror.NewErrHistoryUnavailable("Failed to read back run id", nil)
	}
	run.ID = models.RunID(id)
	return nil
}

// RecordEnvResult persists the finished result of one environment within a run.
func (d *RunStore) RecordEnvResult(ctx context.Context, runID models.RunID, result *models.EnvResult) error {
	return d.db.Write(nil, func(db store.Writer) error {
		query := db.Insert(goqu.T("env_results")).Rows(
			goqu.Record{
				"env_result_run_id":      runID,
				"env_result_name":        result.Name,
				"env_result_status":      result.Status,
				"env_result_error":       result.Error,
				"env_result_started_at":  result.StartedAt,
				"env_result_finished_at": result.FinishedAt,
			})
		_, err := query.Executor().ExecContext(ctx)
		if err != nil {
			return gerror.NewErrHistoryUnavailable("Failed to record environment result", store.MakeStandardDBError(err))
		}
		return nil
	})
}

// RecordRunFinished persists the final status of a run.
func (d *RunStore) RecordRunFinished(ctx context.Context, run *models.Run) error {
	if !run.ID.Valid() {
		return gerror.NewErrValidationFailed("Run has no id; was it recorded as started?")
	}
	return d.db.Write(nil, func(db store.Writer) error {
		query := db.Update(goqu.T("runs")).
			Set(goqu.Record{
				"run_finished_at": run.FinishedAt,
				"run_status":      run.Status,
				"run_error":       run.Error,
			}).
			Where(goqu.Ex{"run_id": run.ID})
		_, err := query.Executor().ExecContext(ctx)
		if err != nil {
			return gerror.NewErrHistoryUnavailable("Failed to record run as finished", store.MakeStandardDBError(err))
		}
		return nil
	})
}

// ListRuns returns the most recent runs, newest first. If envName is non-empty
// only runs that include a result for that environment are returned. A limit
// of zero or less applies DefaultHistoryLimit.
func (d *RunStore) ListRuns(ctx context.Context, envName models.ResourceName, limit int) ([]*models.Run, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	var runs []*models.Run
	err := d.db.Read(nil, func(db store.Reader) error {
		query := db.From(goqu.T("runs")).
			Select(&models.Run{}).
			Order(goqu.I("run_created_at").Desc(), goqu.I("run_id").Desc()).
			Limit(uint(limit))
		if envName != "" {
			resultsSubQuery := db.From(goqu.T("env_results")).
				Select(goqu.I("env_result_run_id")).
				Where(goqu.Ex{"env_result_name": envName})
			query = query.Where(goqu.I("run_id").In(resultsSubQuery))
		}
		sql, args, err := query.ToSQL()
		if err != nil {
			return fmt.Errorf("error building list query: %w", err)
		}
		return db.ScanStructsContext(ctx, &runs, sql, args...)
	})
	if err != nil {
		return nil, gerror.NewErrHistoryUnavailable("Failed to list runs", store.MakeStandardDBError(err))
	}
	return runs, nil
}

// ReadRun reads an existing run by id.
// Returns a not found error if the run does not exist.
func (d *RunStore) ReadRun(ctx context.Context, id models.RunID) (*models.Run, error) {
	run := &models.Run{}
	err := d.db.Read(nil, func(db store.Reader) error {
		query := db.From(goqu.T("runs")).
			Select(&models.Run{}).
			Where(goqu.Ex{"run_id": id})
		sql, args, err := query.ToSQL()
		if err != nil {
			return fmt.Errorf("error building read query: %w", err)
		}
		found, err := db.ScanStructContext(ctx, run, sql, args...)
		if err != nil {
			return gerror.NewErrHistoryUnavailable("Failed to read run", store.MakeStandardDBError(err))
		}
		if !found {
			return gerror.NewErrNotFound(fmt.Sprintf("Run %d not found", id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListEnvResults returns the environment results recorded for a run, in the
// order they were recorded.
func (d *RunStore) ListEnvResults(ctx context.Context, runID models.RunID) ([]*models.EnvResult, error) {
	var results []*models.EnvResult
	err := d.db.Read(nil, func(db store.Reader) error {
		query := db.From(goqu.T("env_results")).
			Select(&models.EnvResult{}).
			Where(goqu.Ex{"env_result_run_id": runID}).
			Order(goqu.I("env_result_id").Asc())
		sql, args, err := query.ToSQL()
		if err != nil {
			return fmt.Errorf("error building list query: %w", err)
		}
		return db.ScanStructsContext(ctx, &results, sql, args...)
	})
	if err != nil {
		return nil, gerror.NewErrHistoryUnavailable("Failed to list environment results", store.MakeStandardDBError(err))
	}
	return results, nil
}
