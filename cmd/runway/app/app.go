package app

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/engine"
	"github.com/runwayhq/runway/provision"
	"github.com/runwayhq/runway/store"
	"github.com/runwayhq/runway/store/migrations"
	"github.com/runwayhq/runway/store/runs"
)

// logSafeFlags lists the flags whose values may appear in the log file. Values
// of any other flag are masked when logging the startup arguments.
var logSafeFlags = []string{
	"workdir", "verbose", "force", "parallel", "debug", "json", "log-levels",
	"env", "limit", "pattern", "exclude", "failfast", "forever", "findleaks",
	"coverage", "quiet", "tests", "checks", "all",
}

// App holds the shared pieces of a runway invocation: logging and the run
// history store. Schedulers are built per command via NewScheduler since the
// executor config depends on the manifest.
type App struct {
	Config      *RunwayConfig
	LogRegistry *logger.LogRegistry
	LogFactory  logger.LogFactory
	// DB and RunStore are nil when the history database could not be opened.
	// Run history is best effort and never fails a run.
	DB       *store.DB
	RunStore *runs.RunStore
}

// New builds an App from the supplied config, creating the work directory and
// opening the history database. The returned cleanup function must be called
// once the command is done.
func New(ctx context.Context, config *RunwayConfig) (*App, func(), error) {
	err := os.MkdirAll(config.WorkDir, 0770)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error making work directory %q", config.WorkDir)
	}

	logRegistry, err := logger.NewLogRegistry(config.LogLevels)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating log registry")
	}

	var logFactory logger.LogFactory
	if config.Verbose {
		logFactory = logger.MakeLogrusLogFactoryStdOut(logRegistry)
	} else {
		logFactory, err = logger.MakeLogrusLogFactoryToFile(logRegistry, config.LogFilePath)
		if err != nil {
			return nil, nil, err
		}
	}
	log := logFactory("App")
	log.Infof("Starting with args: %v", util.FilterOSArgs(os.Args, logSafeFlags))

	app := &App{
		Config:      config,
		LogRegistry: logRegistry,
		LogFactory:  logFactory,
	}

	var cleanupFns []func()
	db, dbCleanup, err := openHistoryDatabase(ctx, config, logFactory)
	if err != nil {
		// The history database is effectively a cache; a run must not fail
		// because history is unavailable.
		log.Warnf("Run history will be unavailable: %s", err)
	} else {
		app.DB = db
		app.RunStore = runs.NewStore(db, logFactory)
		cleanupFns = append(cleanupFns, dbCleanup)
	}

	cleanup := func() {
		for i := len(cleanupFns) - 1; i >= 0; i-- {
			cleanupFns[i]()
		}
	}
	return app, cleanup, nil
}

// openHistoryDatabase opens the local sqlite history database, running
// migrations. At the first sign of trouble the database file is blown away
// and we try once more.
func openHistoryDatabase(ctx context.Context, config *RunwayConfig, logFactory logger.LogFactory) (*store.DB, func(), error) {
	migrationRunner := migrations.NewRunwayMigrateRunner(logFactory)
	db, cleanup, err := store.NewDatabase(ctx, config.DatabaseConfig, migrationRunner)
	if err != nil {
		os.Remove(config.DatabaseFilePath)
		db, cleanup, err = store.NewDatabase(ctx, config.DatabaseConfig, migrationRunner)
		if err != nil {
			return nil, nil, err
		}
	}
	return db, cleanup, nil
}

// RunRecorder returns the history store if available, or a no-op recorder.
func (a *App) RunRecorder() engine.RunRecorder {
	if a.RunStore != nil {
		return a.RunStore
	}
	return engine.NewNoOpRunRecorder()
}

// NewScheduler builds a scheduler wired for the supplied manifest.
// Set force to reprovision environments regardless of their fingerprints.
// listener may be nil; plaintext optionally receives each log line as it happens.
func (a *App) NewScheduler(manifest *models.Manifest, force bool, listener engine.RunListener, plaintext io.Writer) *engine.Scheduler {
	provisioner := provision.NewProvisioner(provision.Config{Force: force}, a.LogFactory)
	executorFactory := engine.MakeExecutorFactory(engine.ExecutorConfig{
		WorkDir:         a.Config.WorkDir,
		WorkspaceDir:    a.Config.WorkspaceDir,
		InstallCommand:  models.Command(manifest.InstallCommand),
		PlaintextOutput: plaintext,
	}, provisioner, a.LogFactory)
	orchestratorFactory := engine.MakeOrchestratorFactory(executorFactory, a.LogFactory)

	schedulerConfig := a.Config.SchedulerConfig
	schedulerConfig.Listener = listener
	return engine.NewScheduler(orchestratorFactory, a.RunRecorder(), a.LogFactory, schedulerConfig)
}
