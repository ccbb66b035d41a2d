package app

import (
	"fmt"
	"path/filepath"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/engine"
	"github.com/runwayhq/runway/store"
)

// DefaultWorkDirName is the directory created inside the workspace to hold
// runway's state: per-environment dirs, log files and the history database.
const DefaultWorkDirName = ".runway"

type RunwayConfig struct {
	// WorkspaceDir is the project directory containing the manifest.
	WorkspaceDir string
	// WorkDir is the state directory, typically <workspace>/.runway.
	WorkDir          string
	LogFilePath      logger.LogFilePath
	LogLevels        logger.LogLevelConfig
	DatabaseConfig   store.DatabaseConfig
	DatabaseFilePath string
	SchedulerConfig  engine.SchedulerConfig
	JSON             bool
	Verbose          bool
}

func NewRunwayConfig(workspaceDir string, workDir string, verbose bool, jsonOutput bool, logLevels string) *RunwayConfig {
	if workDir == "" {
		workDir = filepath.Join(workspaceDir, DefaultWorkDirName)
	}
	databaseFilePath := filepath.Join(workDir, "history.db")

	return &RunwayConfig{
		WorkspaceDir: workspaceDir,
		WorkDir:      workDir,
		LogFilePath:  logger.LogFilePath(filepath.Join(workDir, "runway.log")),
		LogLevels:    logger.LogLevelConfig(logLevels),
		DatabaseConfig: store.DatabaseConfig{
			ConnectionString:   store.DatabaseConnectionString(fmt.Sprintf("file:%s?cache=shared&_foreign_keys=1&parseTime=true", databaseFilePath)),
			Driver:             store.Sqlite,
			MaxIdleConnections: store.DefaultDatabaseMaxIdleConnections,
			MaxOpenConnections: store.DefaultDatabaseMaxOpenConnections,
		},
		DatabaseFilePath: databaseFilePath,
		SchedulerConfig: engine.SchedulerConfig{
			ParallelEnvironments: engine.DefaultParallelEnvironments,
		},
		JSON:    jsonOutput,
		Verbose: verbose,
	}
}
