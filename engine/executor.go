package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/engine/logging"
	"github.com/runwayhq/runway/engine/runtime"
	"github.com/runwayhq/runway/engine/runtime/exec"
	"github.com/runwayhq/runway/provision"
)

type ExecutorFactory func(ctx context.Context) *Executor

func MakeExecutorFactory(
	config ExecutorConfig,
	provisioner *provision.Provisioner,
	logFactory logger.LogFactory) ExecutorFactory {
	return func(ctx context.Context) *Executor {
		return NewExecutor(config, provisioner, logFactory)
	}
}

type ExecutorConfig struct {
	// WorkDir is the state directory where per-environment dirs are created,
	// typically <project>/.runway.
	WorkDir string
	// WorkspaceDir is the project directory. Commands execute with this as
	// their working directory unless the environment overrides it.
	WorkspaceDir string
	// InstallCommand is the manifest's install command template, used to
	// provision environment dependencies.
	InstallCommand models.Command
	// PlaintextOutput optionally receives the plaintext of each log line in
	// addition to the environment's structured log file.
	PlaintextOutput io.Writer
}

// Executor executes the various lifecycle phases of an environment and is driven by the orchestrator.
type Executor struct {
	config      ExecutorConfig
	provisioner *provision.Provisioner
	logFactory  logger.LogFactory
	log         logger.Log
	state       struct {
		runtime    runtime.Runtime
		envRootDir string
		envDir     string
		scratchDir string
		logsDir    string
		stagingDir string
		envVars    []string
	}
}

func NewExecutor(
	config ExecutorConfig,
	provisioner *provision.Provisioner,
	logFactory logger.LogFactory) *Executor {
	return &Executor{
		config:      config,
		provisioner: provisioner,
		logFactory:  logFactory,
		log:         logFactory("Executor"),
	}
}

func (b *Executor) Close() {}

// PreExecuteEnv is called once per environment, before the first command is executed.
func (b *Executor) PreExecuteEnv(ctx *EnvContext) error {
	log := b.withEnvLogFields(b.log, ctx.env)
	log.Info("PreExecuteEnv")
	err := b.initFileSystem(ctx)
	if err != nil {
		return fmt.Errorf("error preparing environment directories: %w", err)
	}
	// Prepare the environment variables before calling initLogPipeline so the
	// pipeline knows which values to redact
	err = b.prepareEnvVars(ctx)
	if err != nil {
		return fmt.Errorf("error preparing environment variables: %w", err)
	}
	err = b.initLogPipeline(ctx)
	if err != nil {
		return fmt.Errorf("error initializing log pipeline: %w", err)
	}
	err = b.prepareRuntime(ctx)
	if err != nil {
		return fmt.Errorf("error preparing runtime: %w", err)
	}
	err = b.provisionEnv(ctx)
	if err != nil {
		return fmt.Errorf("error provisioning environment: %w", err)
	}
	return nil
}

// ExecuteCommand executes a single command of the environment, recording the
// outcome on the supplied result. Output flows into the environment's log
// under a block named after the command.
// ExecuteCommand is called after PreExecuteEnv, and only if PreExecuteEnv succeeded.
func (b *Executor) ExecuteCommand(ctx *EnvContext, result *models.CommandResult) error {
	log := b.withEnvLogFields(b.log, ctx.env).WithField("command", result.Name.String())
	log.Info("ExecuteCommand")

	sLog := ctx.LogPipeline().StructuredLogger().Wrap(result.Name.String(), result.Command.String())
	converter := ctx.LogPipeline().Converter(sLog.Block())
	defer converter.Close()

	config := runtime.ExecConfig{
		Name:     fmt.Sprintf("%s-%s", ctx.Env().Name, result.Name),
		Commands: []string{result.Command.String()},
		Env:      b.state.envVars,
		Stdout:   converter,
		Stderr:   converter,
	}
	return b.state.runtime.Exec(ctx.Ctx(), config)
}

// LogEnvError writes an error to the environment's log pipeline.
func (b *Executor) LogEnvError(ctx *EnvContext, envError error) {
	pipeline := ctx.LogPipeline() // this will always give us a valid pipeline
	// Write the error at the top level of the environment log, rather than inside a block
	pipeline.StructuredLogger().WriteError(envError.Error())
}

// PostExecuteEnv is called once per environment, after the last command is executed.
// PostExecuteEnv is always called if PreExecuteEnv was called, even if PreExecuteEnv
// failed, and must clean up any allocated resources.
func (b *Executor) PostExecuteEnv(ctx *EnvContext) error {
	log := b.withEnvLogFields(b.log, ctx.env)
	log.Info("PostExecuteEnv")

	cleanupCtx, cleanupCancel := getCleanupContext()
	defer cleanupCancel()

	var results *multierror.Error

	if b.state.runtime != nil {
		// Use cleanup context, not env context, so we still clean up even if the environment has timed out
		err := b.state.runtime.Stop(cleanupCtx)
		if err != nil {
			results = multierror.Append(results, fmt.Errorf("error stopping runtime: %w", err))
		}
	}

	err := b.cleanupFileSystem(ctx)
	if err != nil {
		results = multierror.Append(results, fmt.Errorf("error tearing down environment directories: %w", err))
	}

	// Always flush and close any open log pipeline
	ctx.LogPipeline().Flush()
	ctx.LogPipeline().Close()
	ctx.ClearLogPipeline() // ensure no further entries are sent to the closed pipeline

	return results.ErrorOrNil()
}

// CleanUpEnv removes all state recorded for the named environment, forcing it
// to be reprovisioned on its next run.
func CleanUpEnv(workDir string, name models.ResourceName) error {
	err := os.RemoveAll(EnvRootDir(workDir, name))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "error removing state for environment %q", name)
	}
	return nil
}

// CleanUpAll removes all recorded environment state under the work directory.
func CleanUpAll(workDir string) error {
	err := os.RemoveAll(filepath.Join(workDir, "envs"))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "error removing environment state")
	}
	return nil
}

// EnvRootDir returns the directory holding all state for the named environment.
func EnvRootDir(workDir string, name models.ResourceName) string {
	return filepath.Join(workDir, "envs", name.String())
}

func (b *Executor) initFileSystem(ctx *EnvContext) error {
	log := b.withEnvLogFields(b.log, ctx.env)
	b.state.envRootDir = EnvRootDir(b.config.WorkDir, ctx.Env().Name)
	b.state.envDir = filepath.Join(b.state.envRootDir, "env")
	b.state.scratchDir = filepath.Join(b.state.envRootDir, "scratch")
	b.state.logsDir = filepath.Join(b.state.envRootDir, "logs")
	b.state.stagingDir = filepath.Join(b.state.envRootDir, "staging")
	for _, dir := range []string{b.state.envDir, b.state.scratchDir, b.state.logsDir, b.state.stagingDir} {
		err := os.MkdirAll(dir, 0777)
		if err != nil {
			return errors.Wrapf(err, "error creating environment directory %q", dir)
		}
	}
	log.WithFields(logger.Fields{"env": b.state.envDir, "scratch": b.state.scratchDir, "logs": b.state.logsDir}).
		Info("Created filesystem directories")
	return nil
}

func (b *Executor) cleanupFileSystem(ctx *EnvContext) error {
	log := b.withEnvLogFields(b.log, ctx.env)
	var results *multierror.Error
	// The env dir persists between runs to avoid reprovisioning; staging and
	// scratch are transient.
	if b.state.stagingDir != "" {
		err := os.RemoveAll(b.state.stagingDir)
		if err != nil && !os.IsNotExist(err) {
			results = multierror.Append(results, errors.Wrap(err, "error destroying staging directory"))
		}
	}
	if b.state.scratchDir != "" {
		err := os.RemoveAll(b.state.scratchDir)
		if err != nil && !os.IsNotExist(err) {
			results = multierror.Append(results, errors.Wrap(err, "error destroying scratch directory"))
		}
	}
	log.Info("Cleaned filesystem")
	return results.ErrorOrNil()
}

// prepareEnvVars builds the environment variables for the environment's
// commands: the pass_env allowlist of host variables, then set_env values,
// then the standard variables runway always exports.
func (b *Executor) prepareEnvVars(ctx *EnvContext) error {
	env := ctx.Env()
	vars := util.FilterOSEnviron(env.PassEnv)
	vars = append(vars, env.SetEnv.Strings()...)
	AddStandardEnvVars(env, b.state.envDir, b.state.scratchDir, b.config.WorkspaceDir, func(name, value string) {
		vars = append(vars, fmt.Sprintf("%s=%s", name, value))
	})
	b.state.envVars = vars
	return nil
}

// AddStandardEnvVars adds the standard set of environment variables exported
// to every command executed within an environment.
// The supplied setter function is called to set each variable name and value.
func AddStandardEnvVars(
	env *models.Environment,
	envDir string,
	scratchDir string,
	workspaceDir string,
	setter func(name string, value string),
) {
	setter("RUNWAY_ENV_NAME", env.Name.String())
	setter("RUNWAY_ENV_DIR", envDir)
	setter("RUNWAY_SCRATCH_DIR", scratchDir)
	setter("RUNWAY_WORKSPACE", workspaceDir)
}

func (b *Executor) initLogPipeline(ctx *EnvContext) error {
	logFilePath := filepath.Join(b.state.logsDir, fmt.Sprintf("%s.log", ctx.Env().Name))
	pipeline, err := logging.NewFileLogPipeline(
		clock.New(),
		b.logFactory,
		ctx.Env().SetEnv.SecretValues(),
		logFilePath,
		b.config.PlaintextOutput,
	)
	if err != nil {
		return fmt.Errorf("error creating log pipeline for environment: %w", err)
	}
	ctx.SetLogPipeline(pipeline)
	return nil
}

func (b *Executor) prepareRuntime(ctx *EnvContext) error {
	env := ctx.Env()
	workingDir := b.config.WorkspaceDir
	if env.WorkingDir != "" {
		if filepath.IsAbs(env.WorkingDir) {
			workingDir = env.WorkingDir
		} else {
			workingDir = filepath.Join(b.config.WorkspaceDir, env.WorkingDir)
		}
	}
	config := exec.Config{
		Config: runtime.Config{
			RuntimeID:    env.Name.String(),
			StagingDir:   b.state.stagingDir,
			WorkspaceDir: workingDir,
		},
		ShellOrNil: env.Shell,
	}
	b.state.runtime = exec.NewRuntime(config)
	return b.state.runtime.Start(ctx.Ctx())
}

func (b *Executor) provisionEnv(ctx *EnvContext) error {
	return b.provisioner.Provision(
		ctx.Ctx(),
		b.state.runtime,
		ctx.Env(),
		b.config.InstallCommand,
		b.state.envDir,
		b.state.envVars,
		ctx.LogPipeline(),
	)
}

// CommandExitCode extracts the process exit code recorded on a command failure.
// Returns 0 for a nil error. Errors that did not come from a command process
// report gerror.ExitCodeFailure.
func CommandExitCode(err error) int {
	if err == nil {
		return 0
	}
	gErr := gerror.ToCommandFailed(err)
	if gErr == nil {
		return gerror.ExitCodeFailure
	}
	if detail, ok := gErr.Details()["exit_code"]; ok {
		if code, ok := detail.Value().(int); ok {
			return code
		}
	}
	return gerror.ExitCodeFailure
}

func (b *Executor) withEnvLogFields(log logger.Log, env *models.Environment) logger.Log {
	return log.WithField("environment", env.Name.String())
}
