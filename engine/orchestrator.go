package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

type OrchestratorFactory func() *Orchestrator

func MakeOrchestratorFactory(
	executorFactory ExecutorFactory,
	logFactory logger.LogFactory) OrchestratorFactory {
	return func() *Orchestrator {
		return NewOrchestrator(executorFactory, logFactory)
	}
}

// Orchestrator orchestrates the execution of a single environment by
// progressing it through a series of lifecycle phases.
type Orchestrator struct {
	logFactory      logger.LogFactory
	executorFactory ExecutorFactory
	executor        *Executor
	logger.Log
}

func NewOrchestrator(executorFactory ExecutorFactory, logFactory logger.LogFactory) *Orchestrator {
	return &Orchestrator{
		logFactory:      logFactory,
		executorFactory: executorFactory,
		Log:             logFactory("Orchestrator"),
	}
}

// Run executes all commands of the environment in order, stopping at the
// first failure. depResults are the results of the environments this one
// depends on; if any did not succeed the environment is skipped.
// Always returns a finished result.
func (s *Orchestrator) Run(parentCtx context.Context, env *models.Environment, depResults []*models.EnvResult) *models.EnvResult {

	ctx, cancel := context.WithTimeout(parentCtx, envTimeout)
	defer cancel()

	result := &models.EnvResult{
		Name:      env.Name,
		Status:    models.StatusRunning,
		StartedAt: models.NewTime(time.Now()),
	}
	envCtx := NewEnvContext(ctx, env, result)
	s.executor = s.executorFactory(ctx)

	var (
		envErr      error
		envPrepared bool
	)

	for _, dep := range depResults {
		if dep.Status != models.StatusSucceeded {
			envErr = gerror.NewErrEnvironmentFailed(
				fmt.Sprintf("Environment dependency did not succeed (status is '%s'): %s", dep.Status, dep.Name), nil)
			result.Status = models.StatusSkipped
			break
		}
	}
	if envErr == nil {
		envErr = s.prepareEnv(envCtx)
		envPrepared = true // we must tear down the env if we called prepareEnv(), even if it partly failed
	}

	if envErr == nil {
		envErr = s.executeCommands(envCtx)
	}

	if envPrepared {
		// Write any error to the env log pipeline before calling tearDownEnv(), which closes the pipeline
		if envErr != nil {
			s.executor.LogEnvError(envCtx, envErr)
		}
		err := s.tearDownEnv(envCtx)
		if err != nil {
			if envErr == nil {
				envErr = err
			} else {
				s.Warnf("Will ignore error tearing down failed environment: %s", err)
			}
		}
		s.executor.Close()
	}

	if envErr != nil {
		result.Error = models.NewError(envErr)
		if result.Status != models.StatusSkipped {
			result.Status = models.StatusFailed
		}
	} else {
		result.Status = models.StatusSucceeded
	}
	result.FinishedAt = models.NewTimePtr(time.Now())
	s.Infof("Environment %s completed: %s", env.Name, result.Status)
	return result
}

// prepareEnv is called once per environment, before the first command is executed.
func (s *Orchestrator) prepareEnv(ctx *EnvContext) error {
	err := s.executor.PreExecuteEnv(ctx)
	if err != nil {
		return errors.Wrap(err, "error in pre execute")
	}
	return nil
}

// executeCommands runs the environment's commands in order, recording a
// result for every command. Commands after the first failure are skipped.
func (s *Orchestrator) executeCommands(ctx *EnvContext) error {
	var commandErr error
	for i, command := range ctx.Env().Commands {
		cmdResult := &models.CommandResult{
			Name:    models.ResourceName(fmt.Sprintf("cmd-%d", i+1)),
			Command: command,
			Status:  models.StatusQueued,
		}
		ctx.Result().CommandResults = append(ctx.Result().CommandResults, cmdResult)

		if commandErr != nil {
			cmdResult.Status = models.StatusSkipped
			continue
		}

		cmdResult.Status = models.StatusRunning
		cmdResult.StartedAt = models.NewTime(time.Now())
		err := s.executor.ExecuteCommand(ctx, cmdResult)
		cmdResult.FinishedAt = models.NewTimePtr(time.Now())
		if err != nil {
			cmdResult.Status = models.StatusFailed
			cmdResult.Error = models.NewError(err)
			cmdResult.ExitCode = CommandExitCode(err)
			commandErr = err
		} else {
			cmdResult.Status = models.StatusSucceeded
		}
	}
	if commandErr != nil {
		return errors.Wrap(commandErr, "error executing command")
	}
	return nil
}

// tearDownEnv is called once per environment, after the last command is executed.
func (s *Orchestrator) tearDownEnv(ctx *EnvContext) error {
	err := s.executor.PostExecuteEnv(ctx)
	if err != nil {
		return err
	}
	return nil
}
