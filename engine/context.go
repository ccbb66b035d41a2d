package engine

import (
	"context"

	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine/logging"
)

// EnvContext carries the state for a single environment as it progresses
// through the executor's lifecycle phases.
type EnvContext struct {
	ctx         context.Context
	env         *models.Environment
	result      *models.EnvResult
	logPipeline logging.LogPipeline
}

func NewEnvContext(ctx context.Context, env *models.Environment, result *models.EnvResult) *EnvContext {
	return &EnvContext{
		ctx:         ctx,
		env:         env,
		result:      result,
		logPipeline: logging.NewNoOpLogPipeline(), // logPipeline should never be nil
	}
}

func (c *EnvContext) Ctx() context.Context {
	return c.ctx
}

func (c *EnvContext) Env() *models.Environment {
	return c.env
}

func (c *EnvContext) Result() *models.EnvResult {
	return c.result
}

// SetLogPipeline associates a log pipeline with the context that can be written to, to add lines to the
// environment's log. This pipeline will be closed when the environment context is closed.
// Any previously set log pipeline will be overwritten, without being flushed and closed.
func (c *EnvContext) SetLogPipeline(pipeline logging.LogPipeline) {
	c.logPipeline = pipeline
}

// ClearLogPipeline 'clears' any previously set log pipeline by setting it back to a no-op log pipeline.
// Any previously set log pipeline will be overwritten, without being flushed and closed.
func (c *EnvContext) ClearLogPipeline() {
	c.SetLogPipeline(logging.NewNoOpLogPipeline())
}

// LogPipeline returns the environment's log pipeline. This function will never return nil; if
// SetLogPipeline() has not yet been called then a NoOpLogPipeline will be returned.
func (c *EnvContext) LogPipeline() logging.LogPipeline {
	return c.logPipeline
}
