package engine

import (
	"context"
	"fmt"
	hRuntime "runtime"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

const (
	DefaultParallelEnvironments = 0
	// envTimeout is the maximum time a single environment may run for,
	// including provisioning.
	envTimeout = time.Hour * 2
	// cleanupTimeout is the maximum time to spend trying to clean up resources
	cleanupTimeout = time.Minute * 5
	// minimumParallelEnvironments ensures a dependency and its dependent can
	// make progress together.
	minimumParallelEnvironments = 2
)

// getCleanupContext returns a context with a timeout to use for cleanup operations.
func getCleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cleanupTimeout)
}

type SchedulerConfig struct {
	ParallelEnvironments int
	// Listener is notified of environment progress, e.g. to drive a display.
	// Defaults to a no-op listener.
	Listener RunListener
}

// Stats records counters for a scheduler's lifetime.
type Stats struct {
	EnvironmentsRun     int
	EnvironmentsFailed  int
	EnvironmentsSkipped int
}

// RunRecorder persists runs and their environment results to the history store.
type RunRecorder interface {
	// RecordRunStarted persists a new run, setting run.ID.
	RecordRunStarted(ctx context.Context, run *models.Run) error
	// RecordEnvResult persists the finished result of one environment within a run.
	RecordEnvResult(ctx context.Context, runID models.RunID, result *models.EnvResult) error
	// RecordRunFinished persists the final status of a run.
	RecordRunFinished(ctx context.Context, run *models.Run) error
}

// RunListener is notified as environments progress through a run. Implement
// this to drive a display. Callbacks may be invoked from multiple goroutines.
type RunListener interface {
	// EnvironmentQueued is called once per environment before the run starts.
	EnvironmentQueued(env *models.Environment)
	// EnvironmentStarted is called when an environment begins executing.
	EnvironmentStarted(env *models.Environment)
	// EnvironmentFinished is called with the final result of an environment.
	EnvironmentFinished(result *models.EnvResult)
}

// NoOpRunListener implements the RunListener interface but takes no action.
type NoOpRunListener struct{}

func NewNoOpRunListener() *NoOpRunListener {
	return &NoOpRunListener{}
}

func (l *NoOpRunListener) EnvironmentQueued(env *models.Environment) {}

func (l *NoOpRunListener) EnvironmentStarted(env *models.Environment) {}

func (l *NoOpRunListener) EnvironmentFinished(result *models.EnvResult) {}

// NoOpRunRecorder implements the RunRecorder interface but takes no action.
type NoOpRunRecorder struct{}

func NewNoOpRunRecorder() *NoOpRunRecorder {
	return &NoOpRunRecorder{}
}

func (r *NoOpRunRecorder) RecordRunStarted(ctx context.Context, run *models.Run) error {
	return nil
}

func (r *NoOpRunRecorder) RecordEnvResult(ctx context.Context, runID models.RunID, result *models.EnvResult) error {
	return nil
}

func (r *NoOpRunRecorder) RecordRunFinished(ctx context.Context, run *models.Run) error {
	return nil
}

// RunResult is the outcome of a scheduler run: the recorded run plus the
// result of every environment that was part of it, in dependency order.
type RunResult struct {
	Run        *models.Run
	EnvResults []*models.EnvResult
}

// Failed returns true if any environment in the run did not succeed.
func (r *RunResult) Failed() bool {
	for _, result := range r.EnvResults {
		if result.Status != models.StatusSucceeded {
			return true
		}
	}
	return false
}

// Scheduler runs a set of environments from a manifest, respecting the
// dependency graph and running independent environments in parallel.
type Scheduler struct {
	orchestratorFactory OrchestratorFactory
	recorder            RunRecorder
	config              SchedulerConfig
	stats               Stats
	statsMutex          sync.RWMutex
	log                 logger.Log
}

func NewScheduler(
	orchestratorFactory OrchestratorFactory,
	recorder RunRecorder,
	logFactory logger.LogFactory,
	config SchedulerConfig,
) *Scheduler {

	log := logFactory("Scheduler")
	if config.ParallelEnvironments == 0 {
		config.ParallelEnvironments = hRuntime.NumCPU() / 2
		if config.ParallelEnvironments < minimumParallelEnvironments {
			config.ParallelEnvironments = minimumParallelEnvironments
		}
	}
	log.Infof("Using %d parallel environments", config.ParallelEnvironments)
	if config.Listener == nil {
		config.Listener = NewNoOpRunListener()
	}

	return &Scheduler{
		orchestratorFactory: orchestratorFactory,
		recorder:            recorder,
		config:              config,
		log:                 log,
	}
}

func (s *Scheduler) GetStats() *Stats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	statsCopy := s.stats
	return &statsCopy
}

// Run executes the requested environments plus their transitive dependencies.
// If requested is empty, the manifest's default run set is executed.
// Returns a result for every environment that was part of the run; an error is
// only returned if the run could not be started at all.
func (s *Scheduler) Run(ctx context.Context, manifest *models.Manifest, requested []models.ResourceName) (*RunResult, error) {
	envs, err := s.resolveRunSet(manifest, requested)
	if err != nil {
		return nil, err
	}

	fingerprint, err := manifestFingerprint(manifest)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		CreatedAt:           models.NewTime(time.Now()),
		ManifestFingerprint: fingerprint,
		Requested:           envNames(envs),
		Status:              models.StatusRunning,
	}
	err = s.recorder.RecordRunStarted(ctx, run)
	if err != nil {
		s.log.Warnf("Run history will be unavailable for this run: %s", err)
	}

	nodes := make([]models.GraphNode, len(envs))
	for i, env := range envs {
		nodes[i] = env
		s.config.Listener.EnvironmentQueued(env)
	}
	dag, err := models.NewDAG(nodes)
	if err != nil {
		return nil, gerror.NewErrValidationFailed("Invalid environment dependency graph").Wrap(err)
	}

	var (
		resultsMu     sync.Mutex
		resultsByName = make(map[models.ResourceName]*models.EnvResult, len(envs))
		sem           = make(chan struct{}, s.config.ParallelEnvironments)
	)

	// NOTE: We want to visit all environments (even if a dependency fails) so
	// every environment gets a recorded result. We intentionally do not bubble
	// errors up to the walk (by always returning nil) as this would cause it to abort.
	err = dag.Walk(true, func(node models.GraphNode) error {
		env := node.(*models.Environment)

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			result := canceledResult(env)
			resultsMu.Lock()
			resultsByName[env.Name] = result
			resultsMu.Unlock()
			s.recordResult(ctx, run, result)
			return nil
		}
		defer func() { <-sem }()

		resultsMu.Lock()
		var depResults []*models.EnvResult
		for _, dep := range env.Depends {
			if depResult, ok := resultsByName[dep]; ok {
				depResults = append(depResults, depResult)
			}
		}
		resultsMu.Unlock()

		var result *models.EnvResult
		if ctx.Err() != nil {
			result = canceledResult(env)
		} else {
			s.log.Infof("Running environment %s", env.Name)
			s.config.Listener.EnvironmentStarted(env)
			orchestrator := s.orchestratorFactory()
			result = orchestrator.Run(ctx, env, depResults)
		}

		resultsMu.Lock()
		resultsByName[env.Name] = result
		resultsMu.Unlock()

		s.recordResult(ctx, run, result)
		return nil
	})
	if err != nil {
		return nil, gerror.NewErrInternal().Wrap(err)
	}

	// Assemble results in dependency order
	ordered := make([]*models.EnvResult, 0, len(envs))
	for _, node := range dag.Nodes() {
		if result, ok := resultsByName[node.GetFQN()]; ok {
			ordered = append(ordered, result)
		}
	}

	run.Status = runStatus(ordered)
	if run.Status != models.StatusSucceeded {
		for _, result := range ordered {
			if result.Status == models.StatusFailed {
				run.Error = models.NewError(fmt.Errorf("Environment failed: %s", result.Name))
				break
			}
		}
	}
	run.FinishedAt = models.NewTimePtr(time.Now())
	err = s.recorder.RecordRunFinished(ctx, run)
	if err != nil {
		s.log.Warnf("Ignoring error recording finished run: %s", err)
	}

	return &RunResult{Run: run, EnvResults: ordered}, nil
}

// resolveRunSet expands the requested environment names into the set of
// environments to run, including transitive dependencies. An empty request
// resolves to the manifest's default run set.
func (s *Scheduler) resolveRunSet(manifest *models.Manifest, requested []models.ResourceName) ([]*models.Environment, error) {
	if len(requested) == 0 {
		envs := manifest.DefaultRunSet()
		if len(envs) == 0 {
			return nil, gerror.NewErrNotFound("No environments to run; all environments are marked manual")
		}
		return s.withDependencies(manifest, envs)
	}

	var envs []*models.Environment
	for _, name := range requested {
		env := manifest.GetEnvironment(name)
		if env == nil {
			return nil, gerror.NewErrNotFound(fmt.Sprintf("Unknown environment: %s", name)).
				IDetail("known_environments", manifest.EnvironmentNames())
		}
		envs = append(envs, env)
	}
	return s.withDependencies(manifest, envs)
}

// withDependencies returns envs plus every environment they transitively depend on.
func (s *Scheduler) withDependencies(manifest *models.Manifest, envs []*models.Environment) ([]*models.Environment, error) {
	nodes := make([]models.GraphNode, len(manifest.Environments))
	for i, env := range manifest.Environments {
		nodes[i] = env
	}
	dag, err := models.NewDAG(nodes)
	if err != nil {
		return nil, gerror.NewErrValidationFailed("Invalid environment dependency graph").Wrap(err)
	}

	selected := make(map[models.ResourceName]bool, len(envs))
	for _, env := range envs {
		selected[env.Name] = true
		ancestors, err := dag.Ancestors(env.Name)
		if err != nil {
			return nil, gerror.NewErrValidationFailed("Invalid environment dependency graph").Wrap(err)
		}
		for _, name := range ancestors {
			selected[name] = true
		}
	}

	// Preserve manifest declaration order
	var runSet []*models.Environment
	for _, env := range manifest.Environments {
		if selected[env.Name] {
			runSet = append(runSet, env)
		}
	}
	return runSet, nil
}

func (s *Scheduler) recordResult(ctx context.Context, run *models.Run, result *models.EnvResult) {
	s.config.Listener.EnvironmentFinished(result)

	s.statsMutex.Lock()
	s.stats.EnvironmentsRun++
	switch result.Status {
	case models.StatusFailed:
		s.stats.EnvironmentsFailed++
	case models.StatusSkipped, models.StatusCanceled:
		s.stats.EnvironmentsSkipped++
	}
	s.statsMutex.Unlock()

	if run.ID.Valid() {
		err := s.recorder.RecordEnvResult(ctx, run.ID, result)
		if err != nil {
			s.log.Warnf("Ignoring error recording environment result: %s", err)
		}
	}
}

// envNames returns the names of the supplied environments in order.
func envNames(envs []*models.Environment) models.ResourceNames {
	names := make(models.ResourceNames, len(envs))
	for i, env := range envs {
		names[i] = env.Name
	}
	return names
}

func canceledResult(env *models.Environment) *models.EnvResult {
	now := models.NewTime(time.Now())
	return &models.EnvResult{
		Name:       env.Name,
		Status:     models.StatusCanceled,
		Error:      models.NewError(fmt.Errorf("Run was canceled before environment started: %s", env.Name)),
		StartedAt:  now,
		FinishedAt: &now,
	}
}

// runStatus derives the overall run status from the environment results.
func runStatus(results []*models.EnvResult) models.Status {
	status := models.StatusSucceeded
	for _, result := range results {
		switch result.Status {
		case models.StatusCanceled:
			return models.StatusCanceled
		case models.StatusFailed, models.StatusSkipped:
			status = models.StatusFailed
		}
	}
	return status
}

// manifestFingerprint calculates a stable fingerprint of the manifest contents.
func manifestFingerprint(manifest *models.Manifest) (string, error) {
	hash, err := hashstructure.Hash(manifest, hashstructure.FormatV2, nil)
	if err != nil {
		return "", gerror.NewErrInternal().Wrap(err)
	}
	return fmt.Sprintf("%x", hash), nil
}
