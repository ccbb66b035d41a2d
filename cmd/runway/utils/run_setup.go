package utils

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/cmd/runway/app"
	"github.com/runwayhq/runway/cmd/runway/display"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/engine"
	"github.com/runwayhq/runway/manifest"
)

// RunSetup holds everything needed to execute environments from the manifest
// in the current workspace.
type RunSetup struct {
	App       *app.App
	Manifest  *models.Manifest
	Scheduler *engine.Scheduler
	Display   display.Display
}

// SetUpRun loads the manifest from the current directory and wires an app,
// scheduler and display for it. workDir may be empty to use the default state
// directory inside the workspace.
func SetUpRun(
	ctx context.Context,
	workDir string,
	verbose bool,
	force bool,
	parallel int,
	jsonOutput bool,
	logLevels string,
) (*RunSetup, func(), error) {
	workspaceDir, err := os.Getwd()
	if err != nil {
		return nil, nil, errors.Wrap(err, "error locating working directory")
	}

	man, _, err := manifest.Load(workspaceDir, manifest.DefaultParserLimits())
	if err != nil {
		return nil, nil, err
	}

	if workDir != "" {
		workDir, err = util.HomeifyPath(workDir)
		if err != nil {
			return nil, nil, err
		}
	}
	config := app.NewRunwayConfig(workspaceDir, workDir, verbose, jsonOutput, logLevels)
	config.SchedulerConfig.ParallelEnvironments = parallel

	a, cleanup, err := app.New(ctx, config)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error initializing app")
	}

	disp := display.NewDisplay(os.Stdout, verbose || jsonOutput)
	var plaintext io.Writer
	if verbose {
		plaintext = os.Stdout
	}
	scheduler := a.NewScheduler(man, force, disp, plaintext)

	return &RunSetup{
		App:       a,
		Manifest:  man,
		Scheduler: scheduler,
		Display:   disp,
	}, cleanup, nil
}

// Run runs the requested environments with the display active and returns the result.
func (s *RunSetup) Run(ctx context.Context, requested []models.ResourceName) (*engine.RunResult, error) {
	s.Display.Start()
	defer s.Display.Stop()
	return s.Scheduler.Run(ctx, s.Manifest, requested)
}
