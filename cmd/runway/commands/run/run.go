package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/cmd/runway/utils"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine"
)

func init() {
	runRootCmd.PersistentFlags().StringVar(
		&runCmdConfig.workDir,
		"workdir",
		"",
		"The state directory for environments (defaults to <workspace>/.runway)")
	runRootCmd.PersistentFlags().BoolVarP(
		&runCmdConfig.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose log output")
	runRootCmd.PersistentFlags().BoolVarP(
		&runCmdConfig.force,
		"force",
		"f",
		false,
		"Force environments to be reprovisioned by ignoring fingerprints")
	runRootCmd.PersistentFlags().IntVar(
		&runCmdConfig.parallel,
		"parallel",
		engine.DefaultParallelEnvironments,
		"Maximum number of environments to run in parallel (0 = based on CPU count)")
	commands.RootCmd.AddCommand(runRootCmd)
}

var runCmdConfig = struct {
	workDir  string
	verbose  bool
	force    bool
	parallel int
}{}

var runRootCmd = &cobra.Command{
	Use:           "run [environment]...",
	Short:         "Run one or more environments from the manifest",
	Long:          `Run the named environments plus their dependencies. With no arguments, runs every environment not labelled manual.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lockFile, err := utils.GetRunwayFileLock()
		if err != nil {
			return errors.Wrap(err, "Error: Another instance of runway is currently running")
		}
		defer lockFile.Close()

		names, err := utils.ParseEnvNames(args)
		if err != nil {
			return err
		}

		ctx, stop := utils.WithInterrupt(context.Background())
		defer stop()

		setup, cleanup, err := utils.SetUpRun(ctx,
			runCmdConfig.workDir,
			runCmdConfig.verbose,
			runCmdConfig.force,
			runCmdConfig.parallel,
			commands.Global.JSON,
			commands.Global.EffectiveLogLevels())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := setup.Run(ctx, names)
		if err != nil {
			return err
		}

		if result.Failed() {
			// Returning the error (rather than exiting) lets the deferred
			// cleanup close the history database and release the lock.
			return failedRunError(os.Stdout, setup.App.Config.WorkDir, result)
		}
		return nil
	},
}

// failedRunError prints a line per environment that did not succeed, pointing
// at its log file, and returns an error carrying the failure count.
func failedRunError(out io.Writer, workDir string, result *engine.RunResult) error {
	fmt.Fprint(out, "\r\n")
	for _, envResult := range result.EnvResults {
		if envResult.Status != models.StatusSucceeded {
			logPath := filepath.Join(engine.EnvRootDir(workDir, envResult.Name), "logs", envResult.Name.String()+".log")
			fmt.Fprintf(out, "%s: %s (see %s)\r\n", envResult.Name, envResult.Status, logPath)
		}
	}
	return errors.Errorf("%d environment(s) did not succeed", countNotSucceeded(result))
}

func countNotSucceeded(result *engine.RunResult) int {
	n := 0
	for _, envResult := range result.EnvResults {
		if envResult.Status != models.StatusSucceeded {
			n++
		}
	}
	return n
}
