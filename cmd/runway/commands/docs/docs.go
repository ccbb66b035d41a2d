package docs

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/cmd/runway/utils"
	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine"
)

func init() {
	docsRootCmd.PersistentFlags().StringVar(
		&docsCmdConfig.workDir,
		"workdir",
		"",
		"The state directory for environments (defaults to <workspace>/.runway)")
	docsRootCmd.PersistentFlags().BoolVarP(
		&docsCmdConfig.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose log output")
	commands.RootCmd.AddCommand(docsRootCmd)
}

var docsCmdConfig = struct {
	workDir string
	verbose bool
}{}

var docsRootCmd = &cobra.Command{
	Use:           "docs",
	Short:         "Build the project's documentation",
	Long:          `Run the manifest's documentation environment (the one named by docs_environment, or "docs").`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		lockFile, err := utils.GetRunwayFileLock()
		if err != nil {
			return errors.Wrap(err, "Error: Another instance of runway is currently running")
		}
		defer lockFile.Close()

		ctx, stop := utils.WithInterrupt(context.Background())
		defer stop()

		setup, cleanup, err := utils.SetUpRun(ctx,
			docsCmdConfig.workDir,
			docsCmdConfig.verbose,
			false,
			engine.DefaultParallelEnvironments,
			commands.Global.JSON,
			commands.Global.EffectiveLogLevels())
		if err != nil {
			return err
		}
		defer cleanup()

		name := setup.Manifest.GetDocsEnvironmentName()
		if setup.Manifest.GetEnvironment(name) == nil {
			return gerror.NewErrNotFound(fmt.Sprintf("Manifest does not declare a %q environment", name))
		}

		result, err := setup.Run(ctx, []models.ResourceName{name})
		if err != nil {
			return err
		}
		if result.Failed() {
			return gerror.NewErrEnvironmentFailed("Documentation build did not succeed", nil)
		}
		return nil
	},
}
