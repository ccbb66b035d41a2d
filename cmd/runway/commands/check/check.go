package check

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/cmd/runway/utils"
	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine"
)

func init() {
	checkRootCmd.PersistentFlags().StringVar(
		&checkCmdConfig.workDir,
		"workdir",
		"",
		"The state directory for environments (defaults to <workspace>/.runway)")
	checkRootCmd.PersistentFlags().BoolVarP(
		&checkCmdConfig.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose log output")
	commands.RootCmd.AddCommand(checkRootCmd)
}

var checkCmdConfig = struct {
	workDir string
	verbose bool
}{}

var checkRootCmd = &cobra.Command{
	Use:           "check",
	Short:         "Run the project's style-check environment",
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
			checkCmdConfig.workDir,
			checkCmdConfig.verbose,
			false,
			engine.DefaultParallelEnvironments,
			commands.Global.JSON,
			commands.Global.EffectiveLogLevels())
		if err != nil {
			return err
		}
		defer cleanup()

		check := setup.Manifest.Check
		if check == nil {
			return gerror.NewErrNotFound("Manifest does not configure a check environment")
		}

		printSuppressions(check)

		result, err := setup.Run(ctx, []models.ResourceName{check.Environment})
		if err != nil {
			return err
		}
		if result.Failed() {
			return gerror.NewErrEnvironmentFailed("Check environment did not succeed", nil)
		}
		return nil
	},
}

// printSuppressions renders the warning codes disabled for this check run,
// with their rationale where one was recorded.
func printSuppressions(check *models.Check) {
	if len(check.Suppressions) == 0 {
		return
	}
	fmt.Fprintf(os.Stdout, "Suppressing %d warning code(s):\n", len(check.Suppressions))
	for _, s := range check.Suppressions {
		line := fmt.Sprintf("  %-6s", s.Code)
		if s.Reason != "" {
			line += " " + s.Reason
		}
		if len(s.Paths) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(s.Paths, ", "))
		}
		fmt.Fprintln(os.Stdout, line)
	}
	fmt.Fprintln(os.Stdout)
}
