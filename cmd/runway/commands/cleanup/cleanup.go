package cleanup

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/app"
	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/cmd/runway/utils"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/engine"
	"github.com/runwayhq/runway/harness"
)

func init() {
	cleanupRootCmd.PersistentFlags().StringVar(
		&cleanupCmdConfig.workDir,
		"workdir",
		"",
		"The state directory for environments (defaults to <workspace>/.runway)")
	cleanupRootCmd.PersistentFlags().BoolVar(
		&cleanupCmdConfig.all,
		"all",
		false,
		"Also remove the run history database and log files")
	commands.RootCmd.AddCommand(cleanupRootCmd)
}

var cleanupCmdConfig = struct {
	workDir string
	all     bool
}{}

var cleanupRootCmd = &cobra.Command{
	Use:           "cleanup [environment]...",
	Short:         "Remove state left behind by previous runs",
	Long:          `Remove the named environments' directories, or every environment's. With --all the whole state directory is removed, including run history.`,
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

		workspaceDir, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "error locating working directory")
		}
		workDir := cleanupCmdConfig.workDir
		if workDir != "" {
			workDir, err = util.HomeifyPath(workDir)
			if err != nil {
				return err
			}
		}
		config := app.NewRunwayConfig(workspaceDir, workDir, false, commands.Global.JSON, commands.Global.EffectiveLogLevels())

		if cleanupCmdConfig.all {
			if len(names) > 0 {
				return errors.New("error --all cannot be combined with environment names")
			}
			err = os.RemoveAll(config.WorkDir)
			if err != nil {
				return errors.Wrapf(err, "error removing state directory %q", config.WorkDir)
			}
			fmt.Fprintf(os.Stdout, "Removed %s\n", config.WorkDir)
			return nil
		}

		if len(names) > 0 {
			var result *multierror.Error
			for _, name := range names {
				if err := engine.CleanUpEnv(config.WorkDir, name); err != nil {
					result = multierror.Append(result, err)
				} else {
					fmt.Fprintf(os.Stdout, "Cleaned up environment %s\n", name)
				}
			}
			return result.ErrorOrNil()
		}

		var result *multierror.Error
		if err := engine.CleanUpAll(config.WorkDir); err != nil {
			result = multierror.Append(result, err)
		}
		if err := harness.CleanUp(config.WorkDir); err != nil {
			result = multierror.Append(result, err)
		}
		if result.ErrorOrNil() == nil {
			fmt.Fprintln(os.Stdout, "Cleaned up all environments")
		}
		return result.ErrorOrNil()
	},
}
