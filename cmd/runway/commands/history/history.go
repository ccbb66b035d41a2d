package history

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/app"
	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/store/runs"
)

func init() {
	historyRootCmd.PersistentFlags().StringVar(
		&historyCmdConfig.workDir,
		"workdir",
		"",
		"The state directory holding the history database (defaults to <workspace>/.runway)")
	historyRootCmd.PersistentFlags().StringVar(
		&historyCmdConfig.env,
		"env",
		"",
		"Only show runs that include the named environment")
	historyRootCmd.PersistentFlags().IntVar(
		&historyCmdConfig.limit,
		"limit",
		runs.DefaultHistoryLimit,
		"Maximum number of runs to show")
	commands.RootCmd.AddCommand(historyRootCmd)
}

var historyCmdConfig = struct {
	workDir string
	env     string
	limit   int
}{}

var historyRootCmd = &cobra.Command{
	Use:           "history [run-id]",
	Short:         "Show the run history for this workspace",
	Long:          `List recent runs, or show the per-environment results of a single run.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		workspaceDir, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "error locating working directory")
		}
		workDir := historyCmdConfig.workDir
		if workDir != "" {
			workDir, err = util.HomeifyPath(workDir)
			if err != nil {
				return err
			}
		}
		config := app.NewRunwayConfig(workspaceDir, workDir, false, commands.Global.JSON, commands.Global.EffectiveLogLevels())

		a, cleanup, err := app.New(ctx, config)
		if err != nil {
			return errors.Wrap(err, "error initializing app")
		}
		defer cleanup()

		if a.RunStore == nil {
			return gerror.NewErrHistoryUnavailable("Run history is unavailable for this workspace", nil)
		}

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return gerror.NewErrValidationFailed(fmt.Sprintf("Invalid run id: %q", args[0]))
			}
			return showRun(ctx, a.RunStore, models.RunID(id))
		}

		return listRuns(ctx, a.RunStore, models.ResourceName(historyCmdConfig.env), historyCmdConfig.limit)
	},
}

func listRuns(ctx context.Context, runStore *runs.RunStore, envName models.ResourceName, limit int) error {
	runList, err := runStore.ListRuns(ctx, envName, limit)
	if err != nil {
		return err
	}
	if len(runList) == 0 {
		fmt.Fprintln(os.Stdout, "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tSTATUS\tENVIRONMENTS")
	for _, run := range runList {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.CreatedAt.Time).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.CreatedAt.Format(time.RFC3339),
			duration,
			run.Status,
			strings.Join(run.Requested.Strings(), ", "))
	}
	return w.Flush()
}

func showRun(ctx context.Context, runStore *runs.RunStore, id models.RunID) error {
	run, err := runStore.ReadRun(ctx, id)
	if err != nil {
		return err
	}
	results, err := runStore.ListEnvResults(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Run %d: %s (started %s)\n", run.ID, run.Status, run.CreatedAt.Format(time.RFC3339))
	if run.Error.Valid() {
		fmt.Fprintf(os.Stdout, "Error: %s\n", run.Error)
	}
	fmt.Fprintln(os.Stdout)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENVIRONMENT\tSTATUS\tDURATION\tERROR")
	for _, result := range results {
		errText := ""
		if result.Error.Valid() {
			errText = util.TruncateStringToMaxLength(result.Error.Error(), 80)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			result.Name,
			result.Status,
			result.Duration().Round(time.Millisecond),
			errText)
	}
	return w.Flush()
}
