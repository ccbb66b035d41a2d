package test

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/runwayhq/runway/cmd/runway/app"
	"github.com/runwayhq/runway/cmd/runway/commands"
	"github.com/runwayhq/runway/cmd/runway/utils"
	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/harness"
	"github.com/runwayhq/runway/manifest"
)

func init() {
	testRootCmd.PersistentFlags().StringVar(
		&testCmdConfig.workDir,
		"workdir",
		"",
		"The state directory for test scratch space (defaults to <workspace>/.runway)")
	testRootCmd.PersistentFlags().StringArrayVarP(
		&testCmdConfig.patterns,
		"pattern",
		"p",
		nil,
		"Regex selecting tests by id (repeatable)")
	testRootCmd.PersistentFlags().BoolVarP(
		&testCmdConfig.exclude,
		"exclude",
		"x",
		false,
		"Treat the patterns as exclusions")
	testRootCmd.PersistentFlags().BoolVar(
		&testCmdConfig.failFast,
		"failfast",
		false,
		"Stop at the first failing test")
	testRootCmd.PersistentFlags().BoolVar(
		&testCmdConfig.forever,
		"forever",
		false,
		"Rerun the suite in a loop until a test fails")
	testRootCmd.PersistentFlags().BoolVar(
		&testCmdConfig.findLeaks,
		"findleaks",
		false,
		"Report files that passing tests leave behind in their scratch directory")
	testRootCmd.PersistentFlags().BoolVar(
		&testCmdConfig.coverage,
		"coverage",
		false,
		"Run tests under the manifest's coverage tooling")
	testRootCmd.PersistentFlags().CountVarP(
		&testCmdConfig.verbose,
		"verbose",
		"v",
		"Show test output while tests run (repeatable)")
	testRootCmd.PersistentFlags().BoolVarP(
		&testCmdConfig.quiet,
		"quiet",
		"q",
		false,
		"Only report failures")
	testRootCmd.PersistentFlags().StringVar(
		&testCmdConfig.testsDir,
		"tests",
		"",
		"Override the manifest's tests directory")
	commands.RootCmd.AddCommand(testRootCmd)
}

var testCmdConfig = struct {
	workDir   string
	patterns  []string
	exclude   bool
	failFast  bool
	forever   bool
	findLeaks bool
	coverage  bool
	verbose   int
	quiet     bool
	testsDir  string
}{}

var testRootCmd = &cobra.Command{
	Use:           "test",
	Short:         "Run the project's test suite with the built-in harness",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := utils.WithInterrupt(context.Background())
		defer stop()

		workspaceDir, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "error locating working directory")
		}

		man, _, err := manifest.Load(workspaceDir, manifest.DefaultParserLimits())
		if err != nil {
			return err
		}
		if man.Harness == nil {
			return gerror.NewErrNotFound("Manifest does not configure a test harness")
		}

		workDir := testCmdConfig.workDir
		if workDir != "" {
			workDir, err = util.HomeifyPath(workDir)
			if err != nil {
				return err
			}
		}
		verbose := testCmdConfig.verbose > 0
		config := app.NewRunwayConfig(workspaceDir, workDir, verbose, commands.Global.JSON, commands.Global.EffectiveLogLevels())

		a, cleanup, err := app.New(ctx, config)
		if err != nil {
			return errors.Wrap(err, "error initializing app")
		}
		defer cleanup()

		verbosity := harness.VerbosityDefault + testCmdConfig.verbose
		if testCmdConfig.quiet {
			verbosity = harness.VerbosityQuiet
		}
		h := harness.NewHarness(harness.Config{
			Patterns:         testCmdConfig.patterns,
			Exclude:          testCmdConfig.exclude,
			FailFast:         testCmdConfig.failFast,
			Forever:          testCmdConfig.forever,
			FindLeaks:        testCmdConfig.findLeaks,
			Coverage:         testCmdConfig.coverage,
			Verbosity:        verbosity,
			TestsDirOverride: testCmdConfig.testsDir,
		}, man.Harness, workspaceDir, a.Config.WorkDir, os.Stdout, a.LogFactory)

		summary, err := h.Run(ctx)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return errors.Errorf("%d test(s) failed", summary.Failed)
		}
		return nil
	},
}
