package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util"
	"github.com/runwayhq/runway/engine"
	"github.com/runwayhq/runway/engine/runtime"
	"github.com/runwayhq/runway/engine/runtime/exec"
)

// filePlaceholder is substituted into the runner command for each test.
const filePlaceholder = "{file}"

// Verbosity levels. Zero is quiet; each level above one shows more output.
const (
	VerbosityQuiet   = 0
	VerbosityDefault = 1
	VerbosityVerbose = 2
)

type Config struct {
	// Patterns are optional regexes matched against test IDs to select tests.
	Patterns []string
	// Exclude flips Patterns into exclusion filters.
	Exclude bool
	// FailFast stops the harness at the first failing test.
	FailFast bool
	// Forever reruns the whole suite in a loop until a test fails.
	Forever bool
	// FindLeaks reports files a passing test left behind in its scratch directory.
	FindLeaks bool
	// Coverage wraps each test with the manifest's cover prefix and runs the
	// cover report command after the suite.
	Coverage bool
	// Verbosity controls how much test output is shown.
	Verbosity int
	// TestsDirOverride overrides the manifest's tests directory.
	TestsDirOverride string
}

// TestResult records the outcome of a single test file.
type TestResult struct {
	Test     TestCase
	Status   models.Status
	ExitCode int
	Error    *models.Error
	// Leaks are the files the test left behind in its scratch directory.
	Leaks    []string
	Duration time.Duration
	// Output is the test's combined stdout and stderr.
	Output string
}

// Summary aggregates the results of a harness run.
type Summary struct {
	Ran      int
	Failed   int
	Results  []*TestResult
	Duration time.Duration
}

// Failures returns the results of the tests that failed.
func (s *Summary) Failures() []*TestResult {
	var failures []*TestResult
	for _, result := range s.Results {
		if result.Status == models.StatusFailed {
			failures = append(failures, result)
		}
	}
	return failures
}

// Leaked returns the results of the passing tests that leaked scratch files.
func (s *Summary) Leaked() []*TestResult {
	var leaked []*TestResult
	for _, result := range s.Results {
		if result.Status == models.StatusSucceeded && len(result.Leaks) > 0 {
			leaked = append(leaked, result)
		}
	}
	return leaked
}

// Harness discovers and runs the project's test files using the manifest's
// runner command, one process per test file.
type Harness struct {
	config        Config
	harnessConfig *models.HarnessConfig
	workspaceDir  string
	workDir       string
	stdout        io.Writer
	log           logger.Log
}

func NewHarness(
	config Config,
	harnessConfig *models.HarnessConfig,
	workspaceDir string,
	workDir string,
	stdout io.Writer,
	logFactory logger.LogFactory,
) *Harness {
	return &Harness{
		config:        config,
		harnessConfig: harnessConfig,
		workspaceDir:  workspaceDir,
		workDir:       workDir,
		stdout:        stdout,
		log:           logFactory("Harness"),
	}
}

// Run discovers, filters and executes the test suite.
// With Forever set, the suite is rerun until a test fails.
// The returned summary covers the final iteration. A non-nil error is only
// returned when the harness itself could not run; test failures are reported
// on the summary.
func (h *Harness) Run(ctx context.Context) (*Summary, error) {
	if h.config.Coverage {
		if h.harnessConfig.CoverPrefix == "" || h.harnessConfig.CoverReport == "" {
			return nil, gerror.NewErrValidationFailed(
				"Coverage requires the harness cover_prefix and cover_report commands to be configured in the manifest")
		}
	}

	testsDir := h.harnessConfig.GetTestsDir()
	if h.config.TestsDirOverride != "" {
		testsDir = h.config.TestsDirOverride
	}
	if !filepath.IsAbs(testsDir) {
		testsDir = filepath.Join(h.workspaceDir, testsDir)
	}

	tests, err := DiscoverTests(testsDir, h.harnessConfig.GetFilePatterns())
	if err != nil {
		return nil, err
	}
	tests, err = FilterTests(tests, h.config.Patterns, h.config.Exclude)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return nil, gerror.NewErrNotFound("No test files matched").
			EDetail("tests_dir", testsDir)
	}
	h.log.Infof("Discovered %d test file(s) under %s", len(tests), testsDir)

	for {
		summary, err := h.runSuite(ctx, tests)
		if err != nil {
			return nil, err
		}
		if !h.config.Forever || summary.Failed > 0 {
			return summary, nil
		}
		h.printf("Suite passed; running again\n")
	}
}

// runSuite executes every test once and then the cover report if requested.
func (h *Harness) runSuite(ctx context.Context, tests []TestCase) (*Summary, error) {
	stagingDir := filepath.Join(h.workDir, "harness", "staging")
	err := os.MkdirAll(stagingDir, 0777)
	if err != nil {
		return nil, errors.Wrap(err, "error creating harness staging directory")
	}
	defer os.RemoveAll(stagingDir)

	rt := exec.NewRuntime(exec.Config{
		Config: runtime.Config{
			RuntimeID:    "harness",
			StagingDir:   stagingDir,
			WorkspaceDir: h.workspaceDir,
		},
	})
	err = rt.Start(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error starting harness runtime")
	}
	defer rt.Stop(ctx)

	summary := &Summary{}
	start := time.Now()
	for _, test := range tests {
		result := h.runTest(ctx, rt, test)
		summary.Results = append(summary.Results, result)
		summary.Ran++
		if result.Status == models.StatusFailed {
			summary.Failed++
			if h.config.FailFast {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}
	}
	summary.Duration = time.Since(start)

	if h.config.Coverage && summary.Failed == 0 && ctx.Err() == nil {
		err = h.runCoverReport(ctx, rt)
		if err != nil {
			return nil, err
		}
	}

	h.printSummary(summary)
	return summary, nil
}

// runTest executes a single test file in its own scratch directory.
func (h *Harness) runTest(ctx context.Context, rt runtime.Runtime, test TestCase) *TestResult {
	result := &TestResult{Test: test, Status: models.StatusRunning}

	// Test ids are relative paths; escape each part so the scratch tree mirrors
	// the test tree without colliding ids that normalize to the same name.
	scratchDir := filepath.Join(h.workDir, "harness", "scratch", util.EscapeFileName(test.ID))
	err := os.RemoveAll(scratchDir)
	if err == nil {
		err = os.MkdirAll(scratchDir, 0777)
	}
	if err != nil {
		result.Status = models.StatusFailed
		result.Error = models.NewError(errors.Wrap(err, "error preparing scratch directory"))
		return result
	}

	command := strings.ReplaceAll(h.harnessConfig.Runner, filePlaceholder, shellescape.Quote(test.Path))
	if h.config.Coverage {
		command = h.harnessConfig.CoverPrefix + " " + command
	}

	var output strings.Builder
	var stdout io.Writer = &output
	if h.config.Verbosity >= VerbosityVerbose {
		stdout = io.MultiWriter(&output, h.stdout)
	}

	start := time.Now()
	err = rt.Exec(ctx, runtime.ExecConfig{
		Name:     "test-" + test.ID,
		Commands: []string{command},
		Env:      h.testEnvVars(scratchDir),
		Dir:      scratchDir,
		Stdout:   stdout,
		Stderr:   stdout,
	})
	result.Duration = time.Since(start)
	result.Output = output.String()

	if err != nil {
		result.Status = models.StatusFailed
		result.Error = models.NewError(err)
		result.ExitCode = engine.CommandExitCode(err)
		h.printf("FAIL %s (%s)\n", test.ID, result.Duration.Round(time.Millisecond))
		if h.config.Verbosity < VerbosityVerbose && result.Output != "" {
			// Output wasn't streamed live, so show it for the failing test
			h.printf("%s\n", strings.TrimRight(result.Output, "\n"))
		}
		return result
	}

	result.Status = models.StatusSucceeded
	if h.config.FindLeaks {
		result.Leaks = findScratchLeaks(scratchDir)
	}
	if h.config.Verbosity >= VerbosityDefault {
		h.printf("ok   %s (%s)\n", test.ID, result.Duration.Round(time.Millisecond))
	}
	return result
}

// runCoverReport runs the manifest's cover report command once, streaming its
// output to the harness stdout.
func (h *Harness) runCoverReport(ctx context.Context, rt runtime.Runtime) error {
	h.printf("\nCoverage report:\n")
	err := rt.Exec(ctx, runtime.ExecConfig{
		Name:     "cover-report",
		Commands: []string{h.harnessConfig.CoverReport},
		Env:      h.testEnvVars(""),
		Stdout:   h.stdout,
		Stderr:   h.stdout,
	})
	if err != nil {
		return errors.Wrap(err, "error running coverage report")
	}
	return nil
}

// testEnvVars builds the environment for a test process: the harness pass_env
// allowlist, set_env values, then the standard runway variables.
func (h *Harness) testEnvVars(scratchDir string) []string {
	vars := util.FilterOSEnviron(h.harnessConfig.PassEnv)
	vars = append(vars, h.harnessConfig.SetEnv.Strings()...)
	vars = append(vars, fmt.Sprintf("RUNWAY_WORKSPACE=%s", h.workspaceDir))
	if scratchDir != "" {
		vars = append(vars, fmt.Sprintf("RUNWAY_SCRATCH_DIR=%s", scratchDir))
	}
	return vars
}

func (h *Harness) printSummary(summary *Summary) {
	if h.config.Verbosity == VerbosityQuiet && summary.Failed == 0 {
		return
	}
	h.printf("\nRan %d test(s) in %s\n", summary.Ran, summary.Duration.Round(time.Millisecond))
	if failures := summary.Failures(); len(failures) > 0 {
		h.printf("%d test(s) failed:\n", len(failures))
		for _, failure := range failures {
			h.printf("    %s\n", failure.Test.ID)
		}
	}
	if leaked := summary.Leaked(); len(leaked) > 0 {
		h.printf("%d test(s) leak scratch files:\n", len(leaked))
		for _, result := range leaked {
			h.printf("    %s:\n", result.Test.ID)
			for _, leak := range result.Leaks {
				h.printf("        %s\n", leak)
			}
		}
	}
}

func (h *Harness) printf(format string, args ...interface{}) {
	fmt.Fprintf(h.stdout, format, args...)
}

// findScratchLeaks lists the files left behind in a test's scratch directory.
func findScratchLeaks(scratchDir string) []string {
	var leaks []string
	_ = filepath.Walk(scratchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(scratchDir, path); err == nil {
			leaks = append(leaks, filepath.ToSlash(rel))
		}
		return nil
	})
	return leaks
}

// CleanUp removes the harness scratch and staging state under the work directory.
func CleanUp(workDir string) error {
	var results *multierror.Error
	for _, dir := range []string{filepath.Join(workDir, "harness", "scratch"), filepath.Join(workDir, "harness", "staging")} {
		err := os.RemoveAll(dir)
		if err != nil && !os.IsNotExist(err) {
			results = multierror.Append(results, errors.Wrapf(err, "error removing %q", dir))
		}
	}
	return results.ErrorOrNil()
}
