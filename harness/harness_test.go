package harness

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

func writeTestFile(t *testing.T, dir string, name string, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0755))
	return path
}

func TestDiscoverTests(t *testing.T) {
	testsDir := t.TempDir()
	writeTestFile(t, testsDir, "test_one.sh", "exit 0\n")
	writeTestFile(t, testsDir, "sub/test_two.sh", "exit 0\n")
	writeTestFile(t, testsDir, "helper.sh", "exit 0\n")
	writeTestFile(t, testsDir, ".hidden/test_three.sh", "exit 0\n")
	writeTestFile(t, testsDir, "_skipped/test_four.sh", "exit 0\n")
	writeTestFile(t, testsDir, "_test_five.sh", "exit 0\n")

	tests, err := DiscoverTests(testsDir, models.DefaultTestFilePatterns)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, "sub/test_two.sh", tests[0].ID)
	assert.Equal(t, "test_one.sh", tests[1].ID)
}

func TestDiscoverTests_MissingDir(t *testing.T) {
	_, err := DiscoverTests(filepath.Join(t.TempDir(), "nope"), models.DefaultTestFilePatterns)
	require.Error(t, err)
	assert.True(t, gerror.IsNotFound(err))
}

func TestFilterTests(t *testing.T) {
	tests := []TestCase{
		{ID: "test_events.sh"},
		{ID: "test_parser.sh"},
		{ID: "sub/test_parser_edge.sh"},
	}

	included, err := FilterTests(tests, []string{"parser"}, false)
	require.NoError(t, err)
	require.Len(t, included, 2)
	assert.Equal(t, "test_parser.sh", included[0].ID)

	excluded, err := FilterTests(tests, []string{"parser"}, true)
	require.NoError(t, err)
	require.Len(t, excluded, 1)
	assert.Equal(t, "test_events.sh", excluded[0].ID)

	all, err := FilterTests(tests, nil, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = FilterTests(tests, []string{"("}, false)
	require.Error(t, err)
	assert.True(t, gerror.IsValidationFailed(err))
}

func newTestHarness(t *testing.T, config Config, harnessConfig *models.HarnessConfig, workspaceDir string, stdout *strings.Builder) *Harness {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	logFactory := logger.MakeLogrusLogFactoryStdOut(logRegistry)
	return NewHarness(config, harnessConfig, workspaceDir, filepath.Join(workspaceDir, ".runway"), stdout, logFactory)
}

func TestHarness_Run(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	workspaceDir := t.TempDir()
	testsDir := filepath.Join(workspaceDir, "tests")
	writeTestFile(t, testsDir, "test_pass.sh", "echo passing\nexit 0\n")
	writeTestFile(t, testsDir, "test_fail.sh", "echo broken >&2\nexit 2\n")

	var stdout strings.Builder
	h := newTestHarness(t, Config{Verbosity: VerbosityDefault}, &models.HarnessConfig{Runner: "sh {file}"}, workspaceDir, &stdout)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Ran)
	assert.Equal(t, 1, summary.Failed)

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "test_fail.sh", failures[0].Test.ID)
	assert.Equal(t, 2, failures[0].ExitCode)
	assert.Contains(t, failures[0].Output, "broken")

	assert.Contains(t, stdout.String(), "ok   test_pass.sh")
	assert.Contains(t, stdout.String(), "FAIL test_fail.sh")
	assert.Contains(t, stdout.String(), "1 test(s) failed")
}

func TestHarness_Run_FailFast(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	workspaceDir := t.TempDir()
	testsDir := filepath.Join(workspaceDir, "tests")
	writeTestFile(t, testsDir, "test_a_fail.sh", "exit 1\n")
	writeTestFile(t, testsDir, "test_b_never_runs.sh", "exit 0\n")

	var stdout strings.Builder
	h := newTestHarness(t, Config{FailFast: true}, &models.HarnessConfig{Runner: "sh {file}"}, workspaceDir, &stdout)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ran)
	assert.Equal(t, 1, summary.Failed)
}

func TestHarness_Run_FindLeaks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	workspaceDir := t.TempDir()
	testsDir := filepath.Join(workspaceDir, "tests")
	writeTestFile(t, testsDir, "test_leaky.sh", "touch \"$RUNWAY_SCRATCH_DIR/leftover.tmp\"\nexit 0\n")
	writeTestFile(t, testsDir, "test_tidy.sh", "exit 0\n")

	var stdout strings.Builder
	h := newTestHarness(t, Config{FindLeaks: true}, &models.HarnessConfig{Runner: "sh {file}"}, workspaceDir, &stdout)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Failed)

	leaked := summary.Leaked()
	require.Len(t, leaked, 1)
	assert.Equal(t, "test_leaky.sh", leaked[0].Test.ID)
	assert.Equal(t, []string{"leftover.tmp"}, leaked[0].Leaks)
	assert.Contains(t, stdout.String(), "leak scratch files")
}

func TestHarness_Run_CoverageRequiresConfig(t *testing.T) {
	workspaceDir := t.TempDir()
	var stdout strings.Builder
	h := newTestHarness(t, Config{Coverage: true}, &models.HarnessConfig{Runner: "sh {file}"}, workspaceDir, &stdout)

	_, err := h.Run(context.Background())
	require.Error(t, err)
	assert.True(t, gerror.IsValidationFailed(err))
}

func TestHarness_Run_PatternSelectsTests(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test scripts assume a POSIX shell")
	}
	workspaceDir := t.TempDir()
	testsDir := filepath.Join(workspaceDir, "tests")
	writeTestFile(t, testsDir, "test_events.sh", "exit 0\n")
	writeTestFile(t, testsDir, "test_parser.sh", "exit 1\n")

	var stdout strings.Builder
	h := newTestHarness(t, Config{Patterns: []string{"events"}}, &models.HarnessConfig{Runner: "sh {file}"}, workspaceDir, &stdout)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Ran)
	assert.Equal(t, 0, summary.Failed)
}
