package models

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	DefaultTestsDir = "tests"
)

// DefaultTestFilePatterns are the doublestar patterns used to discover test
// files when the manifest does not declare its own.
var DefaultTestFilePatterns = []string{"**/test_*"}

// HarnessConfig configures the built-in test harness: where to find test
// files, how to invoke them, and optional coverage tooling.
type HarnessConfig struct {
	// TestsDir is the directory to discover test files under, relative to the
	// manifest dir. Defaults to "tests".
	TestsDir string `json:"tests_dir,omitempty" yaml:"tests_dir,omitempty"`
	// FilePatterns are doublestar patterns that select test files within TestsDir.
	FilePatterns []string `json:"file_patterns,omitempty" yaml:"file_patterns,omitempty"`
	// Runner is the command template used to execute a single test file.
	// Occurrences of "{file}" are replaced with the test file path.
	Runner string `json:"runner" yaml:"runner"`
	// CoverPrefix is prepended to the runner command when coverage is requested.
	CoverPrefix string `json:"cover_prefix,omitempty" yaml:"cover_prefix,omitempty"`
	// CoverReport is the command run once after all tests when coverage is requested.
	CoverReport string `json:"cover_report,omitempty" yaml:"cover_report,omitempty"`
	// PassEnv is an allowlist of host environment variable names made visible to tests.
	PassEnv []string `json:"pass_env,omitempty" yaml:"pass_env,omitempty"`
	// SetEnv is a set of environment variables exported to tests.
	SetEnv EnvVars `json:"set_env,omitempty" yaml:"set_env,omitempty"`
}

func (m *HarnessConfig) Validate() error {
	var result *multierror.Error
	if m.Runner == "" {
		result = multierror.Append(result, errors.New("error harness runner command must be set"))
	}
	for _, v := range m.SetEnv {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "error invalid harness set_env"))
		}
	}
	return result.ErrorOrNil()
}

// GetTestsDir returns the configured tests directory or the default.
func (m *HarnessConfig) GetTestsDir() string {
	if m.TestsDir != "" {
		return m.TestsDir
	}
	return DefaultTestsDir
}

// GetFilePatterns returns the configured file patterns or the defaults.
func (m *HarnessConfig) GetFilePatterns() []string {
	if len(m.FilePatterns) > 0 {
		return m.FilePatterns
	}
	return DefaultTestFilePatterns
}
