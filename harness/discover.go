package harness

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v2"
	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/gerror"
)

// TestCase is a single discovered test file.
type TestCase struct {
	// ID is the test's identifier: its path relative to the tests directory,
	// with forward slashes on every platform.
	ID string
	// Path is the absolute path of the test file.
	Path string
}

// DiscoverTests walks the tests directory and returns the test files matching
// the supplied doublestar patterns, sorted by ID. Files and directories whose
// names start with a dot or an underscore are skipped.
func DiscoverTests(testsDir string, patterns []string) ([]TestCase, error) {
	absDir, err := filepath.Abs(testsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "error resolving tests directory %q", testsDir)
	}
	info, err := os.Stat(absDir)
	if err != nil || !info.IsDir() {
		return nil, gerror.NewErrNotFound("Tests directory not found").EDetail("tests_dir", absDir)
	}

	var tests []TestCase
	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if path != absDir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(absDir, path)
		if err != nil {
			return err
		}
		id := filepath.ToSlash(rel)
		for _, pattern := range patterns {
			matched, err := doublestar.Match(pattern, id)
			if err != nil {
				return errors.Wrapf(err, "error invalid test file pattern %q", pattern)
			}
			if matched {
				tests = append(tests, TestCase{ID: id, Path: path})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking tests directory %q", absDir)
	}

	sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
	return tests, nil
}

// FilterTests applies include or exclude regexes against each test's ID.
// With exclude false, only tests matching at least one pattern are kept.
// With exclude true, tests matching any pattern are dropped.
// An empty pattern list keeps every test.
func FilterTests(tests []TestCase, patterns []string, exclude bool) ([]TestCase, error) {
	if len(patterns) == 0 {
		return tests, nil
	}
	regexes := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		regex, err := regexp.Compile(pattern)
		if err != nil {
			return nil, gerror.NewErrValidationFailed("Invalid test pattern").
				EDetail("pattern", pattern).
				Wrap(err)
		}
		regexes[i] = regex
	}

	var filtered []TestCase
	for _, test := range tests {
		matched := false
		for _, regex := range regexes {
			if regex.MatchString(test.ID) {
				matched = true
				break
			}
		}
		if matched != exclude {
			filtered = append(filtered, test)
		}
	}
	return filtered, nil
}
