package manifest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
)

const yamlManifest = `
version: "0.1"
install_command: "pip install {deps}"
environments:
  - name: test
    description: Run the unit test suite
    dependencies:
      - coverage
    commands:
      - python -b -Wd -X faulthandler runtests.py
  - name: lint
    dependencies:
      - flake8
    commands:
      - bash tools/flake8.sh
  - name: docs
    depends: test
    dependencies:
      - sphinx
    commands:
      - python doc/gen_parser_list.py > doc/parser_list.rst
      - make -C doc html
    labels:
      - manual
check:
  environment: lint
  max_line_length: 100
  suppressions:
    - code: E266
      reason: too many leading '#' for block comment
      paths:
        - parser/network/ouid.py
    - code: E501
      reason: line too long
      paths:
        - parser/container/mp4.py
    - W503
    - W504
harness:
  tests_dir: tests
  runner: "python {file}"
  cover_prefix: "coverage run --branch"
  cover_report: "coverage report -m"
`

func TestParseYAMLManifest(t *testing.T) {
	parser := NewManifestParser(DefaultParserLimits())
	manifest, err := parser.Parse([]byte(yamlManifest), models.ConfigTypeYAML)
	require.NoError(t, err)
	require.Equal(t, "0.1", manifest.Version)
	require.Len(t, manifest.Environments, 3)

	test := manifest.GetEnvironment("test")
	require.NotNil(t, test)
	require.Equal(t, "Run the unit test suite", test.Description)
	require.Equal(t, []string{"coverage"}, test.Dependencies)
	require.Len(t, test.Commands, 1)

	docs := manifest.GetEnvironment("docs")
	require.NotNil(t, docs)
	require.Equal(t, []models.ResourceName{"test"}, docs.Depends)
	require.True(t, docs.IsManual())
	require.Len(t, docs.Commands, 2)

	require.NotNil(t, manifest.Check)
	require.Equal(t, models.ResourceName("lint"), manifest.Check.Environment)
	require.Equal(t, 100, manifest.Check.MaxLineLength)
	require.Equal(t, []string{"E266", "E501", "W503", "W504"}, manifest.Check.SuppressedCodes())
	require.Equal(t, "too many leading '#' for block comment", manifest.Check.Suppressions[0].Reason)
	require.Equal(t, []string{"parser/network/ouid.py"}, manifest.Check.Suppressions[0].Paths)

	require.NotNil(t, manifest.Harness)
	require.Equal(t, "python {file}", manifest.Harness.Runner)
	require.Equal(t, "coverage run --branch", manifest.Harness.CoverPrefix)
}

func TestParseJSONManifest(t *testing.T) {
	json := `{"environments": [{"name": "test", "commands": ["true"]}]}`
	parser := NewManifestParser(DefaultParserLimits())
	manifest, err := parser.Parse([]byte(json), models.ConfigTypeJSON)
	require.NoError(t, err)
	require.Len(t, manifest.Environments, 1)
	require.Equal(t, models.ResourceName("test"), manifest.Environments[0].Name)
}

func TestParseJSONNETManifest(t *testing.T) {
	jsonnet := `
local env(name) = { name: name, commands: ["true"] };
{
  environments: [env("test"), env("lint")],
}`
	parser := NewManifestParser(DefaultParserLimits())
	manifest, err := parser.Parse([]byte(jsonnet), models.ConfigTypeJSONNET)
	require.NoError(t, err)
	require.Len(t, manifest.Environments, 2)
}

func TestParseRejectsUnknownDependency(t *testing.T) {
	yaml := `
environments:
  - name: docs
    depends: missing
    commands: ["true"]
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown environment")
}

func TestParseRejectsDependencyCycle(t *testing.T) {
	yaml := `
environments:
  - name: a
    depends: b
    commands: ["true"]
  - name: b
    depends: a
    commands: ["true"]
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestParseRejectsDuplicateEnvironments(t *testing.T) {
	yaml := `
environments:
  - name: test
    commands: ["true"]
  - name: test
    commands: ["false"]
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate environment name")
}

func TestParseRejectsEmptyCommands(t *testing.T) {
	yaml := `
environments:
  - name: test
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one command")
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	yaml := `
version: "9.9"
environments:
  - name: test
    commands: ["true"]
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "version 9.9 not supported")
}

func TestParseRejectsBadSuppressionCode(t *testing.T) {
	yaml := `
environments:
  - name: lint
    commands: ["true"]
check:
  environment: lint
  suppressions:
    - not-a-code
`
	parser := NewManifestParser(DefaultParserLimits())
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "suppression code")
}

func TestParseRejectsTooManyEnvironments(t *testing.T) {
	limits := DefaultParserLimits()
	limits.MaxEnvironments = 1
	yaml := `
environments:
  - name: a
    commands: ["true"]
  - name: b
    commands: ["true"]
`
	parser := NewManifestParser(limits)
	_, err := parser.Parse([]byte(yaml), models.ConfigTypeYAML)
	require.Error(t, err)
	require.Contains(t, err.Error(), "limit")
}

func TestDiscoverPrefersFirstCandidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ".runway.yml"), []byte(yamlManifest), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "runway.json"), []byte(`{}`), 0644))

	path, configType, _, err := Discover(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, ".runway.yml"), path)
	require.Equal(t, models.ConfigTypeYAML, configType)
}

func TestDiscoverReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, _, _, err := Discover(dir)
	require.Error(t, err)
	require.True(t, gerror.IsNotFound(err))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "runway.yaml"), []byte(yamlManifest), 0644))

	manifest, path, err := Load(dir, DefaultParserLimits())
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "runway.yaml"), path)
	require.Len(t, manifest.Environments, 3)
}
