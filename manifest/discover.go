package manifest

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
)

var (
	// YAMLManifestFileNames contains all manifest file names that represent a
	// YAML formatted manifest in the root of a project.
	YAMLManifestFileNames = []string{
		".runway.yaml",
		"runway.yaml",
		".runway.yml",
		"runway.yml",
	}

	// JSONManifestFileNames contains all manifest file names that represent a
	// JSON formatted manifest in the root of a project.
	JSONManifestFileNames = []string{
		".runway.json",
		"runway.json",
	}

	// JSONNETManifestFileNames contains all manifest file names that represent a
	// JSONNET formatted manifest in the root of a project.
	JSONNETManifestFileNames = []string{
		".runway.jsonnet",
		"runway.jsonnet",
	}
)

// CandidateFileNames returns all recognized manifest file names in search order.
func CandidateFileNames() []string {
	var names []string
	names = append(names, YAMLManifestFileNames...)
	names = append(names, JSONManifestFileNames...)
	names = append(names, JSONNETManifestFileNames...)
	return names
}

// typeForFileName returns the manifest type a file name represents.
func typeForFileName(name string) models.ConfigType {
	for _, candidate := range YAMLManifestFileNames {
		if name == candidate {
			return models.ConfigTypeYAML
		}
	}
	for _, candidate := range JSONManifestFileNames {
		if name == candidate {
			return models.ConfigTypeJSON
		}
	}
	for _, candidate := range JSONNETManifestFileNames {
		if name == candidate {
			return models.ConfigTypeJSONNET
		}
	}
	return models.ConfigTypeUnknown
}

// Discover locates the manifest file in the specified directory, returning its
// path, type and contents. The first candidate name that exists wins.
// Returns a NotFound error if no manifest file exists in the directory.
func Discover(dir string) (string, models.ConfigType, []byte, error) {
	for _, name := range CandidateFileNames() {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", models.ConfigTypeNoConfig, nil, errors.Wrapf(err, "error checking for manifest file %q", path)
		}
		if info.IsDir() {
			continue
		}
		if info.Size() > DefaultMaxManifestLength {
			return path, models.ConfigTypeInvalid, []byte("manifest file is too long"), nil
		}
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return "", models.ConfigTypeNoConfig, nil, errors.Wrapf(err, "error reading manifest file %q", path)
		}
		return path, typeForFileName(name), data, nil
	}
	return "", models.ConfigTypeNoConfig, nil, gerror.NewErrNotFound(
		"No manifest file found").
		EDetail("dir", dir).
		IDetail("candidates", strings.Join(CandidateFileNames(), ", "))
}

// Load discovers and parses the manifest in the specified directory.
func Load(dir string, limits ParserLimits) (*models.Manifest, string, error) {
	path, configType, data, err := Discover(dir)
	if err != nil {
		return nil, "", err
	}
	parsed, err := NewManifestParser(limits).Parse(data, configType)
	if err != nil {
		return nil, "", errors.Wrapf(err, "error loading manifest %q", path)
	}
	return parsed, path, nil
}
