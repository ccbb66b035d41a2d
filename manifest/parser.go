package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-jsonnet"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/runwayhq/runway/common/models"
)

const (
	DefaultMaxManifestLength      = 1024 * 100
	DefaultMaxEnvironments        = 100
	DefaultMaxCommandsPerEnv      = 100
	DefaultMaxSuppressionsPerRun  = 100
	defaultManifestSnippetComment = ".runway.jsonnet"
)

// manifestVersionedParser is an object capable of parsing a specific version of a manifest.
type manifestVersionedParser interface {
	Parse(topLevelElement map[string]interface{}) (*models.Manifest, error)
}

// ParserLimits provides a parser with information on limits to check while parsing. If the data goes beyond
// any limit then parsing should fail.
type ParserLimits struct {
	// MaxEnvironments is the maximum number of environments allowed in a manifest.
	MaxEnvironments int
	// MaxCommandsPerEnv is the maximum number of commands allowed in any single environment.
	MaxCommandsPerEnv int
	// MaxSuppressions is the maximum number of suppressions allowed in a check profile.
	MaxSuppressions int
}

func DefaultParserLimits() ParserLimits {
	return ParserLimits{
		MaxEnvironments:   DefaultMaxEnvironments,
		MaxCommandsPerEnv: DefaultMaxCommandsPerEnv,
		MaxSuppressions:   DefaultMaxSuppressionsPerRun,
	}
}

type ManifestParser struct {
	limits ParserLimits
}

func NewManifestParser(limits ParserLimits) *ManifestParser {
	return &ManifestParser{
		limits: limits,
	}
}

// Parse parses a raw manifest. The returned manifest has been validated.
func (s *ManifestParser) Parse(config []byte, configType models.ConfigType) (*models.Manifest, error) {
	var (
		err      error
		raw      interface{}
		manifest *models.Manifest
	)
	switch configType {
	case models.ConfigTypeYAML:
		raw, err = s.parseFromYAML(config)
	case models.ConfigTypeJSON:
		raw, err = s.parseFromJSON(config)
	case models.ConfigTypeJSONNET:
		raw, err = s.parseFromJSONNET(config)
	case models.ConfigTypeNoConfig:
		return nil, errors.Errorf("error: no manifest file was found")
	case models.ConfigTypeInvalid:
		return nil, s.getErrorForInvalidManifest(config)
	default:
		return nil, errors.Errorf("error: unsupported manifest type: %s", configType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error unmarshalling manifest from %s", configType)
	}

	// All versions must have a top-level object rather than an array.
	topLevelElement, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("error parsing manifest: must contain a top-level object: %T", raw)
	}

	const defaultVersion = "DEFAULT_VERSION"
	version := defaultVersion
	rVersion, ok := topLevelElement["version"]
	if ok {
		// normalizeMapValues() turns all scalar data types into strings, including float/integer version numbers
		version, ok = rVersion.(string)
		if !ok {
			return nil, errors.Errorf("error parsing manifest: expected 'version' field to be a string but found: %T", rVersion)
		}
	}

	// Create a parser specific to the version to parse the rest of the data
	var parser manifestVersionedParser
	switch version {
	case "0.1", defaultVersion:
		parser = newManifestParserV01(s.limits)
	default:
		return nil, errors.Errorf("error parsing manifest: version %s not supported", version)
	}

	manifest, err = parser.Parse(topLevelElement)
	if err != nil {
		return nil, fmt.Errorf("error parsing manifest: %w", err)
	}

	err = manifest.Validate()
	if err != nil {
		return nil, fmt.Errorf("error validating manifest: %w", err)
	}

	// Build the dependency graph once to surface cycles at parse time
	nodes := make([]models.GraphNode, len(manifest.Environments))
	for i, env := range manifest.Environments {
		nodes[i] = env
	}
	_, err = models.NewDAG(nodes)
	if err != nil {
		return nil, fmt.Errorf("error validating manifest: %w", err)
	}

	return manifest, nil
}

func (s *ManifestParser) parseFromYAML(config []byte) (interface{}, error) {
	var raw interface{}
	err := yaml.Unmarshal(config, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "error unmarshalling yml")
	}
	raw = s.normalizeMapValues(raw)
	return raw, nil
}

func (s *ManifestParser) parseFromJSON(config []byte) (interface{}, error) {
	var raw interface{}
	err := json.Unmarshal(config, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "error unmarshalling json")
	}
	raw = s.normalizeMapValues(raw)
	return raw, nil
}

func (s *ManifestParser) parseFromJSONNET(config []byte) (interface{}, error) {
	vm := jsonnet.MakeVM()
	json, err := vm.EvaluateSnippet(defaultManifestSnippetComment, string(config[:]))
	if err != nil {
		return nil, errors.Wrap(err, "error parsing jsonnet")
	}
	return s.parseFromJSON([]byte(json))
}

// getErrorForInvalidManifest returns a suitable error message, given an invalid manifest
func (s *ManifestParser) getErrorForInvalidManifest(config []byte) error {
	if len(config) == 0 {
		return errors.Errorf("error: invalid manifest")
	}

	// For an invalid manifest, the config itself has been replaced with an error message
	message := string(config)
	if len(message) > 100 {
		message = message[:100]
	}

	return errors.Errorf("error: %s", message)
}

// normalizeMapValues iterates through all properties (including nested properties)
// of an object and converts all map[interface{}]interface{} that have a string key
// to map[string]interface{}. This is intended to be used to normalize the output of
// the yaml parser, to make it consistent with the JSON parser in the go standard lib.
func (s *ManifestParser) normalizeMapValues(v interface{}) interface{} {
	switch v := v.(type) {
	case []interface{}:
		return s.normalizeInterfaceArray(v)
	case map[interface{}]interface{}:
		return s.cleanupInterfaceMap(v)
	case map[string]interface{}:
		res := make(map[string]interface{}, len(v))
		for k, val := range v {
			res[k] = s.normalizeMapValues(val)
		}
		return res
	case string:
		return v
	default:
		// This will convert integers, floats and booleans to strings
		return fmt.Sprintf("%v", v)
	}
}

func (s *ManifestParser) normalizeInterfaceArray(in []interface{}) []interface{} {
	res := make([]interface{}, len(in))
	for i, v := range in {
		res[i] = s.normalizeMapValues(v)
	}
	return res
}

func (s *ManifestParser) cleanupInterfaceMap(in map[interface{}]interface{}) map[string]interface{} {
	res := make(map[string]interface{})
	for k, v := range in {
		res[fmt.Sprintf("%v", k)] = s.normalizeMapValues(v)
	}
	return res
}
