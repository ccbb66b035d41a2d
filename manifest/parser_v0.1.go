package manifest

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/models"
)

type manifestParserV01 struct {
	limits ParserLimits
}

func newManifestParserV01(limits ParserLimits) *manifestParserV01 {
	return &manifestParserV01{
		limits: limits,
	}
}

// Parse parses a manifest of this specific version.
func (s *manifestParserV01) Parse(topLevelElement map[string]interface{}) (*models.Manifest, error) {
	manifest := &models.Manifest{}

	rVersion, ok := topLevelElement["version"]
	if ok {
		manifest.Version, _ = rVersion.(string)
	}

	rEnvs, ok := topLevelElement["environments"]
	if !ok {
		return nil, errors.Errorf("manifest does not contain an 'environments' list")
	}
	rEnvsArray, ok := rEnvs.([]interface{})
	if !ok {
		return nil, errors.Errorf("environments element must contain an array but found %T", rEnvs)
	}
	if len(rEnvsArray) > s.limits.MaxEnvironments {
		return nil, errors.Errorf("manifest contains %d environments; the limit is %d", len(rEnvsArray), s.limits.MaxEnvironments)
	}
	envs, err := s.parseEnvironments(rEnvsArray)
	if err != nil {
		return nil, err
	}
	manifest.Environments = envs

	rCheck, ok := topLevelElement["check"]
	if ok {
		element, ok := rCheck.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("Expected 'check' field to be an object but found: %T", rCheck)
		}
		check, err := s.parseCheck(element)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing check profile")
		}
		manifest.Check = check
	}

	rHarness, ok := topLevelElement["harness"]
	if ok {
		element, ok := rHarness.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("Expected 'harness' field to be an object but found: %T", rHarness)
		}
		harness, err := s.parseHarness(element)
		if err != nil {
			return nil, errors.Wrap(err, "error parsing harness profile")
		}
		manifest.Harness = harness
	}

	rDocs, ok := topLevelElement["docs_environment"]
	if ok {
		name, ok := rDocs.(string)
		if !ok {
			return nil, errors.Errorf("Expected 'docs_environment' field to be a string but found: %T", rDocs)
		}
		manifest.DocsEnvironment = models.ResourceName(name)
	}

	rInstall, ok := topLevelElement["install_command"]
	if ok {
		manifest.InstallCommand, ok = rInstall.(string)
		if !ok {
			return nil, errors.Errorf("Expected 'install_command' field to be a string but found: %T", rInstall)
		}
	}

	return manifest, nil
}

func (s *manifestParserV01) parseEnvironments(raw []interface{}) ([]*models.Environment, error) {
	envs := make([]*models.Environment, len(raw))
	for i, obj := range raw {
		element, ok := obj.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("Top-level element is not an environment object: %T", obj)
		}
		env, err := s.parseEnvironment(element)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing environment at index %d", i)
		}
		envs[i] = env
	}
	return envs, nil
}

func (s *manifestParserV01) parseEnvironment(raw map[string]interface{}) (*models.Environment, error) {
	env := &models.Environment{}

	rName, ok := raw["name"]
	if ok {
		name, ok := rName.(string)
		if !ok {
			return nil, errors.Errorf("Expected environment 'name' field to be a string but found: %T", rName)
		}
		env.Name = models.ResourceName(name)
	}

	rDescription, ok := raw["description"]
	if ok {
		env.Description, ok = rDescription.(string)
		if !ok {
			return nil, errors.Errorf("Expected environment 'description' field to be a string but found: %T", rDescription)
		}
	}

	rDeps, ok := raw["dependencies"]
	if ok {
		deps, err := s.parseStringArray(rDeps)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse environment 'dependencies' field")
		}
		env.Dependencies = deps
	}

	rCommands, ok := raw["commands"]
	if ok {
		commands, err := s.parseStringArray(rCommands)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse environment 'commands' field")
		}
		if len(commands) > s.limits.MaxCommandsPerEnv {
			return nil, errors.Errorf("environment contains %d commands; the limit is %d", len(commands), s.limits.MaxCommandsPerEnv)
		}
		for _, command := range commands {
			env.Commands = append(env.Commands, models.Command(command))
		}
	}

	rDepends, ok := raw["depends"]
	if ok {
		switch value := rDepends.(type) {
		case string:
			env.Depends = []models.ResourceName{models.ResourceName(value)}
		case []interface{}:
			depends, err := s.parseStringArray(value)
			if err != nil {
				return nil, errors.Wrap(err, "Unable to parse environment 'depends' field")
			}
			for _, dep := range depends {
				env.Depends = append(env.Depends, models.ResourceName(dep))
			}
		default:
			return nil, errors.Errorf("Unable to parse %q to list of environment names", rDepends)
		}
	}

	rPassEnv, ok := raw["pass_env"]
	if ok {
		passEnv, err := s.parseStringArray(rPassEnv)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse environment 'pass_env' field")
		}
		env.PassEnv = passEnv
	}

	rSetEnv, ok := raw["set_env"]
	if ok {
		setEnv, err := s.parseEnvVars(rSetEnv)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse environment 'set_env' field")
		}
		env.SetEnv = setEnv
	}

	rShell, ok := raw["shell"]
	if ok {
		shell, ok := rShell.(string)
		if !ok {
			return nil, errors.Errorf("Expected environment 'shell' field to be a string but found: %T", rShell)
		}
		env.Shell = &shell
	}

	rWorkingDir, ok := raw["working_dir"]
	if ok {
		env.WorkingDir, ok = rWorkingDir.(string)
		if !ok {
			return nil, errors.Errorf("Expected environment 'working_dir' field to be a string but found: %T", rWorkingDir)
		}
	}

	rLabels, ok := raw["labels"]
	if ok {
		labels, err := s.parseStringArray(rLabels)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse environment 'labels' field")
		}
		for _, label := range labels {
			env.Labels = append(env.Labels, models.Label(label))
		}
	}

	return env, nil
}

func (s *manifestParserV01) parseCheck(raw map[string]interface{}) (*models.Check, error) {
	check := &models.Check{}

	rEnv, ok := raw["environment"]
	if ok {
		name, ok := rEnv.(string)
		if !ok {
			return nil, errors.Errorf("Expected check 'environment' field to be a string but found: %T", rEnv)
		}
		check.Environment = models.ResourceName(name)
	}

	rSuppressions, ok := raw["suppressions"]
	if ok {
		rArray, ok := rSuppressions.([]interface{})
		if !ok {
			return nil, errors.Errorf("Expected check 'suppressions' field to be an array but found: %T", rSuppressions)
		}
		if len(rArray) > s.limits.MaxSuppressions {
			return nil, errors.Errorf("check contains %d suppressions; the limit is %d", len(rArray), s.limits.MaxSuppressions)
		}
		for i, obj := range rArray {
			suppression, err := s.parseSuppression(obj)
			if err != nil {
				return nil, errors.Wrapf(err, "error parsing suppression at index %d", i)
			}
			check.Suppressions = append(check.Suppressions, suppression)
		}
	}

	rMaxLen, ok := raw["max_line_length"]
	if ok {
		str, ok := rMaxLen.(string)
		if !ok {
			return nil, errors.Errorf("Expected check 'max_line_length' field to be a number but found: %T", rMaxLen)
		}
		maxLen, err := strconv.Atoi(str)
		if err != nil {
			return nil, errors.Wrapf(err, "Unable to parse check 'max_line_length' value %q", str)
		}
		check.MaxLineLength = maxLen
	}

	return check, nil
}

func (s *manifestParserV01) parseSuppression(raw interface{}) (*models.Suppression, error) {
	// Shorthand: a bare string is a code with no rationale
	if code, ok := raw.(string); ok {
		return &models.Suppression{Code: code}, nil
	}
	element, ok := raw.(map[string]interface{})
	if !ok {
		return nil, errors.Errorf("Expected suppression to be a string or an object but found: %T", raw)
	}
	suppression := &models.Suppression{}

	rCode, ok := element["code"]
	if ok {
		suppression.Code, ok = rCode.(string)
		if !ok {
			return nil, errors.Errorf("Expected suppression 'code' field to be a string but found: %T", rCode)
		}
	}
	rReason, ok := element["reason"]
	if ok {
		suppression.Reason, ok = rReason.(string)
		if !ok {
			return nil, errors.Errorf("Expected suppression 'reason' field to be a string but found: %T", rReason)
		}
	}
	rPaths, ok := element["paths"]
	if ok {
		paths, err := s.parseStringArray(rPaths)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse suppression 'paths' field")
		}
		suppression.Paths = paths
	}

	return suppression, nil
}

func (s *manifestParserV01) parseHarness(raw map[string]interface{}) (*models.HarnessConfig, error) {
	harness := &models.HarnessConfig{}

	rTestsDir, ok := raw["tests_dir"]
	if ok {
		harness.TestsDir, ok = rTestsDir.(string)
		if !ok {
			return nil, errors.Errorf("Expected harness 'tests_dir' field to be a string but found: %T", rTestsDir)
		}
	}
	rPatterns, ok := raw["file_patterns"]
	if ok {
		patterns, err := s.parseStringArray(rPatterns)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse harness 'file_patterns' field")
		}
		harness.FilePatterns = patterns
	}
	rRunner, ok := raw["runner"]
	if ok {
		harness.Runner, ok = rRunner.(string)
		if !ok {
			return nil, errors.Errorf("Expected harness 'runner' field to be a string but found: %T", rRunner)
		}
	}
	rCoverPrefix, ok := raw["cover_prefix"]
	if ok {
		harness.CoverPrefix, ok = rCoverPrefix.(string)
		if !ok {
			return nil, errors.Errorf("Expected harness 'cover_prefix' field to be a string but found: %T", rCoverPrefix)
		}
	}
	rCoverReport, ok := raw["cover_report"]
	if ok {
		harness.CoverReport, ok = rCoverReport.(string)
		if !ok {
			return nil, errors.Errorf("Expected harness 'cover_report' field to be a string but found: %T", rCoverReport)
		}
	}
	rPassEnv, ok := raw["pass_env"]
	if ok {
		passEnv, err := s.parseStringArray(rPassEnv)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse harness 'pass_env' field")
		}
		harness.PassEnv = passEnv
	}
	rSetEnv, ok := raw["set_env"]
	if ok {
		setEnv, err := s.parseEnvVars(rSetEnv)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to parse harness 'set_env' field")
		}
		harness.SetEnv = setEnv
	}

	return harness, nil
}

func (s *manifestParserV01) parseEnvVars(raw interface{}) (models.EnvVars, error) {
	rArray, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Errorf("Expected an array of env var objects but found: %T", raw)
	}
	var vars models.EnvVars
	for i, obj := range rArray {
		element, ok := obj.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("Expected env var at index %d to be an object but found: %T", i, obj)
		}
		v := &models.EnvVar{}
		rName, ok := element["name"]
		if ok {
			v.Name, ok = rName.(string)
			if !ok {
				return nil, errors.Errorf("Expected env var 'name' field to be a string but found: %T", rName)
			}
		}
		rValue, ok := element["value"]
		if ok {
			v.Value, ok = rValue.(string)
			if !ok {
				return nil, errors.Errorf("Expected env var 'value' field to be a string but found: %T", rValue)
			}
		}
		rSecret, ok := element["secret"]
		if ok {
			// normalizeMapValues() turns booleans into strings
			str, ok := rSecret.(string)
			if !ok {
				return nil, errors.Errorf("Expected env var 'secret' field to be a boolean but found: %T", rSecret)
			}
			secret, err := strconv.ParseBool(str)
			if err != nil {
				return nil, errors.Wrapf(err, "Unable to parse env var 'secret' value %q", str)
			}
			v.Secret = secret
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func (s *manifestParserV01) parseStringArray(raw interface{}) ([]string, error) {
	rArray, ok := raw.([]interface{})
	if !ok {
		return nil, errors.Errorf("Expected an array but found: %T", raw)
	}
	out := make([]string, len(rArray))
	for i, obj := range rArray {
		str, ok := obj.(string)
		if !ok {
			return nil, errors.Errorf("Expected element at index %d to be a string but found: %T", i, obj)
		}
		out[i] = str
	}
	return out, nil
}
