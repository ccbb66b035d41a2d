package models

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

const (
	// DefaultDocsEnvironmentName is the environment run by the docs command
	// when the manifest does not name one explicitly.
	DefaultDocsEnvironmentName ResourceName = "docs"
)

// Manifest is the parsed, validated form of a runway manifest file: the full
// set of environments plus the style-check and test-harness profiles.
type Manifest struct {
	// Version of the manifest syntax.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`
	// Environments is the ordered list of invocation profiles.
	Environments []*Environment `json:"environments" yaml:"environments"`
	// Check configures the style-check profile, if any.
	Check *Check `json:"check,omitempty" yaml:"check,omitempty"`
	// Harness configures the built-in test harness, if any.
	Harness *HarnessConfig `json:"harness,omitempty" yaml:"harness,omitempty"`
	// DocsEnvironment names the environment run by the docs command.
	DocsEnvironment ResourceName `json:"docs_environment,omitempty" yaml:"docs_environment,omitempty"`
	// InstallCommand is the command template used to provision an environment's
	// dependency list. Occurrences of "{deps}" are replaced with the
	// shell-escaped dependency list.
	InstallCommand string `json:"install_command,omitempty" yaml:"install_command,omitempty"`
}

func (m *Manifest) Validate() error {
	var result *multierror.Error
	if len(m.Environments) == 0 {
		result = multierror.Append(result, errors.New("error manifest must declare at least one environment"))
	}
	byName := make(map[ResourceName]bool, len(m.Environments))
	for _, env := range m.Environments {
		if err := env.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
		if byName[env.Name] {
			result = multierror.Append(result, errors.Errorf("error duplicate environment name: %q", env.Name))
		}
		byName[env.Name] = true
	}
	for _, env := range m.Environments {
		for _, dep := range env.Depends {
			if !byName[dep] {
				result = multierror.Append(result, errors.Errorf("error environment %q depends on unknown environment %q", env.Name, dep))
			}
		}
	}
	if m.Check != nil {
		if err := m.Check.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
		if m.Check.Environment != "" && !byName[m.Check.Environment] {
			result = multierror.Append(result, errors.Errorf("error check references unknown environment %q", m.Check.Environment))
		}
	}
	if m.Harness != nil {
		if err := m.Harness.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if len(m.Dependencies()) > 0 && m.InstallCommand == "" {
		result = multierror.Append(result, errors.New("error manifest must declare install_command when environments have dependencies"))
	}
	return result.ErrorOrNil()
}

// GetEnvironment returns the named environment, or nil if it does not exist.
func (m *Manifest) GetEnvironment(name ResourceName) *Environment {
	for _, env := range m.Environments {
		if env.Name == name {
			return env
		}
	}
	return nil
}

// GetDocsEnvironmentName returns the environment used by the docs command.
func (m *Manifest) GetDocsEnvironmentName() ResourceName {
	if m.DocsEnvironment != "" {
		return m.DocsEnvironment
	}
	return DefaultDocsEnvironmentName
}

// EnvironmentNames returns the names of all environments in declaration order.
func (m *Manifest) EnvironmentNames() []ResourceName {
	names := make([]ResourceName, len(m.Environments))
	for i, env := range m.Environments {
		names[i] = env.Name
	}
	return names
}

// DefaultRunSet returns the environments included in a run with no explicit
// environment arguments (everything not labelled manual).
func (m *Manifest) DefaultRunSet() []*Environment {
	var envs []*Environment
	for _, env := range m.Environments {
		if !env.IsManual() {
			envs = append(envs, env)
		}
	}
	return envs
}

// Dependencies returns the union of all environment dependency lists.
func (m *Manifest) Dependencies() []string {
	var deps []string
	for _, env := range m.Environments {
		deps = append(deps, env.Dependencies...)
	}
	return deps
}
