package models

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Environment describes a single named invocation profile from the manifest:
// a set of dependencies to provision followed by a list of commands to run.
type Environment struct {
	// Name of the environment, unique within the manifest.
	Name ResourceName `json:"name" yaml:"name"`
	// Description is an optional human-readable description of the environment.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Dependencies is the list of packages to provision into the environment
	// before any commands run.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Commands is a list of at least one command to execute in the environment.
	Commands Commands `json:"commands" yaml:"commands"`
	// Depends names other environments that must succeed before this one runs.
	Depends []ResourceName `json:"depends,omitempty" yaml:"depends,omitempty"`
	// PassEnv is an allowlist of host environment variable names made visible
	// to the environment's commands, in addition to PATH and HOME.
	PassEnv []string `json:"pass_env,omitempty" yaml:"pass_env,omitempty"`
	// SetEnv is a set of environment variables exported to the environment's commands.
	SetEnv EnvVars `json:"set_env,omitempty" yaml:"set_env,omitempty"`
	// Shell overrides the default shell used to execute commands.
	Shell *string `json:"shell,omitempty" yaml:"shell,omitempty"`
	// WorkingDir overrides the directory commands run in, relative to the manifest dir.
	WorkingDir string `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	// Labels tag the environment for selection.
	Labels Labels `json:"labels,omitempty" yaml:"labels,omitempty"`
}

func (m *Environment) Validate() error {
	var result *multierror.Error
	if err := m.Name.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if len(m.Commands) == 0 {
		result = multierror.Append(result, errors.Errorf("error environment %q must declare at least one command", m.Name))
	}
	for _, command := range m.Commands {
		if command == "" {
			result = multierror.Append(result, errors.Errorf("error environment %q contains an empty command", m.Name))
		}
	}
	for _, dep := range m.Depends {
		if err := dep.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error invalid dependency for environment %q", m.Name))
		}
	}
	for _, v := range m.SetEnv {
		if err := v.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error invalid set_env for environment %q", m.Name))
		}
	}
	for _, label := range m.Labels {
		if err := label.Validate(); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "error invalid label for environment %q", m.Name))
		}
	}
	return result.ErrorOrNil()
}

// IsManual returns true if the environment is excluded from the default run set.
func (m *Environment) IsManual() bool {
	return m.Labels.Contains(LabelManual)
}

// GetFQN implements GraphNode over the manifest's environment dependency graph.
func (m *Environment) GetFQN() ResourceName {
	return m.Name
}

// GetFQNDependencies implements GraphNode over the manifest's environment dependency graph.
func (m *Environment) GetFQNDependencies() []ResourceName {
	return m.Depends
}
