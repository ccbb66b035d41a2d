package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
)

func makeTestProvisioner(t *testing.T, config Config) *Provisioner {
	logRegistry, err := logger.NewLogRegistry("")
	require.NoError(t, err)
	return NewProvisioner(config, logger.MakeLogrusLogFactoryStdOut(logRegistry))
}

func TestFingerprintIsStable(t *testing.T) {
	p := makeTestProvisioner(t, Config{})
	env := &models.Environment{
		Name:         "unit",
		Dependencies: []string{"pytest", "coverage>=5"},
		SetEnv:       models.EnvVars{{Name: "PYTHONHASHSEED", Value: "0"}},
	}

	first, err := p.Fingerprint(env, "pip install {deps}")
	require.NoError(t, err)
	second, err := p.Fingerprint(env, "pip install {deps}")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFingerprintChangesWithInputs(t *testing.T) {
	p := makeTestProvisioner(t, Config{})
	env := &models.Environment{
		Name:         "unit",
		Dependencies: []string{"pytest"},
	}

	base, err := p.Fingerprint(env, "pip install {deps}")
	require.NoError(t, err)

	changedDeps := &models.Environment{
		Name:         "unit",
		Dependencies: []string{"pytest", "mock"},
	}
	withDeps, err := p.Fingerprint(changedDeps, "pip install {deps}")
	require.NoError(t, err)
	assert.NotEqual(t, base, withDeps)

	withCommand, err := p.Fingerprint(env, "pip install --upgrade {deps}")
	require.NoError(t, err)
	assert.NotEqual(t, base, withCommand)
}

func TestExpandInstallCommand(t *testing.T) {
	command := expandInstallCommand(
		"pip install --target {env_dir} {deps}",
		[]string{"pytest", "coverage>=5"},
		"/tmp/envs/unit/env")
	assert.Equal(t, "pip install --target /tmp/envs/unit/env pytest 'coverage>=5'", command)
}
