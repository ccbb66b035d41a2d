package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/mitchellh/hashstructure/v2"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/logger"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine/logging"
	"github.com/runwayhq/runway/engine/runtime"
)

const fingerprintFileName = ".fingerprint"

// Placeholders substituted into the manifest's install command before it runs.
const (
	depsPlaceholder   = "{deps}"
	envDirPlaceholder = "{env_dir}"
)

// Config controls how environments are provisioned.
type Config struct {
	// Force reprovisions an environment even when its fingerprint is unchanged.
	Force bool
}

// Provisioner installs an environment's dependencies into its env directory.
// Environments are fingerprinted so that an unchanged environment is not
// reprovisioned on every run.
type Provisioner struct {
	config Config
	log    logger.Log
}

func NewProvisioner(config Config, logFactory logger.LogFactory) *Provisioner {
	return &Provisioner{
		config: config,
		log:    logFactory("Provisioner"),
	}
}

// envFingerprintData is the set of inputs that, when changed, require an
// environment to be reprovisioned.
type envFingerprintData struct {
	Dependencies   []string
	InstallCommand string
	SetEnv         []string
}

// Fingerprint calculates the provisioning fingerprint for an environment.
func (p *Provisioner) Fingerprint(env *models.Environment, installCommand models.Command) (string, error) {
	data := &envFingerprintData{
		Dependencies:   env.Dependencies,
		InstallCommand: installCommand.String(),
		SetEnv:         env.SetEnv.Strings(),
	}
	hash, err := hashstructure.Hash(data, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("error hashing environment definition: %w", err)
	}
	return fmt.Sprintf("%x", hash), nil
}

// Provision installs the environment's dependencies using the manifest's install command,
// skipping the install if the stored fingerprint matches the environment definition.
// The install command's output is written to the environment's log pipeline under
// a "provision" block.
func (p *Provisioner) Provision(
	ctx context.Context,
	rt runtime.Runtime,
	env *models.Environment,
	installCommand models.Command,
	envDir string,
	envVars []string,
	pipeline logging.LogPipeline,
) error {
	log := p.log.WithField("environment", env.Name.String())

	if len(env.Dependencies) == 0 {
		log.Debug("No dependencies to provision")
		return nil
	}

	fingerprint, err := p.Fingerprint(env, installCommand)
	if err != nil {
		return gerror.NewErrProvisionFailed("Error fingerprinting environment", err)
	}
	fingerprintPath := filepath.Join(envDir, fingerprintFileName)
	if !p.config.Force {
		stored, err := os.ReadFile(fingerprintPath)
		if err == nil && strings.TrimSpace(string(stored)) == fingerprint {
			log.Infof("Environment up to date (fingerprint %s); skipping provisioning", fingerprint)
			pipeline.StructuredLogger().WriteLine("Environment up to date; skipping provisioning")
			return nil
		}
	}

	command := expandInstallCommand(installCommand, env.Dependencies, envDir)
	log.WithField("command", command).Info("Provisioning environment")

	sLog := pipeline.StructuredLogger().Wrapf("provision", "Installing %d dependencies...", len(env.Dependencies))
	converter := pipeline.Converter(sLog.Block())
	defer converter.Close()

	config := runtime.ExecConfig{
		Name:     fmt.Sprintf("%s-provision", env.Name),
		Commands: []string{command},
		Env:      envVars,
		Stdout:   converter,
		Stderr:   converter,
	}
	err = rt.Exec(ctx, config)
	if err != nil {
		return gerror.NewErrProvisionFailed("Error installing dependencies", err).
			EDetail("environment", env.Name)
	}

	err = os.WriteFile(fingerprintPath, []byte(fingerprint), 0644)
	if err != nil {
		return gerror.NewErrProvisionFailed("Error recording environment fingerprint", err)
	}
	sLog.WriteLine("Dependencies installed")
	return nil
}

// expandInstallCommand substitutes the dependency list and env directory into
// the manifest's install command template. Dependencies are shell-escaped.
func expandInstallCommand(installCommand models.Command, dependencies []string, envDir string) string {
	command := installCommand.String()
	command = strings.ReplaceAll(command, depsPlaceholder, shellescape.QuoteCommand(dependencies))
	command = strings.ReplaceAll(command, envDirPlaceholder, shellescape.Quote(envDir))
	return command
}
