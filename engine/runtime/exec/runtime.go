package exec

import (
	"context"
	"os"
	hExec "os/exec"

	"github.com/runwayhq/runway/common/gerror"
	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/engine/runtime"
)

type Config struct {
	runtime.Config
	ShellOrNil *string
}

// Runtime executes commands directly on the host machine.
type Runtime struct {
	config Config
}

func NewRuntime(config Config) *Runtime {
	return &Runtime{config: config}
}

// Start initializes the runtime and prepares it to have commands Exec'd inside it.
func (r *Runtime) Start(ctx context.Context) error {
	return nil
}

// Stop tears down the runtime.
func (r *Runtime) Stop(ctx context.Context) error {
	return nil
}

// Exec executes a command inside the runtime.
// Start must have been called before calling Exec.
func (r *Runtime) Exec(ctx context.Context, config runtime.ExecConfig) error {
	hostOS := runtime.GetHostOS()

	scriptName := models.NormalizeResourceName(config.Name)
	if hostOS == runtime.OSWindows {
		// Windows cmd.exe requires scripts to end in ".bat", or they won't be executed
		scriptName += ".bat"
	}

	scriptPath, err := runtime.WriteScript(r.config.StagingDir, scriptName, config.Commands)
	if err != nil {
		return err
	}
	shell := runtime.ShellOrDefault(hostOS, r.config.ShellOrNil)

	var cmd *hExec.Cmd
	if hostOS == runtime.OSWindows {
		// Windows cmd.exe requires the /C option to run commands, as well as some other recommended options.
		// NOTE that "/C" must be the last option, immediately before the actual command.
		cmd = hExec.Command(shell, "/D", "/E:ON", "/V:OFF", "/S", "/C", scriptPath)
	} else {
		cmd = hExec.Command(shell, scriptPath)
	}
	setProcessGroup(cmd)

	cmd.Dir = r.config.WorkspaceDir
	if config.Dir != "" {
		cmd.Dir = config.Dir
	}
	cmd.Stdout = config.Stdout
	cmd.Stderr = config.Stderr

	// Keep the existing PATH and HOME env variables so that commands can still be found and run.
	// Do not keep all env variables; the manifest's pass_env allowlist controls the rest.
	cmd.Env = append(config.Env, "PATH="+os.Getenv("PATH"), "HOME="+os.Getenv("HOME"))

	err = cmd.Start()
	if err != nil {
		return gerror.NewErrCommandFailed("Error starting command", err).
			EDetail("command", config.Name)
	}
	waitC := make(chan error, 1)
	go func() { waitC <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		// Kill the whole process group: killing only the shell leaves children
		// holding the output pipes open, and Wait would block on them.
		terminateProcessGroup(cmd)
		<-waitC
		return gerror.NewErrCommandFailed("Command canceled", ctx.Err()).
			EDetail("command", config.Name)
	case err = <-waitC:
	}
	if err != nil {
		if exitErr, ok := err.(*hExec.ExitError); ok {
			return gerror.NewErrCommandFailed("Command failed", err).
				EDetail("command", config.Name).
				EDetail("exit_code", exitErr.ExitCode())
		}
		return gerror.NewErrCommandFailed("Error running command", err).
			EDetail("command", config.Name)
	}
	return nil
}

// CleanUp removes any resources left over from previous commands that may not have finished cleanly.
func (r *Runtime) CleanUp(ctx context.Context) error {
	// For Exec runtimes commands run inline, so there's nothing to do.
	return nil
}
