package utils

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/pkg/errors"

	"github.com/runwayhq/runway/common/models"
	"github.com/runwayhq/runway/common/util/proc_lock"
)

// ParseEnvNames parses each of the supplied arguments as an environment name.
func ParseEnvNames(args []string) ([]models.ResourceName, error) {
	var names []models.ResourceName
	for _, arg := range args {
		name := models.ResourceName(arg)
		err := name.Validate()
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing %q as an environment name", arg)
		}
		names = append(names, name)
	}
	return names, nil
}

// GetRunwayFileLock opens the lock file for runway exclusively for write, and returns a file handle.
// The caller should keep the file open for the duration of the command.
// Returns an error if any other instance of runway currently has the lock file open (i.e. is running a command).
func GetRunwayFileLock() (*os.File, error) {
	file, err := proc_lock.CreateLockFile(proc_lock.RunwayLockFile)
	if err != nil {
		if pid, pidErr := proc_lock.GetLockFilePid(proc_lock.RunwayLockFile); pidErr == nil && pid > 0 {
			return nil, errors.Wrapf(err, "lock held by pid %d", pid)
		}
		return nil, err
	}
	return file, nil
}

// WithInterrupt returns a context canceled on the first SIGINT. A second
// SIGINT aborts the process immediately. Call stop to release the signal
// handler once the command finishes.
func WithInterrupt(parent context.Context) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)
	sigC := make(chan os.Signal, 2)
	done := make(chan struct{})
	signal.Notify(sigC, os.Interrupt)
	go func() {
		select {
		case <-sigC:
		case <-done:
			return
		}
		fmt.Fprintln(os.Stderr, "Interrupted; waiting for running environments to stop (interrupt again to abort)")
		cancel()
		select {
		case <-sigC:
			os.Exit(130)
		case <-done:
		}
	}()
	var stopOnce sync.Once
	return ctx, func() {
		stopOnce.Do(func() {
			signal.Stop(sigC)
			close(done)
			cancel()
		})
	}
}
