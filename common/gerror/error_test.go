package gerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/stretchr/testify/require"
)

func TestError(t *testing.T) {
	err := NewErrAlreadyExists("env already exists")
	err = err.Wrap(fmt.Errorf("i'm a scary internal error"))
	require.Equal(t, "env already exists: i'm a scary internal error", err.Error())
	require.Equal(t, "env already exists", err.Message())

	err = err.EDetail("env", "lint")
	require.Equal(t, "env already exists [env=lint]: i'm a scary internal error", err.Error())
	require.Equal(t, "env already exists", err.Message())

	err = err.Wrap(NewErrNotFound("env does not exist").EDetail("env", "docs").Wrap(fmt.Errorf("i'm a scary internal error")))
	require.Equal(t, "env already exists [env=lint]: env does not exist [env=docs]: i'm a scary internal error", err.Error())
	require.Equal(t, "env already exists", err.Message())
}

func TestErrorExitCode(t *testing.T) {
	err := NewErrCommandFailed("command failed", errors.New("exit status 3"))
	require.True(t, HasExitCode(err, ExitCodeFailure))
	require.False(t, HasExitCode(err, ExitCodeInternal))
	require.True(t, HasExitCode(NewErrInternal(), ExitCodeInternal))
}

func TestMultiError(t *testing.T) {
	// Compose a multierror with our tested error in the middle
	var results *multierror.Error

	results = multierror.Append(results, fmt.Errorf("error 1: %w", errors.New("1")))
	results = multierror.Append(results, NewErrProvisionFailed("Failed provisioning environment", errors.New("2")))
	results = multierror.Append(results, fmt.Errorf("error 3: %w", errors.New("3")))

	// Assert that our Is chaining returns an error in the middle of the chain
	err := results.ErrorOrNil()
	require.True(t, IsProvisionFailed(err))

	// Wrap up the above error with another multierror
	var outerResults *multierror.Error
	outerResults = multierror.Append(err, fmt.Errorf("outer error 1: %w", errors.New("11")))

	// And assert our Is chaining returns the error we are after.
	outerErr := outerResults.ErrorOrNil()
	require.True(t, IsProvisionFailed(outerErr))
}
