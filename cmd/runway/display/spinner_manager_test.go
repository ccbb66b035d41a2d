package display

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runwayhq/runway/common/models"
)

func TestSpinnerManager_StatusTransitions(t *testing.T) {
	m := NewSpinnerManager()

	env := &models.Environment{Name: "unit"}
	m.EnvironmentQueued(env)
	require.Contains(t, m.spinnersByName, env.Name)
	state := m.spinnersByName[env.Name]
	assert.Equal(t, fmt.Sprintf("unit %s", models.StatusQueued), state.spinner.GetMessage())
	assert.False(t, state.spinner.IsStarted())

	m.EnvironmentStarted(env)
	assert.True(t, state.spinner.IsStarted())
	assert.Equal(t, fmt.Sprintf("unit %s", models.StatusRunning), state.spinner.GetMessage())
	assert.False(t, state.spinner.IsComplete())

	m.EnvironmentFinished(&models.EnvResult{Name: env.Name, Status: models.StatusSucceeded})
	assert.True(t, state.spinner.IsComplete())
	assert.True(t, state.envFinished)

	// No further text updates once finished
	m.EnvironmentStarted(env)
	assert.Equal(t, fmt.Sprintf("unit %s", models.StatusSucceeded), state.spinner.GetMessage())
}

func TestSpinnerManager_FailureMarksSpinnerErrored(t *testing.T) {
	m := NewSpinnerManager()

	env := &models.Environment{Name: "lint"}
	m.EnvironmentQueued(env)
	m.EnvironmentStarted(env)
	m.EnvironmentFinished(&models.EnvResult{Name: env.Name, Status: models.StatusFailed})

	state := m.spinnersByName[env.Name]
	assert.True(t, state.spinner.IsError())
	assert.False(t, state.spinner.IsComplete())
}

func TestSpinnerManager_PadsNamesToLongest(t *testing.T) {
	m := NewSpinnerManager()

	m.EnvironmentQueued(&models.Environment{Name: "ci"})
	m.EnvironmentQueued(&models.Environment{Name: "integration"})

	short := m.spinnersByName["ci"]
	long := m.spinnersByName["integration"]
	assert.Equal(t, long.envNameDisplayLength, short.envNameDisplayLength)
	assert.Equal(t, fmt.Sprintf("ci          %s", models.StatusQueued), short.spinner.GetMessage())
}

func TestSpinnerManager_QueueIsIdempotent(t *testing.T) {
	m := NewSpinnerManager()

	env := &models.Environment{Name: "docs"}
	m.EnvironmentQueued(env)
	first := m.spinnersByName[env.Name]
	m.EnvironmentQueued(env)
	assert.Same(t, first, m.spinnersByName[env.Name])
}
