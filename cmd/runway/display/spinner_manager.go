package display

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chelnak/ysmrr"

	"github.com/runwayhq/runway/common/models"
)

type spinnerState struct {
	// spinner is the underlying spinner object (not nil)
	spinner *ysmrr.Spinner
	// envName is the name to display in the spinner message for the environment
	envName string
	// envNameDisplayLength is the desired length to pad or truncate the envName to for display (in runes)
	envNameDisplayLength int
	// envFinished is true if this spinner's environment is now finished, so no further text updates should be accepted
	envFinished bool
	// text is the text to display in the spinner message after the environment name
	text string
}

// newSpinnerState creates a spinner state object for the specified spinner, which must not be nil.
// envName is the name to display for the environment, and is immutable once set.
func newSpinnerState(spinner *ysmrr.Spinner, envName string, envNameDisplayLength int, text string) *spinnerState {
	state := &spinnerState{
		envName:              envName,
		envNameDisplayLength: envNameDisplayLength,
		envFinished:          false,
		text:                 text,
		spinner:              spinner,
	}
	spinner.UpdateMessage(state.getDisplayMessage())
	return state
}

// setEnvNameDisplayLength sets the length for the displayed environment name (in runes), and updates
// the underlying spinner's message to reflect this change.
func (s *spinnerState) setEnvNameDisplayLength(length int) {
	s.envNameDisplayLength = length
	s.spinner.UpdateMessage(s.getDisplayMessage())
}

// setText sets the text to display beside the environment name in the spinner, and updates the
// underlying spinner's message.
// If finished is true then this will be the last text update for the spinner, and further updates
// will be ignored.
func (s *spinnerState) setText(text string, finished bool) {
	if s.envFinished {
		return
	}
	s.text = text
	s.spinner.UpdateMessage(s.getDisplayMessage())
	s.envFinished = finished
}

// getDisplayMessage returns the full message to display for the spinner, including the environment
// name (padded or truncated to the correct length) followed by the text.
func (s *spinnerState) getDisplayMessage() string {
	// Pad or truncate the name in runes, not in bytes
	displayName := s.envName
	nameLength := utf8.RuneCountInString(displayName)
	if s.envNameDisplayLength > nameLength {
		displayName += strings.Repeat(" ", s.envNameDisplayLength-nameLength)
	} else if s.envNameDisplayLength < nameLength {
		displayName = truncateString(displayName, s.envNameDisplayLength)
	}

	return fmt.Sprintf("%s %s", displayName, s.text)
}

// truncateString truncates the specified string to contain no more than maxLength runes.
// It works with multibyte runes (a basic string slice operation does not).
func truncateString(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[0:maxLength])
}

// SpinnerManager maintains a set of spinners, one for each environment in the run.
// It implements the engine's run listener.
type SpinnerManager struct {
	manager ysmrr.SpinnerManager

	spinnersByName map[models.ResourceName]*spinnerState
	spinnersMu     sync.RWMutex // protects spinnersByName
}

func NewSpinnerManager() *SpinnerManager {
	return &SpinnerManager{
		manager:        ysmrr.NewSpinnerManager(),
		spinnersByName: map[models.ResourceName]*spinnerState{},
	}
}

func (s *SpinnerManager) Start() {
	s.manager.Start()
}

func (s *SpinnerManager) Stop() {
	s.manager.Stop()
}

// EnvironmentQueued creates a spinner for the environment if one does not exist.
// The displayed names for all existing spinners will be lengthened if necessary to
// match the new environment name.
func (s *SpinnerManager) EnvironmentQueued(env *models.Environment) {
	if s == nil {
		return // there is no spinner manager
	}
	s.spinnersMu.Lock()
	defer s.spinnersMu.Unlock()

	if _, exists := s.spinnersByName[env.Name]; exists {
		return
	}

	// Work out the maximum length (in runes) across all existing environment names
	maxLen := 0
	for _, state := range s.spinnersByName {
		if state.envNameDisplayLength > maxLen {
			maxLen = state.envNameDisplayLength
		}
	}

	// If the new name is longer than the existing ones then lengthen them all
	newNameLen := utf8.RuneCountInString(env.Name.String())
	if newNameLen > maxLen {
		maxLen = newNameLen
		for _, state := range s.spinnersByName {
			state.setEnvNameDisplayLength(maxLen)
		}
	}

	spinner := s.manager.AddSpinner("")
	state := newSpinnerState(spinner, env.Name.String(), maxLen, models.StatusQueued.String())
	s.spinnersByName[env.Name] = state
}

// EnvironmentStarted updates the environment's spinner to show it running.
func (s *SpinnerManager) EnvironmentStarted(env *models.Environment) {
	s.updateStatus(env.Name, models.StatusRunning)
}

// EnvironmentFinished updates the environment's spinner to its final state.
func (s *SpinnerManager) EnvironmentFinished(result *models.EnvResult) {
	s.updateStatus(result.Name, result.Status)
}

// updateStatus updates the message and state shown on the spinner for the specified
// environment to match the specified status.
// If there is no spinner for the environment then this is a no-op.
func (s *SpinnerManager) updateStatus(name models.ResourceName, status models.Status) {
	if s == nil {
		return // there is no spinner manager
	}
	s.spinnersMu.RLock()
	defer s.spinnersMu.RUnlock()

	state, found := s.spinnersByName[name]
	if found {
		state.setText(status.String(), status.HasFinished())
		switch status {
		case models.StatusSucceeded:
			state.spinner.Complete()
		case models.StatusFailed, models.StatusCanceled, models.StatusSkipped:
			state.spinner.Error()
		default:
			state.spinner.Start()
		}
	}
	// if not found then do nothing
}
