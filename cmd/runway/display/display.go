package display

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/runwayhq/runway/common/models"
)

// Display renders environment progress while a run is in flight.
type Display interface {
	Start()
	Stop()
	// EnvironmentQueued is called once per environment before the run starts.
	EnvironmentQueued(env *models.Environment)
	// EnvironmentStarted is called when an environment begins executing.
	EnvironmentStarted(env *models.Environment)
	// EnvironmentFinished is called with the final result of an environment.
	EnvironmentFinished(result *models.EnvResult)
}

// NewDisplay returns a spinner display when out is an interactive terminal,
// and a plain line-oriented display otherwise. Set plain to force line output
// (e.g. for verbose or JSON modes where spinners would fight the log stream).
func NewDisplay(out *os.File, plain bool) Display {
	if !plain && (isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())) {
		return NewSpinnerManager()
	}
	return NewPlainDisplay(out)
}

// PlainDisplay writes one line per environment status change. Used when stdout
// is not a terminal or when spinners are unwanted.
type PlainDisplay struct {
	out io.Writer
}

func NewPlainDisplay(out io.Writer) *PlainDisplay {
	return &PlainDisplay{out: out}
}

func (d *PlainDisplay) Start() {}

func (d *PlainDisplay) Stop() {}

func (d *PlainDisplay) EnvironmentQueued(env *models.Environment) {}

func (d *PlainDisplay) EnvironmentStarted(env *models.Environment) {
	fmt.Fprintf(d.out, "%s: running\n", env.Name)
}

func (d *PlainDisplay) EnvironmentFinished(result *models.EnvResult) {
	if result.Error != nil && result.Error.Valid() {
		fmt.Fprintf(d.out, "%s: %s (%s)\n", result.Name, result.Status, result.Error)
		return
	}
	fmt.Fprintf(d.out, "%s: %s\n", result.Name, result.Status)
}
