package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RunID identifies a recorded run in the history store.
type RunID int64

func (s RunID) Valid() bool {
	return s > 0
}

// Run records a single invocation of the orchestrator: which environments were
// requested and how the run finished.
type Run struct {
	ID        RunID `json:"id" goqu:"skipinsert" db:"run_id"`
	CreatedAt Time  `json:"created_at" goqu:"skipupdate" db:"run_created_at"`
	// FinishedAt is set once all environments have finished.
	FinishedAt *Time `json:"finished_at,omitempty" db:"run_finished_at"`
	// ManifestFingerprint is the fingerprint of the manifest the run executed.
	ManifestFingerprint string `json:"manifest_fingerprint" db:"run_manifest_fingerprint"`
	// Requested lists the environment names the run was asked to execute.
	Requested ResourceNames `json:"requested" db:"run_requested"`
	// Status reflects where the run is in processing.
	Status Status `json:"status" db:"run_status"`
	// Error is set if the run finished with an error (or nil if the run succeeded).
	Error *Error `json:"error" db:"run_error"`
}

// ResourceNames is a list of resource names stored as a JSON array.
type ResourceNames []ResourceName

func (m ResourceNames) Strings() []string {
	out := make([]string, len(m))
	for i, name := range m {
		out[i] = string(name)
	}
	return out
}

func (m *ResourceNames) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("unsupported type: %[1]T (%[1]v)", src)
	}
	err := json.Unmarshal([]byte(str), m)
	if err != nil {
		return fmt.Errorf("error unmarshalling from JSON: %w", err)
	}
	return nil
}

func (m ResourceNames) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error marshalling to JSON: %w", err)
	}
	return string(buf), nil
}

// EnvResult records the outcome of one environment within a run.
type EnvResult struct {
	ID    int64 `json:"id" goqu:"skipinsert" db:"env_result_id"`
	RunID RunID `json:"run_id" db:"env_result_run_id"`
	// Name of the environment this result belongs to.
	Name ResourceName `json:"name" db:"env_result_name"`
	// Status reflects how the environment finished.
	Status Status `json:"status" db:"env_result_status"`
	// Error is set if the environment finished with an error.
	Error     *Error `json:"error" db:"env_result_error"`
	StartedAt Time   `json:"started_at" db:"env_result_started_at"`
	// FinishedAt is set once the environment has finished.
	FinishedAt *Time `json:"finished_at,omitempty" db:"env_result_finished_at"`
	// CommandResults holds the per-command outcomes. Not persisted; the
	// history store records environments, the log files record commands.
	CommandResults []*CommandResult `json:"command_results,omitempty" db:"-"`
}

// Duration returns how long the environment ran for, or zero if it has not finished.
func (m *EnvResult) Duration() time.Duration {
	if m.FinishedAt == nil {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt.Time)
}

// CommandResult records the outcome of a single command within an environment.
type CommandResult struct {
	// Name identifies the command within the environment.
	Name ResourceName `json:"name"`
	// Command is the command text that was executed.
	Command Command `json:"command"`
	// Status reflects how the command finished.
	Status Status `json:"status"`
	// ExitCode is the command's process exit code (zero on success).
	ExitCode int `json:"exit_code"`
	// Error is set if the command finished with an error.
	Error      *Error `json:"error,omitempty"`
	StartedAt  Time   `json:"started_at"`
	FinishedAt *Time  `json:"finished_at,omitempty"`
}
