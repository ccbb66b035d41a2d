package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// EnvVar represents a single key/value pair to export as an
// environment variable prior to executing an environment's commands.
type EnvVar struct {
	// Name of the environment variable
	Name string `json:"name" yaml:"name"`
	// Value of the environment variable
	Value string `json:"value" yaml:"value"`
	// Secret marks the value for redaction from command output and log files.
	Secret bool `json:"secret,omitempty" yaml:"secret,omitempty"`
}

func (m *EnvVar) Validate() error {
	if m.Name == "" {
		return errors.New("error name must be set")
	}
	return nil
}

// String renders the var in the name=value form expected by os/exec.
func (m *EnvVar) String() string {
	return fmt.Sprintf("%s=%s", m.Name, m.Value)
}

type EnvVars []*EnvVar

func (m *EnvVars) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	str, ok := src.(string)
	if !ok {
		return fmt.Errorf("error unsupported type: %[1]T (%[1]v)", src)
	}
	err := json.Unmarshal([]byte(str), m)
	if err != nil {
		return fmt.Errorf("error unmarshalling from JSON: %w", err)
	}
	return nil
}

func (m EnvVars) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("error marshalling to JSON: %w", err)
	}
	return string(buf), nil
}

// Merge combines the existing environment vars with a new set from extraVars. Vars in
// extraVars win when both sets contain the same name.
func (m EnvVars) Merge(extraVars EnvVars) EnvVars {
	merged := make(EnvVars, 0, len(m)+len(extraVars))
	byName := make(map[string]int)
	for _, v := range m {
		byName[v.Name] = len(merged)
		merged = append(merged, v)
	}
	for _, v := range extraVars {
		if i, ok := byName[v.Name]; ok {
			merged[i] = v
		} else {
			byName[v.Name] = len(merged)
			merged = append(merged, v)
		}
	}
	return merged
}

// Strings renders the vars in the name=value form expected by os/exec.
func (m EnvVars) Strings() []string {
	out := make([]string, len(m))
	for i, v := range m {
		out[i] = v.String()
	}
	return out
}

// SecretValues returns the values of all vars marked secret, for log redaction.
func (m EnvVars) SecretValues() []string {
	var values []string
	for _, v := range m {
		if v.Secret && v.Value != "" {
			values = append(values, v.Value)
		}
	}
	return values
}
