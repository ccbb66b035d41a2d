package models

import (
	"regexp"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// SuppressionCodeRegexStr matches warning codes of the form produced by style
// checkers, e.g. "E501" or "W503".
const SuppressionCodeRegexStr = "^[A-Z]+[0-9]+$"

var suppressionCodeRegex = regexp.MustCompile(SuppressionCodeRegexStr)

// Suppression disables a single warning code during a style-check run.
// A suppression may carry a rationale: a free-form reason and the source
// paths that motivated it.
type Suppression struct {
	// Code is the warning code being suppressed, e.g. "E266".
	Code string `json:"code" yaml:"code"`
	// Reason optionally records why the code is suppressed.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
	// Paths optionally names the source files that motivated the suppression.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`
}

func (m *Suppression) Validate() error {
	if m.Code == "" {
		return errors.New("error suppression code must be set")
	}
	if !suppressionCodeRegex.MatchString(m.Code) {
		return errors.Errorf("error suppression code must match `%s`: %q", SuppressionCodeRegexStr, m.Code)
	}
	return nil
}

// Check configures the style-check profile: which environment runs it and
// which warning codes are suppressed.
type Check struct {
	// Environment names the environment that runs the style checker.
	Environment ResourceName `json:"environment" yaml:"environment"`
	// Suppressions lists the warning codes disabled for the check run.
	Suppressions []*Suppression `json:"suppressions,omitempty" yaml:"suppressions,omitempty"`
	// MaxLineLength optionally overrides the checker's line length limit.
	MaxLineLength int `json:"max_line_length,omitempty" yaml:"max_line_length,omitempty"`
}

func (m *Check) Validate() error {
	var result *multierror.Error
	if err := m.Environment.Validate(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "error invalid check environment"))
	}
	seen := make(map[string]bool)
	for _, s := range m.Suppressions {
		if err := s.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
		if seen[s.Code] {
			result = multierror.Append(result, errors.Errorf("error duplicate suppression code: %q", s.Code))
		}
		seen[s.Code] = true
	}
	return result.ErrorOrNil()
}

// SuppressedCodes returns the suppressed warning codes in declaration order.
func (m *Check) SuppressedCodes() []string {
	codes := make([]string, len(m.Suppressions))
	for i, s := range m.Suppressions {
		codes[i] = s.Code
	}
	return codes
}
