// SPDX-License-Identifier: Apache-2.0

package datapkg

import "github.com/datapkg/datapkg/pkg/cliutil"

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityOK      Severity = "ok"
)

// Finding is one human-readable validation result.  Collecting findings is
// never fatal; acting on a package that has error findings is: version
// bumps and builds both refuse to proceed.
type Finding struct {
	Message  string
	Severity Severity
}

// Color returns the alert color conventionally used for the severity.
func (f Finding) Color() string {
	switch f.Severity {
	case SeverityError:
		return cliutil.Red
	case SeverityWarning:
		return cliutil.Yellow
	default:
		return cliutil.Green
	}
}

// HasErrors reports whether any finding is error-severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
