// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"fmt"
	"os"
)

// Alert colors used for status output; chosen to match the severity
// conventions of the validation findings (red = error, green = ok,
// yellow = warning, blue = progress).
const (
	Red    = "red"
	Green  = "green"
	Yellow = "yellow"
	Blue   = "blue"
)

var ansiCodes = map[string]string{
	Red:    "31",
	Green:  "32",
	Yellow: "33",
	Blue:   "34",
}

// Colorize wraps s in the ANSI escape for the named color.  It is a no-op
// when stdout is not a terminal, so piped output stays clean.
func Colorize(color, s string) string {
	code, ok := ansiCodes[color]
	if !ok || !StdoutIsTerminal() {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// Alert prints a severity-colored line to stdout.
func Alert(color, format string, args ...any) {
	fmt.Fprintln(os.Stdout, Colorize(color, fmt.Sprintf(format, args...)))
}

// Alertf is Alert without the trailing newline, for step-progress output
// like "Building datapackage.json ... ok".
func Alertf(color, format string, args ...any) {
	fmt.Fprint(os.Stdout, Colorize(color, fmt.Sprintf(format, args...)))
}
