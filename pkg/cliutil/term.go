// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"os"
	"strconv"

	"golang.org/x/term"
)

// GetTerminalWidth returns the width that help text should be wrapped to.
func GetTerminalWidth() int {
	// Obey COLUMNS if the shell or user sets it.
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil {
		return cols
	}

	// Try to detect the size of the stdout file descriptor.
	if cols, _, err := term.GetSize(1); err == nil {
		return cols
	}

	// stdout is a terminal but we couldn't get its size.
	if term.IsTerminal(1) {
		return 80
	}

	// stdout isn't a terminal; 0 means "don't wrap".
	return 0
}

// StdoutIsTerminal reports whether stdout is a TTY; colored status output
// is only emitted when it is.
func StdoutIsTerminal() bool {
	return term.IsTerminal(1)
}
