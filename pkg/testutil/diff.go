// SPDX-License-Identifier: Apache-2.0

// Package testutil holds assertion helpers for comparing descriptor
// documents and other multi-line text in tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"
)

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisableMethods:          true,
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// Dump renders a value in a deterministic multi-line form, suitable for
// line-oriented diffing.
func Dump(v any) string {
	return spewConfig.Sdump(v)
}

// Diff returns a unified diff between two multi-line strings.
func Diff(expected, actual string) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  1,
	})
	return diff
}

// AssertEqualText compares two multi-line strings and reports a unified
// diff on mismatch, which reads far better than assert.Equal's one-line
// dump for whole descriptor documents.
func AssertEqualText(t *testing.T, expected, actual, what string) bool {
	t.Helper()
	if expected == actual {
		return true
	}
	t.Errorf("%s mismatch:\n%s", what, Diff(expected, actual))
	return false
}

// AssertEqualValues Dumps both values and diffs the renderings.
func AssertEqualValues(t *testing.T, expected, actual any, what string) bool {
	t.Helper()
	expStr := Dump(expected)
	actStr := Dump(actual)
	if expStr == actStr {
		return true
	}
	t.Errorf("%s mismatch:\n%s", what, Diff(expStr, actStr))
	return false
}

// NormalizeNewlines converts CRLF to LF so fixtures authored on any
// platform compare cleanly.
func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
