// SPDX-License-Identifier: Apache-2.0

package cliutil

import (
	"strings"
)

// Wrap the string `s` to a maximum width `w`.  Pass `w` == 0 to do no
// wrapping.
//
// In order to have some room for slop to avoid things like a short word
// being on a line by itself, most lines are actually wrapped to `w - 5`.
func Wrap(w int, s string) string {
	return wrap(0, w, s)
}

// WrapIndent wraps the string `s` to a maximum width `w` with leading
// indent `i`.  The first line is not indented (this is assumed to be done
// by the caller).  Pass `w` == 0 to do no wrapping.
func WrapIndent(i, w int, s string) string {
	return wrap(i, w, s)
}

func wrap(indent, width int, s string) string {
	if width <= 0 {
		return s
	}
	limit := width - 5
	if limit <= indent {
		limit = width
	}

	var out strings.Builder
	for i, paragraph := range strings.Split(s, "\n") {
		if i > 0 {
			out.WriteString("\n")
			out.WriteString(strings.Repeat(" ", indent))
		}
		lineLen := indent
		for j, word := range strings.Fields(paragraph) {
			if j > 0 && lineLen+1+len(word) > limit {
				out.WriteString("\n")
				out.WriteString(strings.Repeat(" ", indent))
				lineLen = indent
			} else if j > 0 {
				out.WriteString(" ")
				lineLen++
			}
			out.WriteString(word)
			lineLen += len(word)
		}
	}
	return out.String()
}
