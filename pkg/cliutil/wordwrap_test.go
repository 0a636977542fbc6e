// SPDX-License-Identifier: Apache-2.0

package cliutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/datapkg/datapkg/pkg/cliutil"
)

func TestWrap(t *testing.T) {
	t.Parallel()
	type testcase struct {
		Width    int
		Input    string
		Expected string
	}
	testcases := map[string]testcase{
		"no-wrap-when-zero": {
			Width:    0,
			Input:    "one two three four five six seven eight nine ten",
			Expected: "one two three four five six seven eight nine ten",
		},
		"simple": {
			Width:    20,
			Input:    "aaaa bbbb cccc dddd eeee",
			Expected: "aaaa bbbb cccc\ndddd eeee",
		},
		"single-long-word": {
			Width:    10,
			Input:    "supercalifragilistic",
			Expected: "supercalifragilistic",
		},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.Expected, cliutil.Wrap(tc.Width, tc.Input))
		})
	}
}

func TestWrapIndent(t *testing.T) {
	t.Parallel()
	// width 20, indent 4 → effective limit 15
	actual := cliutil.WrapIndent(4, 20, "aaaa bbbb cccc dddd")
	assert.Equal(t, "aaaa bbbb\n    cccc dddd", actual)
}
