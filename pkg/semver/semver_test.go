// SPDX-License-Identifier: Apache-2.0

package semver_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapkg/datapkg/pkg/semver"
)

func TestParse(t *testing.T) {
	t.Parallel()
	testcases := map[string]*semver.Version{
		"0.0.0":            {},
		"1.2.3":            {Major: 1, Minor: 2, Patch: 3},
		"10.20.30":         {Major: 10, Minor: 20, Patch: 30},
		"1.0.0-alpha":      {Major: 1, Prerelease: "alpha"},
		"1.0.0-alpha.1":    {Major: 1, Prerelease: "alpha.1"},
		"1.0.0-rc.1+b42":   {Major: 1, Prerelease: "rc.1", Build: "b42"},
		"2.1.0+20130313":   {Major: 2, Minor: 1, Build: "20130313"},
		"1.2":              nil,
		"1.2.3.4":          nil,
		"01.2.3":           nil,
		"1.02.3":           nil,
		"1.2.03":           nil,
		"v1.2.3":           nil,
		"1.2.3-":           nil,
		"1.2.3+":           nil,
		"not-a-version":    nil,
		"":                 nil,
		"1.2.3 ":           nil,
		"1.0.0-alpha..1":   nil,
		"-1.2.3":           nil,
	}
	for input, expected := range testcases {
		input := input
		expected := expected
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			actual := semver.Parse(input)
			assert.Equal(t, expected, actual)
			assert.Equal(t, expected != nil, semver.IsValid(input))
			if expected != nil {
				// round-trip
				assert.Equal(t, input, actual.String())
			}
		})
	}
}

func TestBump(t *testing.T) {
	t.Parallel()
	type testcase struct {
		Input    string
		Part     string
		Expected string
	}
	testcases := []testcase{
		{"1.2.3", "major", "2.0.0"},
		{"1.2.3", "minor", "1.3.0"},
		{"1.2.3", "patch", "1.2.4"},
		{"0.1.0", "minor", "0.2.0"},
		{"0.0.9", "patch", "0.0.10"},
		{"1.0.0-beta", "patch", "1.0.1"},
	}
	for _, tc := range testcases {
		tc := tc
		t.Run(tc.Input+"/"+tc.Part, func(t *testing.T) {
			t.Parallel()
			actual, err := semver.Bump(tc.Input, tc.Part)
			require.NoError(t, err)
			assert.Equal(t, tc.Expected, actual)
		})
	}

	_, err := semver.Bump("1.2.3", "micro")
	assert.Error(t, err)
	_, err = semver.Bump("bogus", "patch")
	assert.Error(t, err)
}

func TestBumpProperties(t *testing.T) {
	t.Parallel()
	versions := []string{"0.0.0", "0.1.0", "1.0.0", "2.3.4", "9.9.9", "1.0.0-rc.1"}
	for _, str := range versions {
		ver := semver.Parse(str)
		require.NotNil(t, ver)

		major, err := semver.Bump(str, "major")
		require.NoError(t, err)
		assert.Equal(t, &semver.Version{Major: ver.Major + 1}, semver.Parse(major))

		minor, err := semver.Bump(str, "minor")
		require.NoError(t, err)
		assert.Equal(t, &semver.Version{Major: ver.Major, Minor: ver.Minor + 1}, semver.Parse(minor))

		patch, err := semver.Bump(str, "patch")
		require.NoError(t, err)
		assert.Equal(t,
			&semver.Version{Major: ver.Major, Minor: ver.Minor, Patch: ver.Patch + 1},
			semver.Parse(patch))

		// every bump result is strictly higher than its input
		assert.True(t, semver.IsHigher(str, major))
		assert.True(t, semver.IsHigher(str, minor))
		assert.True(t, semver.IsHigher(str, patch))
	}
}

func TestIsHigher(t *testing.T) {
	t.Parallel()
	type testcase struct {
		Current   string
		Candidate string
		Expected  bool
	}
	testcases := []testcase{
		{"1.0.0", "2.0.0", true},
		{"1.0.0", "1.1.0", true},
		{"1.0.0", "1.0.1", true},
		{"2.0.0", "1.9.9", false},
		{"1.1.0", "1.0.9", false},
		{"1.0.1", "1.0.0", false},
		{"1.0.0", "1.0.0", false},
		// the documented prerelease gap: ordering ignores the tag
		{"1.0.0-beta", "1.0.0", false},
		{"1.0.0", "1.0.0-beta", false},
		// invalid input on either side is never "higher"
		{"bogus", "1.0.0", false},
		{"1.0.0", "bogus", false},
	}
	for _, tc := range testcases {
		assert.Equalf(t, tc.Expected, semver.IsHigher(tc.Current, tc.Candidate),
			"IsHigher(%q, %q)", tc.Current, tc.Candidate)
	}
}

func TestCompareSort(t *testing.T) {
	t.Parallel()
	// listed in expected ascending order
	expected := []string{
		"0.9.0",
		"1.0.0-alpha",
		"1.0.0-alpha.1",
		"1.0.0-alpha.beta",
		"1.0.0-beta",
		"1.0.0-beta.2",
		"1.0.0-beta.11",
		"1.0.0-rc.1",
		"1.0.0",
		"1.0.1",
		"1.10.0",
		"2.0.0",
	}
	shuffled := append([]string(nil), expected...)
	sort.Sort(sort.Reverse(sort.StringSlice(shuffled)))
	sort.SliceStable(shuffled, func(i, j int) bool {
		return semver.Parse(shuffled[i]).Compare(*semver.Parse(shuffled[j])) < 0
	})
	assert.Equal(t, expected, shuffled)
}

func TestLatestAliases(t *testing.T) {
	t.Parallel()
	aliases := semver.LatestAliases([]string{
		"1.0.0", "1.0.1", "1.2.0", "2.0.0", "2.0.3", "0.1.0", "garbage",
	})
	assert.Equal(t, map[string]string{
		"0":      "0.1.0",
		"0.1":    "0.1.0",
		"1":      "1.2.0",
		"1.0":    "1.0.1",
		"1.2":    "1.2.0",
		"2":      "2.0.3",
		"2.0":    "2.0.3",
		"latest": "2.0.3",
	}, aliases)

	assert.Equal(t, map[string]string{}, semver.LatestAliases(nil))
}

func TestLatestAliasesPrerelease(t *testing.T) {
	t.Parallel()
	// Alias values are the input versions themselves: a prerelease at
	// the top of a prefix group keeps its tag.
	aliases := semver.LatestAliases([]string{"0.9.0", "1.0.0-beta"})
	assert.Equal(t, map[string]string{
		"0":      "0.9.0",
		"0.9":    "0.9.0",
		"1":      "1.0.0-beta",
		"1.0":    "1.0.0-beta",
		"latest": "1.0.0-beta",
	}, aliases)

	// A final release outranks its own prerelease.
	aliases = semver.LatestAliases([]string{"1.0.0-beta", "1.0.0"})
	assert.Equal(t, "1.0.0", aliases["latest"])
}

func TestNormalizeManifestVersion(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1.2.0", semver.NormalizeManifestVersion("1.2"))
	assert.Equal(t, "1.2.3", semver.NormalizeManifestVersion("1.2.3"))
	assert.Equal(t, "bogus", semver.NormalizeManifestVersion("bogus"))
}
