// SPDX-License-Identifier: Apache-2.0

package semver

import (
	"fmt"
	"sort"
)

// LatestAliases maps "MAJOR" and "MAJOR.MINOR" shorthand aliases to the
// highest full version carrying that prefix, plus a "latest" alias for the
// globally highest version.  Strings that are not valid semvers are
// skipped.  An empty or all-invalid input yields an empty map.
func LatestAliases(versions []string) map[string]string {
	parsed := make([]Version, 0, len(versions))
	for _, str := range versions {
		if ver := Parse(str); ver != nil {
			parsed = append(parsed, *ver)
		}
	}
	if len(parsed) == 0 {
		return map[string]string{}
	}
	sort.Slice(parsed, func(i, j int) bool {
		return parsed[i].Compare(parsed[j]) < 0
	})

	// Walking in ascending order means the last writer per prefix wins,
	// which is exactly the highest version in that prefix group.  Alias
	// values are the input versions themselves, prerelease tags and all,
	// so an alias always names a version that actually exists.
	aliases := make(map[string]string, 2*len(parsed)+1)
	for _, ver := range parsed {
		full := ver.String()
		aliases[fmt.Sprintf("%d", ver.Major)] = full
		aliases[fmt.Sprintf("%d.%d", ver.Major, ver.Minor)] = full
	}
	aliases["latest"] = parsed[len(parsed)-1].String()
	return aliases
}

// NormalizeManifestVersion pads a two-component "X.Y" version read from a
// package manifest out to "X.Y.0".  Anything else is returned unchanged.
func NormalizeManifestVersion(str string) string {
	if ver := Parse(str + ".0"); ver != nil && Parse(str) == nil {
		return str + ".0"
	}
	return str
}
