// SPDX-License-Identifier: Apache-2.0

// Package semver parses, compares, and bumps "MAJOR.MINOR.PATCH" semantic
// version strings as used in dataset package manifests.
package semver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/util/intstr"
)

// Version is a parsed semantic version.  Versions are never held live in
// package metadata; they are round-tripped through their string form on
// every read and write.
type Version struct {
	Major int
	Minor int
	Patch int

	// Prerelease is the dot-separated identifier list after a "-", or ""
	// if the version is final.
	Prerelease string
	// Build is the metadata after a "+", or "".  Build metadata never
	// participates in ordering.
	Build string
}

// The grammar from semver.org; numeric components have no leading zeros
// except exactly "0".
var semverRE = regexp.MustCompile(`^` +
	`(?P<major>0|[1-9]\d*)\.(?P<minor>0|[1-9]\d*)\.(?P<patch>0|[1-9]\d*)` +
	`(?:-(?P<prerelease>[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
	`(?:\+(?P<build>[0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?` +
	`$`)

// Parse parses a semantic version string.  It returns nil if the string is
// not a valid semver; callers treat nil as "not a version", not as an
// error condition.
func Parse(str string) *Version {
	m := semverRE.FindStringSubmatch(str)
	if m == nil {
		return nil
	}
	ver := &Version{}
	for i, name := range semverRE.SubexpNames() {
		switch name {
		case "major":
			ver.Major, _ = strconv.Atoi(m[i])
		case "minor":
			ver.Minor, _ = strconv.Atoi(m[i])
		case "patch":
			ver.Patch, _ = strconv.Atoi(m[i])
		case "prerelease":
			ver.Prerelease = m[i]
		case "build":
			ver.Build = m[i]
		}
	}
	return ver
}

// IsValid reports whether str is a valid semantic version.
func IsValid(str string) bool {
	return Parse(str) != nil
}

// String implements fmt.Stringer.
func (ver Version) String() string {
	var ret strings.Builder
	fmt.Fprintf(&ret, "%d.%d.%d", ver.Major, ver.Minor, ver.Patch)
	if ver.Prerelease != "" {
		ret.WriteString("-")
		ret.WriteString(ver.Prerelease)
	}
	if ver.Build != "" {
		ret.WriteString("+")
		ret.WriteString(ver.Build)
	}
	return ret.String()
}

// IsFinal reports whether the version carries no prerelease tag.
func (ver Version) IsFinal() bool {
	return ver.Prerelease == ""
}

// PrereleaseSegments splits the prerelease tag into its dot-separated
// identifiers, numeric segments as ints and the rest as strings.
func (ver Version) PrereleaseSegments() []intstr.IntOrString {
	if ver.Prerelease == "" {
		return nil
	}
	parts := strings.Split(ver.Prerelease, ".")
	segs := make([]intstr.IntOrString, 0, len(parts))
	for _, part := range parts {
		if n, err := strconv.Atoi(part); err == nil && !(len(part) > 1 && part[0] == '0') {
			segs = append(segs, intstr.FromInt(n))
		} else {
			segs = append(segs, intstr.FromString(part))
		}
	}
	return segs
}

// IsHigher reports whether candidate is strictly greater than current under
// the numeric (major, minor, patch) ordering.  Prerelease and build metadata
// are ignored: "1.0.0-beta" and "1.0.0" are not distinguished.  The bump
// logic handles prerelease finalization explicitly instead.  Invalid input
// on either side yields false.
func IsHigher(current, candidate string) bool {
	cur := Parse(current)
	cand := Parse(candidate)
	if cur == nil || cand == nil {
		return false
	}
	if cand.Major != cur.Major {
		return cand.Major > cur.Major
	}
	if cand.Minor != cur.Minor {
		return cand.Minor > cur.Minor
	}
	return cand.Patch > cur.Patch
}

// Compare returns a number < 0 if version 'a' is less than version 'b', > 0
// if 'a' is greater than 'b', or 0 if they are equal.  This is similar to
// the C-language strcmp.  Unlike IsHigher, Compare is a total order: equal
// numeric triples are broken by the prerelease tag (a prerelease sorts
// before its final release, and segments compare per the semver spec).
func (a Version) Compare(b Version) int {
	if d := a.Major - b.Major; d != 0 {
		return d
	}
	if d := a.Minor - b.Minor; d != 0 {
		return d
	}
	if d := a.Patch - b.Patch; d != 0 {
		return d
	}
	return cmpPrerelease(a, b)
}

func cmpPrerelease(a, b Version) int {
	switch {
	case a.Prerelease == "" && b.Prerelease == "":
		return 0
	case a.Prerelease == "":
		return 1
	case b.Prerelease == "":
		return -1
	}
	aSegs := a.PrereleaseSegments()
	bSegs := b.PrereleaseSegments()
	for i := 0; i < len(aSegs) || i < len(bSegs); i++ {
		var aSeg, bSeg *intstr.IntOrString
		if i < len(aSegs) {
			aSeg = &aSegs[i]
		}
		if i < len(bSegs) {
			bSeg = &bSegs[i]
		}
		if d := cmpPrereleaseSegment(aSeg, bSeg); d != 0 {
			return d
		}
	}
	return 0
}

func cmpPrereleaseSegment(a, b *intstr.IntOrString) int {
	// A shorter identifier list sorts first when it is a prefix of the
	// longer one.
	switch {
	case a == nil && b != nil:
		return -1
	case a != nil && b == nil:
		return 1
	}
	switch {
	case a.Type == intstr.Int && b.Type == intstr.Int:
		return int(a.IntVal - b.IntVal)
	case a.Type == intstr.String && b.Type == intstr.String:
		return strings.Compare(a.StrVal, b.StrVal)
	case a.Type == intstr.Int:
		// Numeric identifiers sort before alphanumeric ones.
		return -1
	default:
		return 1
	}
}

// Bump increments the named part ("major", "minor", or "patch") of a
// version string, resetting the lower parts to zero.  Any prerelease or
// build metadata on the input is shed.
func Bump(current, part string) (string, error) {
	ver := Parse(current)
	if ver == nil {
		return "", fmt.Errorf("invalid semver %q", current)
	}
	switch part {
	case "major":
		ver.Major++
		ver.Minor = 0
		ver.Patch = 0
	case "minor":
		ver.Minor++
		ver.Patch = 0
	case "patch":
		ver.Patch++
	default:
		return "", fmt.Errorf("invalid bump part %q", part)
	}
	ver.Prerelease = ""
	ver.Build = ""
	return ver.String(), nil
}
