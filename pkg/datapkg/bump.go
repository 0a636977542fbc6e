// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/datawire/dlib/dlog"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/fsutil"
	"github.com/datapkg/datapkg/pkg/jekyll"
	"github.com/datapkg/datapkg/pkg/semver"
)

// Rule names the semantic weight of a change, or a bump mode.
type Rule string

const (
	RuleMajor   Rule = "MAJOR"
	RuleMinor   Rule = "MINOR"
	RulePatch   Rule = "PATCH"
	RuleInitial Rule = "INITIAL"

	// RuleAuto asks the inference engine to classify the change.
	RuleAuto Rule = "AUTO"
	// RuleStatic republishes without a version change; only permitted
	// when the inference engine still detects a difference.
	RuleStatic Rule = "STATIC"
)

// ParseRule recognizes a bump-rule name, case-insensitively.
func ParseRule(s string) (Rule, bool) {
	rule := Rule(strings.ToUpper(s))
	switch rule {
	case RuleMajor, RuleMinor, RulePatch, RuleInitial, RuleAuto, RuleStatic:
		return rule, true
	}
	return "", false
}

// Classification is the inference engine's verdict: a bump rule plus a
// human-readable reason suitable for the change log.
type Classification struct {
	Rule   Rule
	Reason string
}

// ErrNotClassifiable marks an inference-engine exhaustion: the two
// package states differ, but no rule in the decision list recognizes the
// difference.  Guessing a severity here would corrupt the semantic
// meaning of the version number, so the caller must surface it loudly.
var ErrNotClassifiable = fmt.Errorf("change not captured by any bump rule")

// DeriveBumpRule diffs the working tree's package document against the
// snapshot of the current version and classifies the change.  The rules
// form a decision list in strict priority order (first match wins):
// name/structure changes are MAJOR, additions and row-count changes are
// MINOR, content and descriptive changes are PATCH.  While the major
// version is still 0, MAJOR verdicts are downgraded to MINOR.
//
// A nil Classification with a nil error means the two states are
// identical and no bump is warranted.
func (p *Package) DeriveBumpRule() (*Classification, error) {
	major, minor, patch := RuleMajor, RuleMinor, RulePatch

	version, err := p.CurrentVersion()
	if err != nil {
		return nil, err
	}
	// Pre-1.0 instability convention: breaking changes only warrant a
	// minor bump.  Substituted once, up front, so every rule below is
	// affected uniformly.
	if parsed := semver.Parse(version); parsed != nil && parsed.Major < 1 {
		major = RuleMinor
	}

	snapshotDir := p.SnapshotDir(version)
	if _, err := os.Stat(snapshotDir); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if version == "0.1.0" {
			return &Classification{RuleInitial, "Don't need to increment, first version"}, nil
		}
		return nil, fmt.Errorf("package %s: no %s snapshot in the versions directory; can't work out the change, specify the new version manually",
			p.Slug(), version)
	}
	snapshot, err := Open(snapshotDir, p.Settings)
	if err != nil {
		return nil, err
	}
	previous, err := snapshot.Descriptor()
	if err != nil {
		return nil, err
	}
	current, err := p.Descriptor()
	if err != nil {
		return nil, err
	}
	// Package-level custom options are tooling state, not dataset
	// content; they never drive a bump.  Resource-level custom stays:
	// row_count is a classification input.
	previous.Custom = frictionless.PackageCustom{}
	current.Custom = frictionless.PackageCustom{}
	previous.Version = ""
	current.Version = ""

	// Rule order follows
	// https://specs.frictionlessdata.io/patterns/#data-package-version
	// with one exception: fields appended at the end of a resource are
	// a new feature, so a minor change.

	if previous.Name != current.Name {
		return &Classification{major, fmt.Sprintf("Datapackage name changed from %s to %s",
			previous.Name, current.Name)}, nil
	}
	if previous.Identifier != current.Identifier {
		return &Classification{major, fmt.Sprintf("Datapackage identifier changed from %s to %s",
			previous.Identifier, current.Identifier)}, nil
	}

	for i := range previous.Resources {
		prevRes := &previous.Resources[i]
		curRes := current.Resource(prevRes.Name)
		if curRes == nil {
			return &Classification{major, fmt.Sprintf("Existing resource %s renamed or deleted",
				prevRes.Title)}, nil
		}
		if prevRes.SheetOrder != curRes.SheetOrder {
			return &Classification{major, fmt.Sprintf("Sheet order changed for resource %s",
				prevRes.Title)}, nil
		}
		if cls := classifyFieldChange(major, prevRes, curRes); cls != nil {
			return cls, nil
		}
	}

	if !reflect.DeepEqual(previous.Licenses, current.Licenses) {
		return &Classification{major, fmt.Sprintf("License changed from %v to %v",
			previous.Licenses, current.Licenses)}, nil
	}

	if len(previous.Resources) < len(current.Resources) {
		var added []string
		for _, res := range current.Resources {
			if previous.Resource(res.Name) == nil {
				added = append(added, res.Name)
			}
		}
		return &Classification{minor, fmt.Sprintf("New resource(s) added: %s",
			strings.Join(added, ","))}, nil
	}

	if changed := resourcesWhere(previous, current, func(a, b *frictionless.Resource) bool {
		return a.Custom.RowCount != b.Custom.RowCount
	}); len(changed) > 0 {
		return &Classification{minor, fmt.Sprintf("Change in data for resource(s): %s",
			strings.Join(changed, ","))}, nil
	}

	if changed := resourcesWhere(previous, current, func(a, b *frictionless.Resource) bool {
		return a.Hash != b.Hash
	}); len(changed) > 0 {
		return &Classification{patch, fmt.Sprintf("Minor change in data for resource(s): %s",
			strings.Join(changed, ","))}, nil
	}

	if cls := classifyDescriptiveChange(patch, previous, current); cls != nil {
		return cls, nil
	}

	if reflect.DeepEqual(previous, current) {
		return nil, nil
	}
	return nil, fmt.Errorf("%w:\n%s", ErrNotClassifiable, structuralDiff(previous, current))
}

// classifyFieldChange applies the field-level rules of the decision list
// to one resource pair: removals, non-appending additions, reorders, and
// type changes are breaking; appending at the end is a new feature.
func classifyFieldChange(major Rule, prevRes, curRes *frictionless.Resource) *Classification {
	prevNames := prevRes.Schema.FieldNames()
	curNames := curRes.Schema.FieldNames()

	if !sameStringSet(prevNames, curNames) {
		if len(prevNames) > len(curNames) {
			return &Classification{major, fmt.Sprintf("Existing resource field(s) removed: %s",
				strings.Join(setDifference(prevNames, curNames), ","))}
		}
		if len(prevNames) < len(curNames) {
			added := setDifference(curNames, prevNames)
			if reflect.DeepEqual(curNames[:len(prevNames)], prevNames) {
				return &Classification{RuleMinor, fmt.Sprintf("New field(s) added to end of resource: %s",
					strings.Join(added, ","))}
			}
			return &Classification{major, fmt.Sprintf("New field(s) added to resource: %s",
				strings.Join(added, ","))}
		}
		// Same count, different names: a rename is a removal plus an
		// addition, and removing an existing field is breaking.
		return &Classification{major, fmt.Sprintf("Existing resource field(s) removed: %s; field(s) added: %s",
			strings.Join(setDifference(prevNames, curNames), ","),
			strings.Join(setDifference(curNames, prevNames), ","))}
	} else if !reflect.DeepEqual(prevNames, curNames) {
		return &Classification{major, fmt.Sprintf("Field order changed for resource %s",
			prevRes.Title)}
	}

	var changedTypes []string
	for _, curField := range curRes.Schema.Fields {
		prevField := prevRes.Schema.Field(curField.Name)
		if prevField != nil && prevField.Type != curField.Type {
			changedTypes = append(changedTypes, curField.Name)
		}
	}
	if len(changedTypes) > 0 {
		return &Classification{major, fmt.Sprintf("Existing resource field(s) type changed: %s",
			strings.Join(changedTypes, ","))}
	}
	return nil
}

// classifyDescriptiveChange applies the PATCH-level descriptive rules:
// package title/description/keywords/sources/contributors, resource
// title/description, and field description/example.
func classifyDescriptiveChange(patch Rule, previous, current *frictionless.Package) *Classification {
	packageLevel := []struct {
		name       string
		prev, curr any
	}{
		{"title", previous.Title, current.Title},
		{"description", previous.Description, current.Description},
		{"keywords", previous.Keywords, current.Keywords},
		{"sources", previous.Sources, current.Sources},
		{"contributors", previous.Contributors, current.Contributors},
	}
	for _, v := range packageLevel {
		if !reflect.DeepEqual(v.prev, v.curr) {
			return &Classification{patch, fmt.Sprintf("%s changed from '%v' to '%v'",
				v.name, v.prev, v.curr)}
		}
	}
	for i := range previous.Resources {
		prevRes := &previous.Resources[i]
		curRes := current.Resource(prevRes.Name)
		resourceLevel := []struct {
			name       string
			prev, curr string
		}{
			{"title", prevRes.Title, curRes.Title},
			{"description", prevRes.Description, curRes.Description},
		}
		for _, v := range resourceLevel {
			if v.prev != v.curr {
				return &Classification{patch, fmt.Sprintf("%s: %s changed from %s to %s",
					curRes.Name, v.name, v.prev, v.curr)}
			}
		}
		if !reflect.DeepEqual(prevRes.Keywords, curRes.Keywords) {
			return &Classification{patch, fmt.Sprintf("%s: keywords changed from %v to %v",
				curRes.Name, prevRes.Keywords, curRes.Keywords)}
		}
		for _, prevField := range prevRes.Schema.Fields {
			curField := curRes.Schema.Field(prevField.Name)
			if curField == nil {
				continue
			}
			if prevField.Description != curField.Description {
				return &Classification{patch, fmt.Sprintf("%s: description changed from %s to %s",
					curRes.Name, prevField.Description, curField.Description)}
			}
			if prevField.Example != curField.Example {
				return &Classification{patch, fmt.Sprintf("%s: example changed from %s to %s",
					curRes.Name, prevField.Example, curField.Example)}
			}
		}
	}
	return nil
}

func resourcesWhere(previous, current *frictionless.Package, differ func(a, b *frictionless.Resource) bool) []string {
	var names []string
	for i := range previous.Resources {
		prevRes := &previous.Resources[i]
		if curRes := current.Resource(prevRes.Name); curRes != nil && differ(prevRes, curRes) {
			names = append(names, prevRes.Name)
		}
	}
	return names
}

func sameStringSet(a, b []string) bool {
	return len(setDifference(a, b)) == 0 && len(setDifference(b, a)) == 0
}

// setDifference returns the members of a that are not in b, in a's order.
func setDifference(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, s := range b {
		inB[s] = true
	}
	var diff []string
	for _, s := range a {
		if !inB[s] {
			diff = append(diff, s)
		}
	}
	return diff
}

var diffDumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// structuralDiff renders a unified diff of the two package documents, for
// the inference-exhaustion error path.
func structuralDiff(previous, current *frictionless.Package) string {
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(diffDumper.Sdump(previous)),
		B:        difflib.SplitLines(diffDumper.Sdump(current)),
		FromFile: "previous",
		ToFile:   "current",
		Context:  3,
	})
	return diff
}

// BumpOptions adjust BumpOnRule and BumpTo.
type BumpOptions struct {
	// DryRun reports what would happen without writing anything.
	DryRun bool
	// Publish runs the full build pipeline after the bump.
	Publish bool
	// AutoBan lists inferred rules that abort instead of bumping, e.g.
	// to keep unreviewed MAJOR bumps out of automation.
	AutoBan []Rule
	// Prerelease appends a pre-release tag to the new version.
	Prerelease string
}

// BumpOnRule advances the package version according to rule.  Explicit
// rules use the caller's message; AUTO and STATIC consult the inference
// engine, falling back to its reason when no message is given.
func (p *Package) BumpOnRule(ctx context.Context, rule Rule, message string, opts BumpOptions) error {
	if _, ok := ParseRule(string(rule)); !ok {
		return fmt.Errorf("%s is not a valid bump rule", rule)
	}
	current, err := p.CurrentVersion()
	if err != nil {
		return err
	}
	forceStatic := rule == RuleStatic
	if rule == RuleAuto || rule == RuleStatic {
		cls, err := p.DeriveBumpRule()
		if err != nil {
			return err
		}
		if cls == nil {
			if forceStatic {
				return fmt.Errorf("package %s: no changes detected; static republication needs a detectable change", p.Slug())
			}
			cliutil.Alert(cliutil.Yellow, "No changes detected, not bumping")
			return nil
		}
		for _, banned := range opts.AutoBan {
			if cls.Rule == banned {
				return fmt.Errorf("the detected change (%s) is a %s change, which is banned by the auto-ban rule",
					cls.Reason, cls.Rule)
			}
		}
		if message == "" {
			message = cls.Reason
		}
		rule = cls.Rule
	}

	if forceStatic {
		cliutil.Alert(cliutil.Blue, "Changes detected, but static rule means keeping the current version")
		findings, err := p.Validate(ctx)
		if err != nil {
			return err
		}
		if HasErrors(findings) {
			return fmt.Errorf("package %s is not valid, cannot republish", p.Slug())
		}
		if opts.DryRun {
			cliutil.Alert(cliutil.Yellow, "Dry run, not republishing")
			return nil
		}
		if opts.Publish {
			cliutil.Alert(cliutil.Blue, "Republishing at %s because the static rule was used", current)
			return p.Publish(ctx)
		}
		return nil
	}

	newVersion := current
	if rule != RuleInitial {
		if newVersion, err = semver.Bump(current, strings.ToLower(string(rule))); err != nil {
			return err
		}
	}
	return p.BumpTo(ctx, newVersion, message, opts)
}

var prereleaseRE = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)

// BumpTo sets the package version to newVersion: it validates the
// package, appends message to the change log, rewrites the manifest, and
// snapshots the working tree into versions/<newVersion>/.  The target is
// accepted only if it is strictly higher than the current version,
// finalizes a current pre-release, or is exactly 0.1.0.  Nothing is
// written unless every precondition holds.
func (p *Package) BumpTo(ctx context.Context, newVersion, message string, opts BumpOptions) error {
	current, err := p.CurrentVersion()
	if err != nil {
		return err
	}
	currentIsPrerelease := strings.Contains(current, "-")
	base := strings.SplitN(current, "-", 2)[0]

	if opts.Prerelease != "" {
		if !prereleaseRE.MatchString(opts.Prerelease) {
			return fmt.Errorf("prerelease tag must be ASCII alphanumerics and hyphens")
		}
		newVersion += "-" + opts.Prerelease
	}
	if !semver.IsValid(newVersion) {
		return fmt.Errorf("%s is not a valid semantic version", newVersion)
	}
	acceptable := semver.IsHigher(base, newVersion) ||
		newVersion == "0.1.0" ||
		(currentIsPrerelease && base == newVersion)
	if !acceptable {
		return fmt.Errorf("%s is not higher than %s", newVersion, base)
	}

	findings, err := p.Validate(ctx)
	if err != nil {
		return err
	}
	for _, finding := range findings {
		if finding.Severity != SeverityOK {
			cliutil.Alert(finding.Color(), "%s", finding.Message)
		}
	}
	if HasErrors(findings) {
		return fmt.Errorf("package %s is not valid, cannot update version", p.Slug())
	}

	if opts.DryRun {
		cliutil.Alert(cliutil.Yellow, "Dry run, not updating")
		cliutil.Alert(cliutil.Blue, "Would update to version %s because of: %s", newVersion, message)
		return nil
	}

	err = p.UpdateManifest(func(doc *frictionless.Package) {
		if doc.Custom.ChangeLog == nil {
			doc.Custom.ChangeLog = make(map[string]string)
		}
		doc.Custom.ChangeLog[newVersion] = message
		doc.Version = newVersion
	})
	if err != nil {
		return err
	}
	if err := p.storeSnapshot(newVersion); err != nil {
		return err
	}
	cliutil.Alert(cliutil.Green, "%s version bumped to %s", p.Slug(), newVersion)
	dlog.Infof(ctx, "bumped %s to %s: %s", p.Slug(), newVersion, message)

	if opts.Publish {
		return p.Publish(ctx)
	}
	return nil
}

// storeSnapshot copies the package's top-level files into the snapshot
// directory for version.  Subdirectories (versions/ itself included) are
// not copied.
func (p *Package) storeSnapshot(version string) error {
	return fsutil.CopyDirFiles(p.Dir, p.SnapshotDir(version))
}

// Publish runs the full publication pipeline: schema rebuild, artifact
// build, backfill of unbuilt historical versions, and the static-site
// projection.
func (p *Package) Publish(ctx context.Context) error {
	if err := p.RebuildAllResources(); err != nil {
		return err
	}
	if err := p.BuildPackage(ctx); err != nil {
		return err
	}
	if err := p.BuildMissingPreviousVersions(ctx); err != nil {
		return err
	}
	return jekyll.Render(p.Settings)
}
