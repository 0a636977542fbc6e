// SPDX-License-Identifier: Apache-2.0

// Package datapkg implements versioned dataset packages: a package
// directory holds a datapackage.yaml manifest, one or more tabular
// resource files with schema sidecars, and a versions/ subtree of
// point-in-time snapshots.  The version engine diffs the working tree
// against the latest snapshot to classify changes into semantic-version
// bump rules.
package datapkg

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datawire/dlib/dexec"
	"sigs.k8s.io/yaml"

	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/semver"
	"github.com/datapkg/datapkg/pkg/settings"
)

// ManifestName is the package manifest file; a directory without one is
// not a package.
const ManifestName = "datapackage.yaml"

var ErrNotAPackage = fmt.Errorf("directory does not contain a %s manifest", ManifestName)

// Package is a dataset package rooted at a directory.
type Package struct {
	Dir      string
	Settings settings.Settings
}

// Open validates that dir is a package directory.
func Open(dir string, cfg settings.Settings) (*Package, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(abs, ManifestName)); err != nil {
		return nil, fmt.Errorf("%q: %w", dir, ErrNotAPackage)
	}
	return &Package{Dir: abs, Settings: cfg}, nil
}

// Slug returns the package name.  For a version snapshot
// (<pkg>/versions/<semver>/) the slug is the owning package's, so
// snapshots build into the same publish subtree as the working copy.
func (p *Package) Slug() string {
	if filepath.Base(filepath.Dir(p.Dir)) == "versions" {
		return filepath.Base(filepath.Dir(filepath.Dir(p.Dir)))
	}
	return filepath.Base(p.Dir)
}

// ManifestPath returns the path of the datapackage.yaml manifest.
func (p *Package) ManifestPath() string {
	return filepath.Join(p.Dir, ManifestName)
}

// Manifest reads and parses the manifest.
func (p *Package) Manifest() (*frictionless.Package, error) {
	body, err := os.ReadFile(p.ManifestPath())
	if err != nil {
		return nil, err
	}
	var doc frictionless.Package
	if err := yaml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", p.ManifestPath(), err)
	}
	return &doc, nil
}

// UpdateManifest applies mutate to the parsed manifest and writes it
// back.
func (p *Package) UpdateManifest(mutate func(*frictionless.Package)) error {
	doc, err := p.Manifest()
	if err != nil {
		return err
	}
	mutate(doc)
	body, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(p.ManifestPath(), quoteYAMLBooleanWords(body), 0o644)
}

// CurrentVersion returns the manifest version, normalized to a full
// major.minor.patch triple.
func (p *Package) CurrentVersion() (string, error) {
	doc, err := p.Manifest()
	if err != nil {
		return "", err
	}
	version := semver.NormalizeManifestVersion(doc.Version)
	if !semver.IsValid(version) {
		return "", fmt.Errorf("package %s: manifest version %q is not a semantic version", p.Slug(), doc.Version)
	}
	return version, nil
}

// Resources discovers the package's tabular data files, ordered by
// declared display order and then by name.
func (p *Package) Resources() ([]*Resource, error) {
	var resources []*Resource
	seen := make(map[string]string)
	for _, pattern := range []string{"*.csv", "*.parquet"} {
		paths, err := filepath.Glob(filepath.Join(p.Dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			res := &Resource{Path: path}
			if prev, ok := seen[res.Slug()]; ok {
				return nil, fmt.Errorf("package %s: resource %q has two data files (%s and %s)",
					p.Slug(), res.Slug(), filepath.Base(prev), filepath.Base(path))
			}
			seen[res.Slug()] = path
			resources = append(resources, res)
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		oi, oj := resources[i].SheetOrder(), resources[j].SheetOrder()
		if oi != oj {
			return oi < oj
		}
		return resources[i].Slug() < resources[j].Slug()
	})
	return resources, nil
}

// Resource returns the named resource, or nil.
func (p *Package) Resource(slug string) (*Resource, error) {
	resources, err := p.Resources()
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		if res.Slug() == slug {
			return res, nil
		}
	}
	return nil, nil
}

// IsGeodata reports whether the package's resources carry geometry.
func (p *Package) IsGeodata() bool {
	doc, err := p.Manifest()
	return err == nil && doc.Custom.IsGeodata
}

// DatasetOrder returns the package's site listing position; packages
// without one sort last.
func (p *Package) DatasetOrder() int {
	doc, err := p.Manifest()
	if err != nil || doc.Custom.DatasetOrder == 0 {
		return sheetOrderDefault
	}
	return doc.Custom.DatasetOrder
}

// URL returns the package's public dataset page URL.
func (p *Package) URL() string {
	base := strings.TrimSuffix(p.Settings.PublishURL, "/")
	return base + "/datasets/" + strings.ReplaceAll(p.Slug(), "_", "-") + "/"
}

// SurveyURL returns the feedback-survey link embedded in composite
// downloads, with the dataset prefilled.  A package can point at its own
// survey via custom.download_options.survey ("default" keeps the
// site-wide one).
func (p *Package) SurveyURL() string {
	surveyURL := p.Settings.CreditURL
	if doc, err := p.Manifest(); err == nil && doc.Custom.DownloadOptions != nil {
		if override := doc.Custom.DownloadOptions.Survey; override != "" && override != "default" {
			surveyURL = override
		}
	}
	if surveyURL == "" {
		return ""
	}
	query := url.Values{
		"dataset_slug":  []string{p.Slug()},
		"download_link": []string{p.URL()},
	}
	return surveyURL + "?" + query.Encode()
}

// Descriptor assembles the full package document: the manifest plus
// every resource's sidecar descriptor.
func (p *Package) Descriptor() (*frictionless.Package, error) {
	doc, err := p.Manifest()
	if err != nil {
		return nil, err
	}
	doc.Version, err = p.CurrentVersion()
	if err != nil {
		return nil, err
	}
	resources, err := p.Resources()
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		desc, err := res.Descriptor()
		if err != nil {
			return nil, err
		}
		doc.Resources = append(doc.Resources, *desc)
	}
	return doc, nil
}

// RebuildAllResources regenerates every resource's schema sidecar.
func (p *Package) RebuildAllResources() error {
	resources, err := p.Resources()
	if err != nil {
		return err
	}
	isGeodata := p.IsGeodata()
	for _, res := range resources {
		if err := res.RebuildSidecar(isGeodata); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the package's manifest metadata, runs any configured
// test scripts, and validates every resource.  It reports findings
// rather than failing fast so a single run surfaces everything wrong.
func (p *Package) Validate(ctx context.Context) ([]Finding, error) {
	doc, err := p.Manifest()
	if err != nil {
		return nil, err
	}
	var findings []Finding
	report := func(severity Severity, format string, args ...any) {
		findings = append(findings, Finding{
			Message:  fmt.Sprintf(format, args...),
			Severity: severity,
		})
	}

	if doc.Title == "" || doc.Description == "" {
		report(SeverityError, "Package %s is missing a title or description", p.Slug())
	}
	if len(doc.Licenses) == 0 {
		report(SeverityError, "Package %s declares no license", p.Slug())
	}
	if _, err := p.CurrentVersion(); err != nil {
		report(SeverityError, "%v", err)
	}

	findings = append(findings, p.runTests(ctx, doc.Custom.Tests)...)

	resources, err := p.Resources()
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		report(SeverityError, "Package %s has no resource files", p.Slug())
	}
	for _, res := range resources {
		findings = append(findings, res.Status())
	}
	return findings, nil
}

// TestsDir is where per-package test scripts live: a tests/ directory
// next to the dataset tree.
func (p *Package) TestsDir() string {
	return filepath.Join(filepath.Dir(p.Settings.DatasetDir), "tests")
}

// runTests executes the test scripts named in custom.tests, falling back
// to test_<slug> when none are configured.  A script that is configured
// but absent is a warning, not an error, so a package checkout without
// the test suite still validates.
func (p *Package) runTests(ctx context.Context, tests []string) []Finding {
	if len(tests) == 0 {
		fallback := "test_" + p.Slug()
		if _, err := os.Stat(filepath.Join(p.TestsDir(), fallback)); err == nil {
			tests = []string{fallback}
		}
	}
	var findings []Finding
	for _, name := range tests {
		script := filepath.Join(p.TestsDir(), name)
		if _, err := os.Stat(script); err != nil {
			findings = append(findings, Finding{
				Message:  fmt.Sprintf("Package %s: test script %s not found", p.Slug(), name),
				Severity: SeverityWarning,
			})
			continue
		}
		cmd := dexec.CommandContext(ctx, script)
		cmd.Dir = p.Dir
		if out, err := cmd.CombinedOutput(); err != nil {
			findings = append(findings, Finding{
				Message:  fmt.Sprintf("Package %s: test %s failed: %s", p.Slug(), name, strings.TrimSpace(string(out))),
				Severity: SeverityError,
			})
		} else {
			findings = append(findings, Finding{
				Message:  fmt.Sprintf("Package %s: test %s passed", p.Slug(), name),
				Severity: SeverityOK,
			})
		}
	}
	return findings
}

// BuildDir returns the publish-tree directory for one version of the
// package.
func (p *Package) BuildDir(version string) string {
	return filepath.Join(p.Settings.PublishDir, "data", p.Slug(), version)
}

// SnapshotDir returns the source-tree snapshot directory for a version.
func (p *Package) SnapshotDir(version string) string {
	return filepath.Join(p.Dir, "versions", version)
}

// PreviousVersions lists the snapshotted versions, oldest first.
func (p *Package) PreviousVersions() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(p.Dir, "versions"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && semver.IsValid(entry.Name()) {
			versions = append(versions, entry.Name())
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Parse(versions[i]).Compare(*semver.Parse(versions[j])) < 0
	})
	return versions, nil
}
