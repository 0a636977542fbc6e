// SPDX-License-Identifier: Apache-2.0

// Package jekyll projects built package trees into the static site
// sources: one markdown-with-frontmatter document per package version
// under _datasets/, and one per download entry under _downloads/.  It is
// a pure read-only consumer of the built artifact tree.
package jekyll

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	yamlv2 "gopkg.in/yaml.v2"
	"sigs.k8s.io/yaml"

	"github.com/datapkg/datapkg/pkg/semver"
	"github.com/datapkg/datapkg/pkg/settings"
)

// builtPackage is one datapackage.json found in the publish tree.
type builtPackage struct {
	Name     string
	Version  string
	Document map[string]any
}

// Render regenerates the _datasets/ and _downloads/ site sources from
// every built package version under <publish_dir>/data/.
func Render(cfg settings.Settings) error {
	built, err := collectBuilt(cfg)
	if err != nil {
		return err
	}

	latest := latestPerPackage(built)

	var datasets []document
	var downloads []document
	for _, pkg := range built {
		name := pkg.Name
		if latest[pkg.Name] != pkg.Version {
			name = fmt.Sprintf("%s-%s", pkg.Name, pkg.Version)
		}
		datasets = append(datasets, document{name: name, frontmatter: pkg.Document})
		if latest[pkg.Name] == pkg.Version {
			downloads = append(downloads, downloadEntries(pkg)...)
		}
	}

	if err := renderDir(datasets, filepath.Join(cfg.PublishDir, "_datasets")); err != nil {
		return err
	}
	return renderDirOrdered(downloads, filepath.Join(cfg.PublishDir, "_downloads"))
}

func collectBuilt(cfg settings.Settings) ([]builtPackage, error) {
	manifests, err := filepath.Glob(filepath.Join(cfg.PublishDir, "data", "*", "*", "datapackage.json"))
	if err != nil {
		return nil, err
	}
	var built []builtPackage
	for _, manifest := range manifests {
		body, err := os.ReadFile(manifest)
		if err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", manifest, err)
		}
		name, _ := doc["name"].(string)
		version := filepath.Base(filepath.Dir(manifest))
		if name == "" || !semver.IsValid(version) {
			continue
		}
		built = append(built, builtPackage{Name: name, Version: version, Document: doc})
	}
	sort.Slice(built, func(i, j int) bool {
		if built[i].Name != built[j].Name {
			return built[i].Name < built[j].Name
		}
		return semver.Parse(built[i].Version).Compare(*semver.Parse(built[j].Version)) < 0
	})
	return built, nil
}

func latestPerPackage(built []builtPackage) map[string]string {
	versions := make(map[string][]string)
	for _, pkg := range built {
		versions[pkg.Name] = append(versions[pkg.Name], pkg.Version)
	}
	latest := make(map[string]string, len(versions))
	for name, vs := range versions {
		latest[name] = semver.LatestAliases(vs)["latest"]
	}
	return latest
}

// downloadID builds the site-wide download key; the site's URL scheme
// uses hyphens throughout.
func downloadID(parts ...string) string {
	return strings.ReplaceAll(strings.Join(parts, "_"), "_", "-")
}

// downloadEntries builds the _downloads/ documents for one package: one
// per resource file plus the xlsx composite.  Frontmatter key order is
// fixed, so the entries are rendered from ordered maps.
func downloadEntries(pkg builtPackage) []document {
	overrides := downloadOverrides(pkg.Document)

	entry := func(name, title, filename string) document {
		frontmatter := yamlv2.MapSlice{
			{Key: "name", Value: name},
			{Key: "package", Value: pkg.Name},
			{Key: "title", Value: title},
			{Key: "filename", Value: filename},
			{Key: "file", Value: fmt.Sprintf("/data/%s/%s/%s", pkg.Name, pkg.Version, filename)},
		}
		frontmatter = append(frontmatter, overrides...)
		return document{name: name, frontmatter: frontmatter}
	}

	var entries []document
	resources, _ := pkg.Document["resources"].([]any)
	for _, r := range resources {
		resource, _ := r.(map[string]any)
		if resource == nil {
			continue
		}
		resName, _ := resource["name"].(string)
		resPath, _ := resource["path"].(string)
		entries = append(entries, entry(downloadID(pkg.Name, resName), resName, resPath))
	}
	entries = append(entries, entry(downloadID(pkg.Name, "xlsx"), pkg.Name+"_xlsx", pkg.Name+".xlsx"))
	return entries
}

// downloadOverrides extracts the package-level download-option
// overrides; "default" and absent both mean "no override".
func downloadOverrides(doc map[string]any) yamlv2.MapSlice {
	custom, _ := doc["custom"].(map[string]any)
	options, _ := custom["download_options"].(map[string]any)
	var overrides yamlv2.MapSlice
	add := func(src, dst string) {
		if value, ok := options[src].(string); ok && value != "" && value != "default" {
			overrides = append(overrides, yamlv2.MapItem{Key: dst, Value: value})
		}
	}
	add("gate", "download_gate_type")
	add("survey", "download_survey")
	add("header_text", "download_form_header")
	return overrides
}

// document is one markdown-with-frontmatter output file.
type document struct {
	name        string
	frontmatter any
}

// renderDir writes the documents with JSON-shaped frontmatter, replacing
// every markdown file already in the directory.
func renderDir(docs []document, outputDir string) error {
	if err := clearMarkdown(outputDir); err != nil {
		return err
	}
	for _, doc := range docs {
		body, err := yaml.Marshal(doc.frontmatter)
		if err != nil {
			return err
		}
		if err := writeMarkdown(outputDir, doc.name, body); err != nil {
			return err
		}
	}
	return nil
}

// renderDirOrdered is renderDir for ordered-map frontmatter, which
// sigs.k8s.io/yaml cannot serialize.
func renderDirOrdered(docs []document, outputDir string) error {
	if err := clearMarkdown(outputDir); err != nil {
		return err
	}
	for _, doc := range docs {
		body, err := yamlv2.Marshal(doc.frontmatter)
		if err != nil {
			return err
		}
		if err := writeMarkdown(outputDir, doc.name, body); err != nil {
			return err
		}
	}
	return nil
}

func clearMarkdown(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}
	stale, err := filepath.Glob(filepath.Join(outputDir, "*.md"))
	if err != nil {
		return err
	}
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return err
		}
	}
	return nil
}

func writeMarkdown(outputDir, name string, frontmatter []byte) error {
	var buf strings.Builder
	buf.WriteString("---\n")
	buf.Write(frontmatter)
	buf.WriteString("---\n")
	return os.WriteFile(filepath.Join(outputDir, name+".md"), []byte(buf.String()), 0o644)
}
