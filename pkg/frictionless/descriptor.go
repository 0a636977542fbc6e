// SPDX-License-Identifier: Apache-2.0

// Package frictionless models tabular data-package descriptors per the
// frictionless data specs (https://specs.frictionlessdata.io/), and
// validates resource files against their declared schemas.
//
// The JSON field tags double as the YAML keys: descriptor documents are
// round-tripped through sigs.k8s.io/yaml, which serializes via JSON and
// therefore emits deterministic, key-sorted YAML.
package frictionless

// Constraints are the per-field constraints recorded by schema inference.
type Constraints struct {
	Unique bool     `json:"unique"`
	Enum   []string `json:"enum,omitempty"`
}

// Field is one column of a resource schema.  Description is hand-authored
// and must survive schema regeneration; everything else is derived from
// the data file.
type Field struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Example     string      `json:"example,omitempty"`
	Description string      `json:"description,omitempty"`
	Constraints Constraints `json:"constraints"`
}

// Schema is a frictionless table schema.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns the field names in declared order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field, or nil.
func (s Schema) Field(name string) *Field {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			return &s.Fields[i]
		}
	}
	return nil
}

// Descriptions returns the hand-authored field descriptions by field name,
// skipping empty ones.
func (s Schema) Descriptions() map[string]string {
	ret := make(map[string]string)
	for _, f := range s.Fields {
		if f.Description != "" {
			ret[f.Name] = f.Description
		}
	}
	return ret
}

type License struct {
	Name  string `json:"name,omitempty"`
	Path  string `json:"path,omitempty"`
	Title string `json:"title,omitempty"`
}

type Contributor struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	Path         string `json:"path,omitempty"`
	Role         string `json:"role,omitempty"`
}

type Source struct {
	Title string `json:"title,omitempty"`
	Path  string `json:"path,omitempty"`
}

// ResourceCustom carries the tool-specific resource annotations.
type ResourceCustom struct {
	RowCount int64 `json:"row_count"`
}

// Resource is a resource descriptor: the schema/metadata sidecar of one
// tabular data file.
type Resource struct {
	Name        string         `json:"name"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Keywords    []string       `json:"keywords,omitempty"`
	Path        string         `json:"path,omitempty"`
	Scheme      string         `json:"scheme,omitempty"`
	Format      string         `json:"format,omitempty"`
	Hash        string         `json:"hash,omitempty"`
	SheetOrder  int            `json:"_sheet_order,omitempty"`
	Schema      Schema         `json:"schema"`
	Custom      ResourceCustom `json:"custom"`

	// Data is only populated for the inlined-data JSON composite.
	Data []map[string]any `json:"data,omitempty"`
}

// CompositeOptions control one composite type (xlsx, sqlite, json).
type CompositeOptions struct {
	// Include lists resource slugs to include; empty means all.
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	// Modify maps resource slug → column → transform name
	// (e.g. "comma-to-array"), applied by the JSON composite.
	Modify map[string]map[string]string `json:"modify,omitempty"`
	// Render defaults to true when absent.
	Render *bool `json:"render,omitempty"`
}

// ShouldRender reports whether the composite is enabled.
func (opts CompositeOptions) ShouldRender() bool {
	return opts.Render == nil || *opts.Render
}

// DownloadOptions are package-level overrides consumed by the static-site
// projection.
type DownloadOptions struct {
	Gate       string `json:"gate,omitempty"`
	Survey     string `json:"survey,omitempty"`
	HeaderText string `json:"header_text,omitempty"`
}

// PackageCustom carries the tool-specific package annotations.
type PackageCustom struct {
	Build           string                      `json:"build,omitempty"`
	Composite       map[string]CompositeOptions `json:"composite,omitempty"`
	IsGeodata       bool                        `json:"is_geodata,omitempty"`
	Formats         map[string]bool             `json:"formats,omitempty"`
	ChangeLog       map[string]string           `json:"change_log,omitempty"`
	DatasetOrder    int                         `json:"dataset_order,omitempty"`
	Tests           []string                    `json:"tests,omitempty"`
	DownloadOptions *DownloadOptions            `json:"download_options,omitempty"`
}

// FormatEnabled looks up an output format flag, falling back to the given
// default when the manifest doesn't mention the format.
func (c PackageCustom) FormatEnabled(name string, fallback bool) bool {
	if enabled, ok := c.Formats[name]; ok {
		return enabled
	}
	return fallback
}

// Package is a data-package descriptor: the datapackage.yaml manifest, or
// (with Resources populated) the built datapackage.json document.
type Package struct {
	Name         string        `json:"name"`
	Identifier   string        `json:"identifier,omitempty"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Version      string        `json:"version"`
	Keywords     []string      `json:"keywords,omitempty"`
	Licenses     []License     `json:"licenses,omitempty"`
	Contributors []Contributor `json:"contributors,omitempty"`
	Sources      []Source      `json:"sources,omitempty"`
	Custom       PackageCustom `json:"custom"`
	Resources    []Resource    `json:"resources,omitempty"`
}

// Resource returns the named resource descriptor, or nil.
func (pkg *Package) Resource(name string) *Resource {
	for i := range pkg.Resources {
		if pkg.Resources[i].Name == name {
			return &pkg.Resources[i]
		}
	}
	return nil
}
