// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/tableschema"
	"github.com/datapkg/datapkg/pkg/tabular"
)

// sheetOrderDefault sorts resources without an explicit _sheet_order after
// every resource that has one.
const sheetOrderDefault = 999

// GeometryColumn is the well-known geometry column name of geodata
// resources.  Its cells are large blobs, so schema inference blanks its
// example and CSV renditions drop it entirely.
const GeometryColumn = "geometry"

// Resource is one tabular data file together with its schema/metadata
// sidecar document (<slug>.resource.yaml in the same directory).
type Resource struct {
	// Path is the absolute path of the backing data file.
	Path string
}

// Slug returns the resource name: the data file's base name without
// extension.
func (r *Resource) Slug() string {
	base := filepath.Base(r.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// SidecarPath returns the path of the schema/metadata sidecar document.
func (r *Resource) SidecarPath() string {
	return filepath.Join(filepath.Dir(r.Path), r.Slug()+".resource.yaml")
}

// HasSidecar reports whether the sidecar document exists.
func (r *Resource) HasSidecar() bool {
	_, err := os.Stat(r.SidecarPath())
	return err == nil
}

// Descriptor reads and parses the sidecar document.
func (r *Resource) Descriptor() (*frictionless.Resource, error) {
	body, err := os.ReadFile(r.SidecarPath())
	if err != nil {
		return nil, err
	}
	var desc frictionless.Resource
	if err := yaml.UnmarshalStrict(body, &desc); err != nil {
		return nil, fmt.Errorf("resource %q: %w", r.Slug(), err)
	}
	return &desc, nil
}

// SheetOrder returns the resource's declared display order, or the
// trailing default when the sidecar is absent or silent.
func (r *Resource) SheetOrder() int {
	desc, err := r.Descriptor()
	if err != nil || desc.SheetOrder == 0 {
		return sheetOrderDefault
	}
	return desc.SheetOrder
}

// Status validates the resource and returns a single finding: sidecar
// presence, title/description presence, and conformance of the data file
// to the declared schema.
func (r *Resource) Status() Finding {
	if !r.HasSidecar() {
		return Finding{
			Message:  fmt.Sprintf("Resource %s has no schema document; run update-schema", r.Slug()),
			Severity: SeverityError,
		}
	}
	desc, err := r.Descriptor()
	if err != nil {
		return Finding{
			Message:  fmt.Sprintf("Resource %s has an unreadable schema document: %v", r.Slug(), err),
			Severity: SeverityError,
		}
	}
	if msg := describeMissingDescriptions(desc); msg != "" {
		return Finding{Message: msg, Severity: SeverityError}
	}
	report := frictionless.ValidateResource(filepath.Dir(r.Path), *desc)
	if !report.Valid() {
		return Finding{
			Message:  fmt.Sprintf("Resource %s does not conform to its schema: %s", r.Slug(), firstError(report)),
			Severity: SeverityError,
		}
	}
	return Finding{
		Message:  fmt.Sprintf("Resource %s is valid", r.Slug()),
		Severity: SeverityOK,
	}
}

func describeMissingDescriptions(desc *frictionless.Resource) string {
	if desc.Title == "" || desc.Description == "" {
		return fmt.Sprintf("Resource %s is missing a title or description", desc.Name)
	}
	var missing []string
	for _, field := range desc.Schema.Fields {
		if field.Description == "" {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Sprintf("Resource %s has fields without descriptions: %s",
			desc.Name, strings.Join(missing, ", "))
	}
	return ""
}

func firstError(report frictionless.Report) string {
	for _, task := range report.Tasks {
		if len(task.Errors) > 0 {
			return task.Errors[0]
		}
	}
	return "unknown error"
}

// RebuildSidecar re-runs schema inference against the data file and
// rewrites the sidecar document.  Hand-authored titles, descriptions, and
// display order survive the rebuild; row_count and the content hash are
// recomputed.  For geodata the geometry column's example is blanked so
// the sidecar doesn't accumulate geometry blobs.
//
// The output is deterministic: rebuilding twice with an unchanged data
// file produces byte-identical sidecars.
func (r *Resource) RebuildSidecar(isGeodata bool) error {
	var existing *frictionless.Resource
	if r.HasSidecar() {
		var err error
		if existing, err = r.Descriptor(); err != nil {
			return err
		}
	}
	var existingSchema *frictionless.Schema
	if existing != nil {
		existingSchema = &existing.Schema
	}

	schema, err := tableschema.Infer(r.Path, existingSchema, tableschema.Options{})
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Slug(), err)
	}
	if isGeodata {
		if geom := schema.Field(GeometryColumn); geom != nil {
			geom.Example = ""
		}
	}

	rowCount, err := tabular.RowCount(r.Path)
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Slug(), err)
	}
	hash, err := tabular.FileHash(r.Path)
	if err != nil {
		return fmt.Errorf("resource %q: %w", r.Slug(), err)
	}

	desc := frictionless.Resource{
		Name:   r.Slug(),
		Path:   filepath.Base(r.Path),
		Scheme: "file",
		Format: strings.TrimPrefix(filepath.Ext(r.Path), "."),
		Hash:   hash,
		Schema: *schema,
		Custom: frictionless.ResourceCustom{RowCount: rowCount},
	}
	if existing != nil {
		desc.Title = existing.Title
		desc.Description = existing.Description
		desc.Keywords = existing.Keywords
		desc.SheetOrder = existing.SheetOrder
	}

	body, err := yaml.Marshal(&desc)
	if err != nil {
		return err
	}
	return os.WriteFile(r.SidecarPath(), quoteYAMLBooleanWords(body), 0o644)
}

// quoteYAMLBooleanWords quotes bare Yes/No scalar values.  YAML 1.1
// readers coerce them to booleans, so sidecars persist them quoted; this
// matches the files already in existing package trees.
func quoteYAMLBooleanWords(body []byte) []byte {
	lines := strings.Split(string(body), "\n")
	for i, line := range lines {
		for _, word := range []string{"Yes", "No"} {
			if strings.HasSuffix(line, ": "+word) {
				lines[i] = strings.TrimSuffix(line, word) + `"` + word + `"`
			}
			if strings.HasSuffix(line, "- "+word) {
				lines[i] = strings.TrimSuffix(line, word) + `"` + word + `"`
			}
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// MetadataRows renders the resource's schema as display rows (header
// included), as shown on dataset pages and embedded in composite
// downloads.
func (r *Resource) MetadataRows() ([][]string, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	rows := [][]string{{"column", "description", "type", "example", "unique values", "options"}}
	for _, field := range desc.Schema.Fields {
		unique := "No"
		if field.Constraints.Unique {
			unique = "Yes"
		}
		rows = append(rows, []string{
			field.Name,
			field.Description,
			field.Type,
			field.Example,
			unique,
			strings.Join(field.Constraints.Enum, ", "),
		})
	}
	return rows, nil
}

// InlineData loads the data file as JSON-ready row maps, with cells
// converted to the schema's declared types.  Null cells become empty
// strings, matching the flat-file renditions.
func (r *Resource) InlineData() ([]map[string]any, error) {
	desc, err := r.Descriptor()
	if err != nil {
		return nil, err
	}
	tbl, err := tabular.ReadTable(r.Path)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, tbl.NumRows())
	for i := range rows {
		rows[i] = make(map[string]any, len(tbl.Columns))
	}
	for _, col := range tbl.Columns {
		var typeTag string
		if field := desc.Schema.Field(col.Name); field != nil {
			typeTag = field.Type
		}
		for i, raw := range col.Values {
			rows[i][col.Name] = typedCell(raw, typeTag)
		}
	}
	return rows, nil
}

func typedCell(raw, typeTag string) any {
	if raw == "" {
		return ""
	}
	switch typeTag {
	case "integer":
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return n
		}
	case "number":
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return raw
}
