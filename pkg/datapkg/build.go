// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawire/dlib/dlog"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/fsutil"
	"github.com/datapkg/datapkg/pkg/tabular"
)

// BuildPackage builds the publish-tree artifacts for the package's
// current version: datapackage.json, every enabled flat-file rendition
// of each resource, and the composite bundles.  The sequence is strict;
// any step failing aborts the rest.
func (p *Package) BuildPackage(ctx context.Context) error {
	version, err := p.CurrentVersion()
	if err != nil {
		return err
	}
	buildDir := p.BuildDir(version)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return err
	}
	cliutil.Alert(cliutil.Red, "Building package: %s %s", p.Slug(), version)
	dlog.Infof(ctx, "building %s %s into %s", p.Slug(), version, buildDir)

	steps := []struct {
		name string
		run  func(context.Context, string) error
	}{
		{"Building datapackage.json", p.buildJSON},
		{"Copying resources", p.copyResources},
		{"Checking package validity", p.checkBuildIntegrity},
		{"Building composite files", p.buildComposites},
	}
	for _, step := range steps {
		cliutil.Alertf(cliutil.Blue, "%s ", step.name)
		if err := step.run(ctx, buildDir); err != nil {
			cliutil.Alert(cliutil.Red, "failed")
			return err
		}
		cliutil.Alert(cliutil.Green, "done")
	}
	return nil
}

// BuildMissingPreviousVersions builds any snapshotted version that has
// no built artifact tree yet, so historical versions stay publishable
// after tooling changes.
func (p *Package) BuildMissingPreviousVersions(ctx context.Context) error {
	versions, err := p.PreviousVersions()
	if err != nil {
		return err
	}
	for _, version := range versions {
		if fsutil.FileExists(filepath.Join(p.BuildDir(version), "datapackage.json")) {
			continue
		}
		cliutil.Alert(cliutil.Red, "Building missing %s version %s", p.Slug(), version)
		snapshot, err := Open(p.SnapshotDir(version), p.Settings)
		if err != nil {
			return err
		}
		if err := snapshot.BuildPackage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// buildJSON serializes the full package document, resource schemas
// included, as the built datapackage.json.
func (p *Package) buildJSON(ctx context.Context, buildDir string) error {
	doc, err := p.Descriptor()
	if err != nil {
		return err
	}
	doc.Custom.DatasetOrder = p.DatasetOrder()
	body, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(buildDir, "datapackage.json"), body, 0o644)
}

// copyResources writes each resource into every enabled output format.
// CSV and Parquet renditions default on; GeoJSON and GeoPackage default
// off and are only valid from a Parquet-backed geodata source.
func (p *Package) copyResources(ctx context.Context, buildDir string) error {
	doc, err := p.Manifest()
	if err != nil {
		return err
	}
	wantCSV := doc.Custom.FormatEnabled("csv", true)
	wantParquet := doc.Custom.FormatEnabled("parquet", true)
	wantGeoJSON := doc.Custom.FormatEnabled("geojson", false)
	wantGeoPackage := doc.Custom.FormatEnabled("gpkg", false)

	var excludeColumns []string
	if doc.Custom.IsGeodata {
		excludeColumns = []string{GeometryColumn}
	}

	resources, err := p.Resources()
	if err != nil {
		return err
	}
	for _, res := range resources {
		base := filepath.Base(res.Path)
		stem := res.Slug()
		switch filepath.Ext(res.Path) {
		case ".csv":
			if wantGeoJSON || wantGeoPackage {
				return fmt.Errorf("writing geojson/geopackage from a csv source is not supported; use parquet internally")
			}
			if wantCSV {
				if err := fsutil.CopyFile(res.Path, filepath.Join(buildDir, base)); err != nil {
					return err
				}
			}
			if wantParquet {
				fields, err := resourceFieldTypes(res)
				if err != nil {
					return err
				}
				dst := filepath.Join(buildDir, stem+".parquet")
				if err := tabular.Convert(res.Path, dst, tabular.ConvertOptions{Fields: fields}); err != nil {
					return err
				}
			}
		case ".parquet":
			if wantParquet {
				if err := fsutil.CopyFile(res.Path, filepath.Join(buildDir, base)); err != nil {
					return err
				}
			}
			if wantCSV {
				dst := filepath.Join(buildDir, stem+".csv")
				opts := tabular.ConvertOptions{ExcludeColumns: excludeColumns}
				if err := tabular.Convert(res.Path, dst, opts); err != nil {
					return err
				}
			}
			if wantGeoJSON {
				if err := buildGeoJSON(res, filepath.Join(buildDir, stem+".geojson")); err != nil {
					return err
				}
			}
			if wantGeoPackage {
				return fmt.Errorf("geopackage export is not supported")
			}
		default:
			return fmt.Errorf("resource %q: %w", res.Slug(), tabular.ErrUnsupportedType)
		}
	}
	return nil
}

func resourceFieldTypes(res *Resource) ([]tabular.FieldType, error) {
	desc, err := res.Descriptor()
	if err != nil {
		return nil, err
	}
	fields := make([]tabular.FieldType, len(desc.Schema.Fields))
	for i, field := range desc.Schema.Fields {
		fields[i] = tabular.FieldType{Name: field.Name, Type: field.Type}
	}
	return fields, nil
}

// buildGeoJSON writes the resource as a GeoJSON FeatureCollection.  The
// geometry column must hold GeoJSON geometry objects; the remaining
// columns become feature properties.
func buildGeoJSON(res *Resource, dst string) error {
	rows, err := res.InlineData()
	if err != nil {
		return err
	}
	type feature struct {
		Type       string          `json:"type"`
		Properties map[string]any  `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	collection := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection"}
	for _, row := range rows {
		geometry, ok := row[GeometryColumn].(string)
		if !ok || !json.Valid([]byte(geometry)) {
			return fmt.Errorf("resource %q: geometry column does not hold GeoJSON geometries", res.Slug())
		}
		delete(row, GeometryColumn)
		collection.Features = append(collection.Features, feature{
			Type:       "Feature",
			Properties: row,
			Geometry:   json.RawMessage(geometry),
		})
	}
	body, err := json.Marshal(collection)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, body, 0o644)
}

// checkBuildIntegrity re-validates the built datapackage.json; a package
// that fails validation after building must never be published.
func (p *Package) checkBuildIntegrity(ctx context.Context, buildDir string) error {
	report := frictionless.ValidatePackage(filepath.Join(buildDir, "datapackage.json"))
	if !report.Valid() {
		var messages []string
		for _, task := range report.Tasks {
			messages = append(messages, task.Errors...)
		}
		return fmt.Errorf("built package %s failed validation:\n%s", p.Slug(), strings.Join(messages, "\n"))
	}
	return nil
}
