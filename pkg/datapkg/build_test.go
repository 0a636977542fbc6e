// SPDX-License-Identifier: Apache-2.0

package datapkg_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/datapkg/datapkg/pkg/frictionless"
)

func TestBuildPackage(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")

	require.NoError(t, p.BuildPackage(ctx))

	buildDir := p.BuildDir("0.1.0")
	assert.FileExists(t, filepath.Join(buildDir, "datapackage.json"))
	assert.FileExists(t, filepath.Join(buildDir, "responses.csv"))
	assert.FileExists(t, filepath.Join(buildDir, "responses.parquet"))
	assert.FileExists(t, filepath.Join(buildDir, "survey_data.xlsx"))
	assert.FileExists(t, filepath.Join(buildDir, "survey_data.sqlite"))
	assert.FileExists(t, filepath.Join(buildDir, "survey_data.json"))

	body, err := os.ReadFile(filepath.Join(buildDir, "datapackage.json"))
	require.NoError(t, err)
	var doc frictionless.Package
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "survey_data", doc.Name)
	assert.Equal(t, "0.1.0", doc.Version)
	require.Len(t, doc.Resources, 1)
	assert.Equal(t, int64(3), doc.Resources[0].Custom.RowCount)
}

func TestBuildPackageExcelSheets(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	require.NoError(t, p.BuildPackage(ctx))

	workbook, err := excelize.OpenFile(filepath.Join(p.BuildDir("0.1.0"), "survey_data.xlsx"))
	require.NoError(t, err)
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	assert.Contains(t, sheets, "package_description")
	assert.Contains(t, sheets, "responses")
	assert.Contains(t, sheets, "responses_metadata")

	header, err := workbook.GetCellValue("responses", "A1")
	require.NoError(t, err)
	assert.Equal(t, "id", header)
}

func TestBuildPackageSQLite(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	require.NoError(t, p.BuildPackage(ctx))

	db, err := sql.Open("sqlite", filepath.Join(p.BuildDir("0.1.0"), "survey_data.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	var rowCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "responses"`).Scan(&rowCount))
	assert.Equal(t, 3, rowCount)

	var descriptionCount int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "data_description" WHERE resource = 'responses'`).Scan(&descriptionCount))
	assert.Equal(t, 2, descriptionCount)
}

func TestBuildPackageJSONComposite(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	require.NoError(t, p.BuildPackage(ctx))

	body, err := os.ReadFile(filepath.Join(p.BuildDir("0.1.0"), "survey_data.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))

	assert.NotContains(t, doc, "custom")
	resources, ok := doc["resources"].([]any)
	require.True(t, ok)
	require.Len(t, resources, 1)
	resource := resources[0].(map[string]any)
	data, ok := resource["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 3)
}

func TestBuildCompositeRenderFlagAndExclusion(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	disabled := false
	require.NoError(t, p.UpdateManifest(func(doc *frictionless.Package) {
		doc.Custom.Composite = map[string]frictionless.CompositeOptions{
			"xlsx": {Render: &disabled},
			"json": {Exclude: []string{"responses"}},
		}
	}))

	require.NoError(t, p.BuildPackage(ctx))

	buildDir := p.BuildDir("0.1.0")
	assert.NoFileExists(t, filepath.Join(buildDir, "survey_data.xlsx"))

	body, err := os.ReadFile(filepath.Join(buildDir, "survey_data.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	resources, _ := doc["resources"].([]any)
	assert.Empty(t, resources)
}

func TestBuildCompositeCommaToArray(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	require.NoError(t, p.UpdateManifest(func(doc *frictionless.Package) {
		doc.Custom.Composite = map[string]frictionless.CompositeOptions{
			"json": {Modify: map[string]map[string]string{
				"responses": {"category": "comma-to-array"},
			}},
		}
	}))

	require.NoError(t, p.BuildPackage(ctx))

	body, err := os.ReadFile(filepath.Join(p.BuildDir("0.1.0"), "survey_data.json"))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(body, &doc))
	resource := doc["resources"].([]any)[0].(map[string]any)

	fields := resource["schema"].(map[string]any)["fields"].([]any)
	var categoryField map[string]any
	for _, f := range fields {
		if field := f.(map[string]any); field["name"] == "category" {
			categoryField = field
		}
	}
	require.NotNil(t, categoryField)
	assert.Equal(t, "array", categoryField["type"])
	assert.IsType(t, []any{}, categoryField["example"])

	rows := resource["data"].([]any)
	first := rows[0].(map[string]any)
	assert.Equal(t, []any{"alpha"}, first["category"])
}

func TestBuildMissingPreviousVersions(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	snapshotFixture(t, p)

	require.NoError(t, p.BuildMissingPreviousVersions(ctx))
	assert.FileExists(t, filepath.Join(p.BuildDir("0.1.0"), "datapackage.json"))

	// A second run is a no-op: the built tree already exists.
	require.NoError(t, p.BuildMissingPreviousVersions(ctx))
}

func TestFormatsDisableCSV(t *testing.T) {
	ctx := context.Background()
	p := newFixturePackage(t, "0.1.0")
	require.NoError(t, p.UpdateManifest(func(doc *frictionless.Package) {
		doc.Custom.Formats = map[string]bool{"parquet": false}
	}))

	require.NoError(t, p.BuildPackage(ctx))

	buildDir := p.BuildDir("0.1.0")
	assert.FileExists(t, filepath.Join(buildDir, "responses.csv"))
	assert.NoFileExists(t, filepath.Join(buildDir, "responses.parquet"))
}
