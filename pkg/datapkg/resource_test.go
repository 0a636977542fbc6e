// SPDX-License-Identifier: Apache-2.0

package datapkg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapkg/datapkg/pkg/datapkg"
	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/testutil"
)

func TestRebuildSidecarIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,category\n1,alpha\n2,beta\n3,alpha\n"), 0o644))
	res := &datapkg.Resource{Path: path}

	require.NoError(t, res.RebuildSidecar(false))
	first, err := os.ReadFile(res.SidecarPath())
	require.NoError(t, err)

	require.NoError(t, res.RebuildSidecar(false))
	second, err := os.ReadFile(res.SidecarPath())
	require.NoError(t, err)

	testutil.AssertEqualText(t, string(first), string(second), "sidecar")
}

func TestRebuildSidecarPreservesDescriptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,category\n1,alpha\n2,beta\n"), 0o644))
	res := &datapkg.Resource{Path: path}

	require.NoError(t, res.RebuildSidecar(false))
	updateSidecar(t, res, func(desc *frictionless.Resource) {
		desc.Title = "Responses"
		desc.Description = "One row per survey response"
		desc.Schema.Fields[0].Description = "The response identifier"
	})

	require.NoError(t, res.RebuildSidecar(false))

	desc, err := res.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, "Responses", desc.Title)
	assert.Equal(t, "One row per survey response", desc.Description)
	assert.Equal(t, "The response identifier", desc.Schema.Field("id").Description)
	assert.Equal(t, int64(2), desc.Custom.RowCount)
	assert.NotEmpty(t, desc.Hash)
}

func TestRebuildSidecarQuotesYesNo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opinions.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,agree\n1,Yes\n2,No\n3,Yes\n"), 0o644))
	res := &datapkg.Resource{Path: path}

	require.NoError(t, res.RebuildSidecar(false))
	body, err := os.ReadFile(res.SidecarPath())
	require.NoError(t, err)

	// Bare Yes/No scalars would be coerced to booleans by YAML 1.1
	// readers, so they persist quoted.
	assert.Contains(t, string(body), `"No"`)
	assert.Contains(t, string(body), `- "Yes"`)
	assert.NotContains(t, string(body), ": Yes\n")

	// The quoted file still parses back to the same strings.
	desc, err := res.Descriptor()
	require.NoError(t, err)
	assert.Equal(t, "No", desc.Schema.Field("agree").Example)
	assert.Equal(t, []string{"No", "Yes"}, desc.Schema.Field("agree").Constraints.Enum)
}

func TestRebuildSidecarBlanksGeometryExample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "areas.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("name,geometry\nNorth,\"{\"\"type\"\":\"\"Point\"\",\"\"coordinates\"\":[0,1]}\"\n"), 0o644))
	res := &datapkg.Resource{Path: path}

	require.NoError(t, res.RebuildSidecar(true))

	desc, err := res.Descriptor()
	require.NoError(t, err)
	assert.Empty(t, desc.Schema.Field("geometry").Example)
	assert.NotEmpty(t, desc.Schema.Field("name").Example)
}

func TestResourceStatus(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,category\n1,alpha\n2,beta\n"), 0o644))
	res := &datapkg.Resource{Path: path}

	finding := res.Status()
	assert.Equal(t, datapkg.SeverityError, finding.Severity)
	assert.Contains(t, finding.Message, "no schema document")

	require.NoError(t, res.RebuildSidecar(false))
	finding = res.Status()
	assert.Equal(t, datapkg.SeverityError, finding.Severity)
	assert.Contains(t, finding.Message, "title or description")

	updateSidecar(t, res, func(desc *frictionless.Resource) {
		desc.Title = "Responses"
		desc.Description = "One row per survey response"
		for i := range desc.Schema.Fields {
			desc.Schema.Fields[i].Description = "The " + desc.Schema.Fields[i].Name
		}
	})
	finding = res.Status()
	assert.Equal(t, datapkg.SeverityOK, finding.Severity)
}

func TestMetadataRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "responses.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,category\n1,alpha\n2,beta\n3,alpha\n"), 0o644))
	res := &datapkg.Resource{Path: path}
	require.NoError(t, res.RebuildSidecar(false))

	rows, err := res.MetadataRows()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"column", "description", "type", "example", "unique values", "options"}, rows[0])
	assert.Equal(t, "id", rows[1][0])
	assert.Equal(t, "Yes", rows[1][4])
	assert.Equal(t, "category", rows[2][0])
	assert.Equal(t, "No", rows[2][4])
	assert.Equal(t, "alpha, beta", rows[2][5])
}

func TestInlineDataTypesCells(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scores.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("id,score,name\n1,4.5,ann\n2,3.25,\n"), 0o644))
	res := &datapkg.Resource{Path: path}
	require.NoError(t, res.RebuildSidecar(false))

	rows, err := res.InlineData()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0]["id"])
	assert.Equal(t, 4.5, rows[0]["score"])
	assert.Equal(t, "ann", rows[0]["name"])
	assert.Equal(t, "", rows[1]["name"])
}
