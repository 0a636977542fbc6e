// SPDX-License-Identifier: Apache-2.0

package jekyll_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapkg/datapkg/pkg/jekyll"
	"github.com/datapkg/datapkg/pkg/settings"
)

func writeBuiltPackage(t *testing.T, cfg settings.Settings, name, version string, doc map[string]any) {
	t.Helper()
	dir := filepath.Join(cfg.PublishDir, "data", name, version)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	doc["name"] = name
	doc["version"] = version
	body, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datapackage.json"), body, 0o644))
}

func TestRender(t *testing.T) {
	cfg := settings.Settings{PublishDir: t.TempDir()}
	writeBuiltPackage(t, cfg, "survey_data", "1.0.0", map[string]any{
		"resources": []any{
			map[string]any{"name": "responses", "path": "responses.csv"},
		},
	})
	writeBuiltPackage(t, cfg, "survey_data", "1.1.0", map[string]any{
		"resources": []any{
			map[string]any{"name": "responses", "path": "responses.csv"},
		},
		"custom": map[string]any{
			"download_options": map[string]any{
				"gate":   "strict",
				"survey": "default",
			},
		},
	})

	require.NoError(t, jekyll.Render(cfg))

	datasets := filepath.Join(cfg.PublishDir, "_datasets")
	assert.FileExists(t, filepath.Join(datasets, "survey_data.md"))
	assert.FileExists(t, filepath.Join(datasets, "survey_data-1.0.0.md"))

	downloads := filepath.Join(cfg.PublishDir, "_downloads")
	entry, err := os.ReadFile(filepath.Join(downloads, "survey-data-responses.md"))
	require.NoError(t, err)
	// Download entries point at the latest built version and carry any
	// non-default download-option overrides.
	assert.Contains(t, string(entry), "/data/survey_data/1.1.0/responses.csv")
	assert.Contains(t, string(entry), "download_gate_type: strict")
	assert.NotContains(t, string(entry), "download_survey")

	xlsxEntry, err := os.ReadFile(filepath.Join(downloads, "survey-data-xlsx.md"))
	require.NoError(t, err)
	assert.Contains(t, string(xlsxEntry), "survey_data.xlsx")
}

func TestRenderPrereleaseLatest(t *testing.T) {
	cfg := settings.Settings{PublishDir: t.TempDir()}
	writeBuiltPackage(t, cfg, "survey_data", "0.9.0", map[string]any{
		"resources": []any{
			map[string]any{"name": "responses", "path": "responses.csv"},
		},
	})
	writeBuiltPackage(t, cfg, "survey_data", "1.0.0-beta", map[string]any{
		"resources": []any{
			map[string]any{"name": "responses", "path": "responses.csv"},
		},
	})

	require.NoError(t, jekyll.Render(cfg))

	// The newest built version being a prerelease must still yield the
	// unversioned document and the download entries.
	datasets := filepath.Join(cfg.PublishDir, "_datasets")
	assert.FileExists(t, filepath.Join(datasets, "survey_data.md"))
	assert.FileExists(t, filepath.Join(datasets, "survey_data-0.9.0.md"))

	entry, err := os.ReadFile(filepath.Join(cfg.PublishDir, "_downloads", "survey-data-responses.md"))
	require.NoError(t, err)
	assert.Contains(t, string(entry), "/data/survey_data/1.0.0-beta/responses.csv")
}

func TestRenderClearsStaleFiles(t *testing.T) {
	cfg := settings.Settings{PublishDir: t.TempDir()}
	datasets := filepath.Join(cfg.PublishDir, "_datasets")
	require.NoError(t, os.MkdirAll(datasets, 0o755))
	stale := filepath.Join(datasets, "removed_package.md")
	require.NoError(t, os.WriteFile(stale, []byte("---\n---\n"), 0o644))

	require.NoError(t, jekyll.Render(cfg))
	assert.NoFileExists(t, stale)
}
