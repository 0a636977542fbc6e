// SPDX-License-Identifier: Apache-2.0

package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datapkg/datapkg/pkg/fsutil"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, fsutil.CopyFile(src, dst))

	body, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestCopyDirFilesSkipsSubdirectories(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "snapshot")
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.csv"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.yaml"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "versions", "0.1.0"), 0o755))

	require.NoError(t, fsutil.CopyDirFiles(src, dst))

	assert.True(t, fsutil.FileExists(filepath.Join(dst, "a.csv")))
	assert.True(t, fsutil.FileExists(filepath.Join(dst, "b.yaml")))
	_, err := os.Stat(filepath.Join(dst, "versions"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, fsutil.FileExists(filepath.Join(dir, "missing")))
	assert.False(t, fsutil.FileExists(dir))
}
