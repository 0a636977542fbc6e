// SPDX-License-Identifier: Apache-2.0

// Package fsutil has low-level filesystem helpers for the build and
// snapshot pipelines.
package fsutil

import (
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies a regular file, creating or truncating dst.  The
// destination directory must already exist.
func CopyFile(src, dst string) (err error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if _err := srcFile.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if _err := dstFile.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	_, err = io.Copy(dstFile, srcFile)
	return err
}

// CopyDirFiles copies the regular files at the top level of srcDir into
// dstDir, creating dstDir if needed.  Subdirectories are skipped.
func CopyDirFiles(srcDir, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		src := filepath.Join(srcDir, entry.Name())
		if err := CopyFile(src, filepath.Join(dstDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
