// SPDX-License-Identifier: Apache-2.0

// Package tabular reads and converts the tabular data files (CSV and
// Parquet) that back dataset resources.
package tabular

import (
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrUnsupportedType is returned for any resource file whose suffix is not
// ".csv" or ".parquet".
var ErrUnsupportedType = fmt.Errorf("unsupported resource file type")

// Column is one column of a loaded table.  Values holds every cell in
// string form, with "" marking a null/blank cell.  Type is the frictionless
// type tag declared by the file format, or "" when the format carries no
// type information (CSV).
type Column struct {
	Name   string
	Type   string
	Values []string
}

// Table is a fully-loaded tabular file.
type Table struct {
	Columns []Column
}

// NumRows returns the number of data rows in the table.
func (tbl *Table) NumRows() int {
	if len(tbl.Columns) == 0 {
		return 0
	}
	return len(tbl.Columns[0].Values)
}

// Column returns the named column, or nil.
func (tbl *Table) Column(name string) *Column {
	for i := range tbl.Columns {
		if tbl.Columns[i].Name == name {
			return &tbl.Columns[i]
		}
	}
	return nil
}

// ReadTable loads a CSV or Parquet file into memory.
func ReadTable(path string) (*Table, error) {
	switch filepath.Ext(path) {
	case ".csv":
		return readCSV(path)
	case ".parquet":
		return readParquet(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(path))
	}
}

// RowCount counts the data rows in a CSV or Parquet file without loading
// the whole table: streaming for CSV, file metadata for Parquet.
func RowCount(path string) (int64, error) {
	switch filepath.Ext(path) {
	case ".csv":
		return csvRowCount(path)
	case ".parquet":
		return parquetRowCount(path)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(path))
	}
}

// FileHash returns the hex MD5 digest of the file contents.  The digest is
// recorded in resource sidecars and is the primary signal for patch-level
// (content-only) changes.
func FileHash(path string) (str string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	hash := md5.New() //nolint:gosec // see above
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
