// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// FieldType names one column and its frictionless type tag, used to type
// the destination file when converting between formats.
type FieldType struct {
	Name string
	Type string
}

// ConvertOptions adjust a format conversion.
type ConvertOptions struct {
	// Fields declares the columns and their types.  Required for
	// CSV→Parquet (a CSV file carries no type information); optional
	// otherwise.
	Fields []FieldType

	// ExcludeColumns are dropped from the destination.  Used to keep
	// geometry blobs out of CSV renditions of geodata.
	ExcludeColumns []string
}

func (opts ConvertOptions) excluded(name string) bool {
	for _, ex := range opts.ExcludeColumns {
		if ex == name {
			return true
		}
	}
	return false
}

// Convert copies a tabular file from one format to the other, streaming
// row by row so that large files never need to fit in memory.  The
// direction is taken from the file suffixes.
func Convert(src, dst string, opts ConvertOptions) error {
	srcExt := filepath.Ext(src)
	dstExt := filepath.Ext(dst)
	switch {
	case srcExt == ".csv" && dstExt == ".parquet":
		return csvToParquet(src, dst, opts)
	case srcExt == ".parquet" && dstExt == ".csv":
		return parquetToCSV(src, dst, opts)
	default:
		return fmt.Errorf("%w: cannot convert %q to %q", ErrUnsupportedType, srcExt, dstExt)
	}
}

func parquetNode(typeTag string) parquet.Node {
	switch typeTag {
	case "integer":
		return parquet.Optional(parquet.Int(64))
	case "number":
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case "boolean":
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	default:
		// dates and arrays travel as their string forms
		return parquet.Optional(parquet.String())
	}
}

func parquetCell(raw, typeTag string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	switch typeTag {
	case "integer":
		return strconv.ParseInt(raw, 10, 64)
	case "number":
		return strconv.ParseFloat(raw, 64)
	case "boolean":
		return strconv.ParseBool(raw)
	default:
		return raw, nil
	}
}

func csvToParquet(src, dst string, opts ConvertOptions) (err error) {
	if len(opts.Fields) == 0 {
		return fmt.Errorf("converting %q: CSV to Parquet conversion requires a field list", src)
	}
	types := make(map[string]string, len(opts.Fields))
	group := parquet.Group{}
	for _, field := range opts.Fields {
		types[field.Name] = field.Type
		if !opts.excluded(field.Name) {
			group[field.Name] = parquetNode(field.Type)
		}
	}
	schema := parquet.NewSchema("", group)

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

	reader := csv.NewReader(srcFile)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("converting %q: reading header: %w", src, err)
	}

	writer := parquet.NewGenericWriter[map[string]any](dstFile, schema)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		row := make(map[string]any, len(header))
		for i, name := range header {
			if opts.excluded(name) {
				continue
			}
			cell, err := parquetCell(record[i], types[name])
			if err != nil {
				return fmt.Errorf("converting %q: column %q: %w", src, name, err)
			}
			if cell != nil {
				row[name] = cell
			}
		}
		if _, err := writer.Write([]map[string]any{row}); err != nil {
			return err
		}
	}
	return writer.Close()
}

func parquetToCSV(src, dst string, opts ConvertOptions) (err error) {
	pqFile, osFile, err := openParquet(src)
	if err != nil {
		return err
	}
	defer func() {
		if _err := osFile.Close(); _err != nil && err == nil {
			err = _err
		}
	}()

	fields := pqFile.Schema().Fields()
	names := make([]string, len(fields))
	tags := make([]string, len(fields))
	var keep []int
	for i, field := range fields {
		names[i] = field.Name()
		tags[i] = fieldTypeTag(field)
		if !opts.excluded(field.Name()) {
			keep = append(keep, i)
		}
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if _err := dstFile.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	writer := csv.NewWriter(dstFile)

	header := make([]string, len(keep))
	for outIdx, colIdx := range keep {
		header[outIdx] = names[colIdx]
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	cells := make([]string, len(names))
	record := make([]string, len(keep))
	err = forEachParquetRow(pqFile, func(row parquet.Row) {
		for i := range cells {
			cells[i] = ""
		}
		for _, val := range row {
			cells[val.Column()] = valueString(val, tags[val.Column()])
		}
		for outIdx, colIdx := range keep {
			record[outIdx] = cells[colIdx]
		}
		_ = writer.Write(record)
	})
	if err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
