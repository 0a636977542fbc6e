// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
)

// epochDate converts a Parquet DATE value (days since the Unix epoch) to
// its ISO-8601 string form.
func epochDate(days int32) string {
	return time.Unix(int64(days)*86400, 0).UTC().Format("2006-01-02")
}

func openParquet(path string) (*parquet.File, *os.File, error) {
	osFile, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	info, err := osFile.Stat()
	if err != nil {
		_ = osFile.Close()
		return nil, nil, err
	}
	pqFile, err := parquet.OpenFile(osFile, info.Size())
	if err != nil {
		_ = osFile.Close()
		return nil, nil, err
	}
	return pqFile, osFile, nil
}

// fieldTypeTag maps a Parquet leaf field to a frictionless type tag.
func fieldTypeTag(field parquet.Field) string {
	typ := field.Type()
	if logical := typ.LogicalType(); logical != nil && logical.Date != nil {
		return "date"
	}
	switch typ.Kind() {
	case parquet.Boolean:
		return "boolean"
	case parquet.Int32, parquet.Int64, parquet.Int96:
		return "integer"
	case parquet.Float, parquet.Double:
		return "number"
	default:
		return "string"
	}
}

func valueString(val parquet.Value, typeTag string) string {
	if val.IsNull() {
		return ""
	}
	switch val.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(val.Boolean())
	case parquet.Int32:
		if typeTag == "date" {
			return epochDate(val.Int32())
		}
		return strconv.FormatInt(int64(val.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(val.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(val.Float()), 'g', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(val.Double(), 'g', -1, 64)
	default:
		return string(val.ByteArray())
	}
}

func readParquet(path string) (tbl *Table, err error) {
	pqFile, osFile, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _err := osFile.Close(); _err != nil && err == nil {
			tbl = nil
			err = _err
		}
	}()

	fields := pqFile.Schema().Fields()
	ret := &Table{Columns: make([]Column, len(fields))}
	for i, field := range fields {
		ret.Columns[i].Name = field.Name()
		ret.Columns[i].Type = fieldTypeTag(field)
	}

	err = forEachParquetRow(pqFile, func(row parquet.Row) {
		for _, val := range row {
			col := &ret.Columns[val.Column()]
			col.Values = append(col.Values, valueString(val, col.Type))
		}
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func forEachParquetRow(pqFile *parquet.File, fn func(parquet.Row)) error {
	buf := make([]parquet.Row, 64)
	for _, rowGroup := range pqFile.RowGroups() {
		rows := rowGroup.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				fn(row)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				_ = rows.Close()
				return err
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
	}
	return nil
}

func parquetRowCount(path string) (int64, error) {
	pqFile, osFile, err := openParquet(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = osFile.Close()
	}()
	return pqFile.NumRows(), nil
}
