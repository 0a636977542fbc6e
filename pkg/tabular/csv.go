// SPDX-License-Identifier: Apache-2.0

package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

func readCSV(path string) (tbl *Table, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			tbl = nil
			err = _err
		}
	}()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file %q has no header row", path)
		}
		return nil, err
	}

	ret := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		ret.Columns[i].Name = name
	}
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		for i := range ret.Columns {
			ret.Columns[i].Values = append(ret.Columns[i].Values, record[i])
		}
	}
	return ret, nil
}

func csvRowCount(path string) (n int64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			n = 0
			err = _err
		}
	}()

	reader := csv.NewReader(file)
	reader.ReuseRecord = true
	var rows int64 = -1 // don't count the header
	for {
		if _, err := reader.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		rows++
	}
	if rows < 0 {
		rows = 0
	}
	return rows, nil
}
