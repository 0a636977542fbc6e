// SPDX-License-Identifier: Apache-2.0

// Package tableschema derives a frictionless table schema from a tabular
// resource file: field types, example values, uniqueness flags, and
// enumerated value lists for low-cardinality columns.
//
// Inference is deterministic: the same input file always produces the same
// schema document.
package tableschema

import (
	"sort"
	"strconv"
	"time"

	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/tabular"
)

// DefaultEnumThreshold is the distinct-value count below which a column
// with no missing values gets an enumerated value list.
const DefaultEnumThreshold = 15

// Options adjust schema inference.
type Options struct {
	// EnumThreshold overrides DefaultEnumThreshold; zero means the
	// default.
	EnumThreshold int
}

// Infer loads a CSV or Parquet file and derives its schema.  Hand-authored
// field descriptions from the existing schema (if any) are merged back in
// by field name; descriptions are the one annotation regeneration must
// never erase.
func Infer(path string, existing *frictionless.Schema, opts Options) (*frictionless.Schema, error) {
	tbl, err := tabular.ReadTable(path)
	if err != nil {
		return nil, err
	}

	threshold := opts.EnumThreshold
	if threshold == 0 {
		threshold = DefaultEnumThreshold
	}
	var descriptions map[string]string
	if existing != nil {
		descriptions = existing.Descriptions()
	}

	schema := &frictionless.Schema{Fields: make([]frictionless.Field, len(tbl.Columns))}
	for i, col := range tbl.Columns {
		schema.Fields[i] = inferField(col, threshold)
		schema.Fields[i].Description = descriptions[col.Name]
	}
	return schema, nil
}

func inferField(col tabular.Column, enumThreshold int) frictionless.Field {
	distinct := make(map[string]bool, len(col.Values))
	hasBlank := false
	for _, v := range col.Values {
		distinct[v] = true
		if v == "" {
			hasBlank = true
		}
	}

	typeTag := col.Type
	if typeTag == "" {
		typeTag = inferType(col.Values)
	}

	field := frictionless.Field{
		Name:    col.Name,
		Type:    typeTag,
		Example: example(col.Values),
		Constraints: frictionless.Constraints{
			// distinct count includes the blank marker, mirroring a
			// stringified-column comparison
			Unique: len(distinct) == len(col.Values),
		},
	}

	if len(distinct) < enumThreshold && !hasBlank && len(col.Values) > 0 {
		enum := make([]string, 0, len(distinct))
		for v := range distinct {
			enum = append(enum, v)
		}
		sort.Strings(enum)
		field.Constraints.Enum = enum
	}
	return field
}

// example picks the first non-null value after sorting the string forms.
// The lexicographic sort biases toward the smallest string rather than a
// representative value; the behavior is kept for compatibility with
// existing sidecar documents.
func example(values []string) string {
	var nonNull []string
	for _, v := range values {
		if v != "" {
			nonNull = append(nonNull, v)
		}
	}
	if len(nonNull) == 0 {
		return ""
	}
	sort.Strings(nonNull)
	return nonNull[0]
}

func inferType(values []string) string {
	sawValue := false
	isBool, isInt, isNumber, isDate := true, true, true, true
	for _, v := range values {
		if v == "" {
			continue
		}
		sawValue = true
		if isBool {
			switch v {
			case "true", "false", "True", "False", "TRUE", "FALSE":
			default:
				isBool = false
			}
		}
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isNumber {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isNumber = false
			}
		}
		if isDate {
			if _, err := time.Parse("2006-01-02", v); err != nil {
				isDate = false
			}
		}
		if !isBool && !isInt && !isNumber && !isDate {
			break
		}
	}
	switch {
	case !sawValue:
		return "string"
	case isBool:
		return "boolean"
	case isInt:
		return "integer"
	case isNumber:
		return "number"
	case isDate:
		return "date"
	default:
		return "string"
	}
}
