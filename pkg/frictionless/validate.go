// SPDX-License-Identifier: Apache-2.0

package frictionless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/datapkg/datapkg/pkg/tabular"
)

// Report is the result of validating a resource or package.  The shape
// follows the frictionless validation report: a top-level error count plus
// one task per validated resource.
type Report struct {
	Stats Stats  `json:"stats"`
	Tasks []Task `json:"tasks"`
}

type Stats struct {
	Errors int `json:"errors"`
}

type Task struct {
	Name   string   `json:"name"`
	Errors []string `json:"errors"`
}

// Valid reports whether the validation found no errors.
func (r Report) Valid() bool {
	return r.Stats.Errors == 0
}

func (r *Report) addTask(task Task) {
	r.Stats.Errors += len(task.Errors)
	r.Tasks = append(r.Tasks, task)
}

// ValidateResource checks one resource's data file against its declared
// schema: the column set must match the schema fields in order, every cell
// must conform to its field type, and unique/enum constraints must hold.
func ValidateResource(dir string, res Resource) Report {
	var report Report
	report.addTask(validateResourceTask(dir, res))
	return report
}

func validateResourceTask(dir string, res Resource) Task {
	task := Task{Name: res.Name}
	fail := func(format string, args ...any) {
		task.Errors = append(task.Errors, fmt.Sprintf(format, args...))
	}

	if res.Path == "" {
		fail("resource %q has no path", res.Name)
		return task
	}
	tbl, err := tabular.ReadTable(filepath.Join(dir, res.Path))
	if err != nil {
		fail("resource %q: %v", res.Name, err)
		return task
	}

	if len(tbl.Columns) != len(res.Schema.Fields) {
		fail("resource %q: %d columns in file, %d fields in schema",
			res.Name, len(tbl.Columns), len(res.Schema.Fields))
		return task
	}
	for i, field := range res.Schema.Fields {
		col := tbl.Columns[i]
		if col.Name != field.Name {
			fail("resource %q: column %d is %q in file but %q in schema",
				res.Name, i, col.Name, field.Name)
			continue
		}
		validateColumn(&task, res.Name, col, field)
	}
	return task
}

func validateColumn(task *Task, resName string, col tabular.Column, field Field) {
	fail := func(format string, args ...any) {
		task.Errors = append(task.Errors, fmt.Sprintf(format, args...))
	}

	seen := make(map[string]int, len(col.Values))
	for rowIdx, raw := range col.Values {
		if raw != "" && !cellConforms(raw, field.Type) {
			fail("%s: field %q row %d: %q is not a valid %s",
				resName, field.Name, rowIdx+1, raw, field.Type)
		}
		if len(field.Constraints.Enum) > 0 && raw != "" && !inEnum(raw, field.Constraints.Enum) {
			fail("%s: field %q row %d: %q is not in the enum",
				resName, field.Name, rowIdx+1, raw)
		}
		if field.Constraints.Unique {
			if prev, dup := seen[raw]; dup {
				fail("%s: field %q row %d: duplicate value %q (first seen row %d)",
					resName, field.Name, rowIdx+1, raw, prev+1)
			}
			seen[raw] = rowIdx
		}
	}
}

func inEnum(value string, enum []string) bool {
	for _, e := range enum {
		if e == value {
			return true
		}
	}
	return false
}

func cellConforms(raw, typeTag string) bool {
	switch typeTag {
	case "integer":
		_, err := strconv.ParseInt(raw, 10, 64)
		return err == nil
	case "number":
		_, err := strconv.ParseFloat(raw, 64)
		return err == nil
	case "boolean":
		switch raw {
		case "true", "false", "True", "False", "TRUE", "FALSE":
			return true
		}
		return false
	case "date":
		_, err := time.Parse("2006-01-02", raw)
		return err == nil
	default:
		// string, array, and anything unrecognized carry no lexical
		// constraint
		return true
	}
}

// ValidatePackage reads a built datapackage.json and validates its
// descriptor plus every resource against the data files next to it.  The
// returned Report is the black-box contract consumed by the build
// pipeline: any nonzero Stats.Errors aborts the build.
func ValidatePackage(manifestPath string) Report {
	var report Report
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		report.addTask(Task{Name: "descriptor", Errors: []string{err.Error()}})
		return report
	}
	var pkg Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		report.addTask(Task{Name: "descriptor", Errors: []string{
			fmt.Sprintf("parsing %s: %v", manifestPath, err),
		}})
		return report
	}

	descriptor := Task{Name: "descriptor"}
	if pkg.Name == "" {
		descriptor.Errors = append(descriptor.Errors, "package has no name")
	}
	if pkg.Version == "" {
		descriptor.Errors = append(descriptor.Errors, "package has no version")
	}
	if len(pkg.Resources) == 0 {
		descriptor.Errors = append(descriptor.Errors, "package has no resources")
	}
	for _, res := range pkg.Resources {
		seen := make(map[string]bool, len(res.Schema.Fields))
		for _, field := range res.Schema.Fields {
			if seen[field.Name] {
				descriptor.Errors = append(descriptor.Errors,
					fmt.Sprintf("resource %q: duplicate field %q", res.Name, field.Name))
			}
			seen[field.Name] = true
		}
	}
	report.addTask(descriptor)

	dir := filepath.Dir(manifestPath)
	for _, res := range pkg.Resources {
		report.addTask(validateResourceTask(dir, res))
	}
	return report
}
