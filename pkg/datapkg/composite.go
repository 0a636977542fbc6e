// SPDX-License-Identifier: Apache-2.0

package datapkg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
	_ "modernc.org/sqlite"

	"github.com/datapkg/datapkg/pkg/cliutil"
	"github.com/datapkg/datapkg/pkg/frictionless"
	"github.com/datapkg/datapkg/pkg/tabular"
)

// maxSheetNameLen is the xlsx format's sheet-name limit.
const maxSheetNameLen = 31

// maxColumnWidth caps spreadsheet column widths; wider content wraps.
const maxColumnWidth = 50

func (p *Package) buildComposites(ctx context.Context, buildDir string) error {
	if err := p.buildExcel(ctx, buildDir); err != nil {
		return err
	}
	if err := p.buildSQLite(ctx, buildDir); err != nil {
		return err
	}
	return p.buildCompositeJSON(ctx, buildDir)
}

// compositeOptions resolves the include/exclude/modify options for one
// composite type and returns the resource slugs it should cover, in
// display order.
func (p *Package) compositeOptions(kind string) ([]string, frictionless.CompositeOptions, error) {
	doc, err := p.Manifest()
	if err != nil {
		return nil, frictionless.CompositeOptions{}, err
	}
	opts := doc.Custom.Composite[kind]

	resources, err := p.Resources()
	if err != nil {
		return nil, frictionless.CompositeOptions{}, err
	}
	include := opts.Include
	if len(include) == 0 {
		for _, res := range resources {
			include = append(include, res.Slug())
		}
	}
	excluded := make(map[string]bool, len(opts.Exclude))
	for _, slug := range opts.Exclude {
		excluded[slug] = true
	}
	var allowed []string
	for _, slug := range include {
		if !excluded[slug] {
			allowed = append(allowed, slug)
		}
	}
	return allowed, opts, nil
}

func shortSheetName(name string) string {
	if len(name) > maxSheetNameLen {
		return name[len(name)-maxSheetNameLen:]
	}
	return name
}

// xlsxWriter wraps an excelize file with 1-based coordinate helpers and
// sticky error handling, so the cover-sheet layout code reads as layout.
type xlsxWriter struct {
	file *excelize.File
	err  error
}

func (w *xlsxWriter) cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil && w.err == nil {
		w.err = err
	}
	return name
}

func (w *xlsxWriter) set(sheet string, col, row int, value any) {
	if err := w.file.SetCellValue(sheet, w.cellName(col, row), value); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *xlsxWriter) setStyled(sheet string, col, row int, value any, style int) {
	cell := w.cellName(col, row)
	w.set(sheet, col, row, value)
	if err := w.file.SetCellStyle(sheet, cell, cell, style); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *xlsxWriter) link(sheet string, col, row int, url, text string) {
	cell := w.cellName(col, row)
	w.set(sheet, col, row, text)
	if err := w.file.SetCellHyperLink(sheet, cell, url, "External"); err != nil && w.err == nil {
		w.err = err
	}
}

func (w *xlsxWriter) internalLink(sheet string, col, row int, target, text string) {
	cell := w.cellName(col, row)
	w.set(sheet, col, row, text)
	link := fmt.Sprintf("'%s'!A1", target)
	if err := w.file.SetCellHyperLink(sheet, cell, link, "Location"); err != nil && w.err == nil {
		w.err = err
	}
}

// buildExcel writes the package as a single workbook: a cover sheet of
// package metadata, then one data sheet and one metadata sheet per
// included resource.
func (p *Package) buildExcel(ctx context.Context, buildDir string) error {
	allowed, opts, err := p.compositeOptions("xlsx")
	if err != nil {
		return err
	}
	if !opts.ShouldRender() {
		cliutil.Alert(cliutil.Red, "Skipping Excel build")
		return nil
	}

	file := excelize.NewFile()
	defer file.Close()
	w := &xlsxWriter{file: file}

	bold, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	wrap, err := file.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}

	if err := p.buildCoverSheet(w, bold, allowed); err != nil {
		return err
	}

	resources, err := p.Resources()
	if err != nil {
		return err
	}
	for _, res := range resources {
		if !contains(allowed, res.Slug()) {
			continue
		}
		tbl, err := tabular.ReadTable(res.Path)
		if err != nil {
			return err
		}
		dataRows := tableToRows(tbl, GeometryColumn)
		if err := writeSheet(w, wrap, shortSheetName(res.Slug()), dataRows); err != nil {
			return err
		}
		metaRows, err := res.MetadataRows()
		if err != nil {
			return err
		}
		if err := writeSheet(w, wrap, shortSheetName(res.Slug()+"_metadata"), metaRows); err != nil {
			return err
		}
	}

	if w.err != nil {
		return w.err
	}
	return file.SaveAs(filepath.Join(buildDir, p.Slug()+".xlsx"))
}

// buildCoverSheet lays out the package_description sheet: descriptive
// metadata, license/contributor/source links, a directory of the data
// sheets, and the feedback-survey link.
func (p *Package) buildCoverSheet(w *xlsxWriter, bold int, allowed []string) error {
	doc, err := p.Manifest()
	if err != nil {
		return err
	}
	version, err := p.CurrentVersion()
	if err != nil {
		return err
	}

	const sheet = "package_description"
	if err := w.file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := w.file.SetColWidth(sheet, "C", "C", 40); err != nil {
		return err
	}
	if err := w.file.SetColWidth(sheet, "D", "D", 30); err != nil {
		return err
	}

	w.setStyled(sheet, 3, 3, "Dataset", bold)
	w.set(sheet, 4, 3, doc.Title)
	w.setStyled(sheet, 3, 4, "URL", bold)
	w.set(sheet, 4, 4, p.URL())
	w.setStyled(sheet, 3, 5, "Dataset description", bold)
	w.set(sheet, 4, 5, doc.Description)
	if len(doc.Licenses) > 0 {
		w.setStyled(sheet, 3, 6, "Licence", bold)
		for n, license := range doc.Licenses {
			if license.Path != "" {
				w.link(sheet, 4+n, 6, license.Path, license.Title)
			} else {
				w.set(sheet, 4+n, 6, license.Title)
			}
		}
	}
	w.setStyled(sheet, 3, 7, "Version", bold)
	w.set(sheet, 4, 7, version)

	row := 9
	if len(doc.Contributors) > 0 {
		w.setStyled(sheet, 3, row, "Contributors", bold)
		row++
		for _, contrib := range doc.Contributors {
			credit := contrib.Title
			if contrib.Organization != "" {
				if credit != "" {
					credit = fmt.Sprintf("%s (%s)", credit, contrib.Organization)
				} else {
					credit = contrib.Organization
				}
			}
			if contrib.Path != "" {
				w.link(sheet, 3, row, contrib.Path, credit)
			} else {
				w.set(sheet, 3, row, credit)
			}
			row++
		}
	}
	if len(doc.Sources) > 0 {
		row++
		w.setStyled(sheet, 3, row, "Sources", bold)
		row++
		for _, source := range doc.Sources {
			if source.Path != "" {
				w.link(sheet, 3, row, source.Path, source.Title)
			} else {
				w.set(sheet, 3, row, source.Title)
			}
			row++
		}
	}

	row += 2
	w.setStyled(sheet, 3, row, "Sheet", bold)
	w.setStyled(sheet, 4, row, "Metadata", bold)
	w.setStyled(sheet, 5, row, "Sheet description", bold)
	row++

	resources, err := p.Resources()
	if err != nil {
		return err
	}
	for _, res := range resources {
		if !contains(allowed, res.Slug()) {
			continue
		}
		desc, err := res.Descriptor()
		if err != nil {
			return err
		}
		w.internalLink(sheet, 3, row, shortSheetName(res.Slug()), desc.Title)
		w.internalLink(sheet, 4, row, shortSheetName(res.Slug()+"_metadata"), "View column information")
		w.set(sheet, 5, row, desc.Description)
		row++
	}

	row++
	if surveyURL := p.SurveyURL(); surveyURL != "" {
		w.link(sheet, 3, row, surveyURL, p.Settings.CreditText)
	}
	return w.err
}

// tableToRows flattens a table to display rows (header first), dropping
// the named column if present.
func tableToRows(tbl *tabular.Table, dropColumn string) [][]string {
	var columns []tabular.Column
	for _, col := range tbl.Columns {
		if col.Name != dropColumn {
			columns = append(columns, col)
		}
	}
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}
	rows := [][]string{header}
	for i := 0; i < tbl.NumRows(); i++ {
		row := make([]string, len(columns))
		for j, col := range columns {
			row[j] = col.Values[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// writeSheet writes rows to a new sheet and sizes each column to its
// content, wrapping anything wider than the cap.
func writeSheet(w *xlsxWriter, wrapStyle int, sheet string, rows [][]string) error {
	if _, err := w.file.NewSheet(sheet); err != nil {
		return err
	}
	for i, row := range rows {
		for j, value := range row {
			w.set(sheet, j+1, i+1, value)
		}
	}
	if len(rows) == 0 {
		return w.err
	}
	for j := range rows[0] {
		width := 0
		for _, row := range rows {
			if j < len(row) && len(row[j]) > width {
				width = len(row[j])
			}
		}
		width += 4
		colName, err := excelize.ColumnNumberToName(j + 1)
		if err != nil {
			return err
		}
		if width > maxColumnWidth {
			width = maxColumnWidth
			if err := w.file.SetColStyle(sheet, colName, wrapStyle); err != nil {
				return err
			}
		}
		if err := w.file.SetColWidth(sheet, colName, colName, float64(width)); err != nil {
			return err
		}
	}
	return w.err
}

// buildSQLite writes the package as a single database: one table per
// included resource plus a combined data_description metadata table.
func (p *Package) buildSQLite(ctx context.Context, buildDir string) error {
	allowed, opts, err := p.compositeOptions("sqlite")
	if err != nil {
		return err
	}
	if !opts.ShouldRender() {
		cliutil.Alert(cliutil.Red, "Skipping sqlite build")
		return nil
	}

	dbPath := filepath.Join(buildDir, p.Slug()+".sqlite")
	if err := os.RemoveAll(dbPath); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	resources, err := p.Resources()
	if err != nil {
		return err
	}
	var descriptionRows [][]string
	for _, res := range resources {
		if !contains(allowed, res.Slug()) {
			continue
		}
		if err := writeResourceTable(ctx, db, res); err != nil {
			return err
		}
		metaRows, err := res.MetadataRows()
		if err != nil {
			return err
		}
		for _, row := range metaRows[1:] {
			descriptionRows = append(descriptionRows, append(row, res.Slug()))
		}
	}

	return writeDescriptionTable(ctx, db, descriptionRows)
}

func sqliteType(typeTag string) string {
	switch typeTag {
	case "integer", "boolean":
		return "INTEGER"
	case "number":
		return "REAL"
	default:
		return "TEXT"
	}
}

func writeResourceTable(ctx context.Context, db *sql.DB, res *Resource) error {
	desc, err := res.Descriptor()
	if err != nil {
		return err
	}
	tbl, err := tabular.ReadTable(res.Path)
	if err != nil {
		return err
	}

	var columnDefs []string
	var placeholders []string
	for _, field := range desc.Schema.Fields {
		columnDefs = append(columnDefs, fmt.Sprintf("%q %s", field.Name, sqliteType(field.Type)))
		placeholders = append(placeholders, "?")
	}
	create := fmt.Sprintf("CREATE TABLE %q (%s)", res.Slug(), strings.Join(columnDefs, ", "))
	if _, err := db.ExecContext(ctx, create); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	insert := fmt.Sprintf("INSERT INTO %q VALUES (%s)", res.Slug(), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < tbl.NumRows(); i++ {
		args := make([]any, len(desc.Schema.Fields))
		for j, field := range desc.Schema.Fields {
			col := tbl.Column(field.Name)
			if col == nil {
				return fmt.Errorf("resource %q: column %q not present in data file", res.Slug(), field.Name)
			}
			if raw := col.Values[i]; raw == "" {
				args[j] = nil
			} else {
				args[j] = typedCell(raw, field.Type)
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func writeDescriptionTable(ctx context.Context, db *sql.DB, rows [][]string) error {
	create := `CREATE TABLE "data_description" (` +
		`"column" TEXT, "description" TEXT, "type" TEXT, "example" TEXT, ` +
		`"unique_values" TEXT, "options" TEXT, "resource" TEXT)`
	if _, err := db.ExecContext(ctx, create); err != nil {
		return err
	}
	for _, row := range rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		insert := `INSERT INTO "data_description" VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := db.ExecContext(ctx, insert, args...); err != nil {
			return err
		}
	}
	return nil
}

// buildCompositeJSON writes the package document with the included
// resources' data inlined, after applying any configured column
// transforms.  The document is mutated generically because transforms
// change field shapes (a string example becomes an array).
func (p *Package) buildCompositeJSON(ctx context.Context, buildDir string) error {
	allowed, opts, err := p.compositeOptions("json")
	if err != nil {
		return err
	}
	if !opts.ShouldRender() {
		cliutil.Alert(cliutil.Red, "Skipping json build")
		return nil
	}

	doc, err := p.Manifest()
	if err != nil {
		return err
	}
	doc.Version, err = p.CurrentVersion()
	if err != nil {
		return err
	}
	resources, err := p.Resources()
	if err != nil {
		return err
	}
	for _, res := range resources {
		if !contains(allowed, res.Slug()) {
			continue
		}
		desc, err := res.Descriptor()
		if err != nil {
			return err
		}
		if desc.Data, err = res.InlineData(); err != nil {
			return err
		}
		doc.Resources = append(doc.Resources, *desc)
	}

	generic, err := toGenericDocument(doc)
	if err != nil {
		return err
	}
	delete(generic, "custom")

	for _, slug := range sortedKeys(opts.Modify) {
		for _, column := range sortedKeys(opts.Modify[slug]) {
			modifyType := opts.Modify[slug][column]
			if modifyType != "comma-to-array" {
				return fmt.Errorf("unrecognised modify type %q", modifyType)
			}
			if err := applyCommaToArray(generic, slug, column); err != nil {
				return err
			}
		}
	}

	body, err := json.MarshalIndent(generic, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(buildDir, p.Slug()+".json"), body, 0o644)
}

func toGenericDocument(doc *frictionless.Package) (map[string]any, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var generic map[string]any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// applyCommaToArray splits a comma-separated column into arrays across
// every data row of the named resource, and updates the field's schema
// to match.
func applyCommaToArray(doc map[string]any, slug, column string) error {
	resources, _ := doc["resources"].([]any)
	for _, r := range resources {
		resource, _ := r.(map[string]any)
		if resource == nil || resource["name"] != slug {
			continue
		}
		schema, _ := resource["schema"].(map[string]any)
		fields, _ := schema["fields"].([]any)
		for _, f := range fields {
			field, _ := f.(map[string]any)
			if field == nil || field["name"] != column {
				continue
			}
			field["type"] = "array"
			field["example"] = []any{field["example"]}
			if description, ok := field["description"].(string); ok {
				field["description"] = strings.ReplaceAll(description, "comma separated", "array")
			}
		}
		rows, _ := resource["data"].([]any)
		for _, r := range rows {
			row, _ := r.(map[string]any)
			if row == nil {
				continue
			}
			if value, ok := row[column]; ok {
				if s, ok := value.(string); ok {
					parts := strings.Split(s, ",")
					array := make([]any, len(parts))
					for i, part := range parts {
						array[i] = part
					}
					row[column] = array
				} else {
					row[column] = []any{value}
				}
			}
		}
		return nil
	}
	return fmt.Errorf("modify options name resource %q, which is not in the composite", slug)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
