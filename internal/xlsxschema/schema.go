// =============================================================================
// DMARC Report Parser - Field Set Workbook
// =============================================================================
//
// This module reads and writes the field sets as an XLSX workbook, so the
// extracted columns can be maintained in a spreadsheet instead of YAML.
//
// WORKBOOK STRUCTURE (Expected Columns):
//   Column positions are configurable via the SheetLayout struct.
//
//   | Column A | Column B     | Column C | Column D     |
//   |----------|--------------|----------|--------------|
//   | Section  | Tag          | Parent   | Key          |
//   | report   | org_name     |          |              |
//   | policy   | adkim        |          |              |
//   | record   | source_ip    |          |              |
//   | record   | domain       | dkim     | dkim_domain  |
//   | record   | result       | spf      | spf_result   |
//   | record   | result       | *        |              |
//
// ROW RULES:
//   - report/policy rows add Tag to that section; Parent and Key are ignored
//   - record rows without Parent add Tag as a bare column
//   - record rows with Parent and Key add a key rule and the column Key
//   - record rows with Parent "*" mark Tag as qualified and add no column
//
// Row order is column order.
//
// =============================================================================

package xlsxschema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
)

// QualifiedParent in the Parent column marks a qualified tag.
const QualifiedParent = "*"

// DefaultSheetName is the sheet written by Save.
const DefaultSheetName = "FieldSets"

// header is the first row written by Save.
var header = []interface{}{"Section", "Tag", "Parent", "Key"}

// =============================================================================
// SHEET LAYOUT
// =============================================================================

// SheetLayout defines which columns of the sheet hold which data.
// Column indices are 0-based (A=0, B=1, C=2, etc.)
type SheetLayout struct {
	// SheetName is the sheet to read. Empty means the first sheet.
	SheetName string

	SectionColumn int
	TagColumn     int
	ParentColumn  int
	KeyColumn     int

	// DataStartRow is the row number where data begins (0-based).
	// Default: 1 (Row 2)
	DataStartRow int
}

// DefaultSheetLayout returns the layout written by Save.
func DefaultSheetLayout() SheetLayout {
	return SheetLayout{
		SectionColumn: 0, // Column A
		TagColumn:     1, // Column B
		ParentColumn:  2, // Column C
		KeyColumn:     3, // Column D
		DataStartRow:  1, // Row 2
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads field sets from the workbook at path using the default layout.
//
// PARAMETERS:
//   - path: The path to the XLSX workbook.
//
// RETURNS:
//   - The field sets described by the sheet.
//   - An error if the file cannot be read or a row is invalid.
//
// The result is not validated; pass it through validation.ValidateFieldSets.
func Load(path string) (config.FieldSets, error) {
	return LoadWithLayout(path, DefaultSheetLayout())
}

// LoadWithLayout reads field sets using a custom sheet layout.
func LoadWithLayout(path string, layout SheetLayout) (config.FieldSets, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return config.FieldSets{}, fmt.Errorf("failed to open field set workbook: %w", err)
	}
	defer f.Close()

	sheet := layout.SheetName
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return config.FieldSets{}, fmt.Errorf("field set workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return config.FieldSets{}, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	var fs config.FieldSets
	for i := layout.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if isRowEmpty(row) {
			continue
		}
		if err := addRow(&fs, parseRow(row, layout)); err != nil {
			return config.FieldSets{}, fmt.Errorf("error parsing row %d: %w", i+1, err)
		}
	}

	return fs, nil
}

// entry is one data row of the sheet.
type entry struct {
	section string
	tag     string
	parent  string
	key     string
}

func parseRow(row []string, layout SheetLayout) entry {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	return entry{
		section: getCell(layout.SectionColumn),
		tag:     getCell(layout.TagColumn),
		parent:  getCell(layout.ParentColumn),
		key:     getCell(layout.KeyColumn),
	}
}

func addRow(fs *config.FieldSets, e entry) error {
	section, err := types.ParseSection(e.section)
	if err != nil {
		return err
	}
	if e.tag == "" {
		return fmt.Errorf("missing tag for section %s", section)
	}

	switch section {
	case types.SectionReport:
		fs.Report = append(fs.Report, e.tag)
		return nil
	case types.SectionPolicy:
		fs.Policy = append(fs.Policy, e.tag)
		return nil
	}

	rf := &fs.Record
	if !slices.Contains(rf.Tags, e.tag) {
		rf.Tags = append(rf.Tags, e.tag)
	}

	switch {
	case e.parent == QualifiedParent:
		if !slices.Contains(rf.QualifiedTags, e.tag) {
			rf.QualifiedTags = append(rf.QualifiedTags, e.tag)
		}
	case e.parent == "":
		rf.Columns = append(rf.Columns, e.tag)
	case e.key == "":
		return fmt.Errorf("record tag %q under %q has no key", e.tag, e.parent)
	default:
		rf.KeyRules = append(rf.KeyRules, config.KeyRule{Parent: e.parent, Tag: e.tag, Key: e.key})
		rf.Columns = append(rf.Columns, e.key)
	}
	return nil
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes fs to a new workbook at path in the default layout.
//
// Columns produced by a qualified tag are written as explicit key rules, one
// row per column, so a saved workbook always loads back to the same columns.
// Qualified tags are also kept as "*" rows.
func Save(fs config.FieldSets, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DefaultSheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := [][]interface{}{header}
	for _, tag := range fs.Report {
		rows = append(rows, []interface{}{string(types.SectionReport), tag, "", ""})
	}
	for _, tag := range fs.Policy {
		rows = append(rows, []interface{}{string(types.SectionPolicy), tag, "", ""})
	}
	for _, e := range recordEntries(fs.Record) {
		rows = append(rows, []interface{}{string(types.SectionRecord), e.tag, e.parent, e.key})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(DefaultSheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save field set workbook: %w", err)
	}
	return nil
}

// recordEntries turns the record fields back into sheet rows.
func recordEntries(rf config.RecordFields) []entry {
	var out []entry

	for _, column := range rf.Columns {
		if i := slices.IndexFunc(rf.KeyRules, func(r config.KeyRule) bool { return r.Key == column }); i >= 0 {
			rule := rf.KeyRules[i]
			out = append(out, entry{tag: rule.Tag, parent: rule.Parent, key: rule.Key})
			continue
		}
		if parent, tag, ok := splitQualified(column, rf.QualifiedTags); ok {
			out = append(out, entry{tag: tag, parent: parent, key: column})
			continue
		}
		out = append(out, entry{tag: column})
	}

	for _, tag := range rf.QualifiedTags {
		out = append(out, entry{tag: tag, parent: QualifiedParent})
	}

	return out
}

// splitQualified reports whether column is "<parent>_<tag>" for a qualified tag.
func splitQualified(column string, qualified []string) (parent, tag string, ok bool) {
	for _, q := range qualified {
		if p, found := strings.CutSuffix(column, "_"+q); found && p != "" {
			return p, q, true
		}
	}
	return "", "", false
}
