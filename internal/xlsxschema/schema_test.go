package xlsxschema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/validation"
)

// writeSheet saves rows to a new single-sheet workbook.
func writeSheet(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName(f.GetSheetName(0), sheet))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "fields.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestSaveLoad_DefaultFieldSets(t *testing.T) {
	want := config.DefaultFieldSets()
	path := filepath.Join(t.TempDir(), "fields.xlsx")

	require.NoError(t, Save(want, path))
	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, want.Report, got.Report)
	assert.Equal(t, want.Policy, got.Policy)
	assert.Equal(t, want.Columns(), got.Columns())
	assert.ElementsMatch(t, want.Record.Tags, got.Record.Tags)
	assert.Equal(t, want.Record.QualifiedTags, got.Record.QualifiedTags)
	assert.Subset(t, got.Record.KeyRules, want.Record.KeyRules)
	assert.Contains(t, got.Record.KeyRules, config.KeyRule{Parent: "spf", Tag: "result", Key: "spf_result"})
	assert.NoError(t, validation.ValidateFieldSets(got))
}

func TestLoad_Rows(t *testing.T) {
	path := writeSheet(t, "Custom", [][]interface{}{
		header,
		{"Report", "org_name"},
		{"policy", " domain ", "ignored", "ignored"},
		{},
		{"record", "source_ip"},
		{"record", "domain", "dkim", "dkim_domain"},
		{"record", "result", "*"},
		{"record", "result", "dkim", "dkim_result"},
	})

	fs, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"org_name"}, fs.Report)
	assert.Equal(t, []string{"domain"}, fs.Policy)
	assert.Equal(t, []string{"source_ip", "domain", "result"}, fs.Record.Tags)
	assert.Equal(t, []string{"source_ip", "dkim_domain", "dkim_result"}, fs.Record.Columns)
	assert.Equal(t, []string{"result"}, fs.Record.QualifiedTags)
	assert.Equal(t, []config.KeyRule{
		{Parent: "dkim", Tag: "domain", Key: "dkim_domain"},
		{Parent: "dkim", Tag: "result", Key: "dkim_result"},
	}, fs.Record.KeyRules)
}

func TestLoad_InvalidRows(t *testing.T) {
	tests := []struct {
		name string
		row  []interface{}
		msg  string
	}{
		{"parent without key", []interface{}{"record", "domain", "dkim"}, "has no key"},
		{"unknown section", []interface{}{"auth", "domain"}, "unknown section"},
		{"missing tag", []interface{}{"policy", ""}, "missing tag"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSheet(t, DefaultSheetName, [][]interface{}{header, {"report", "org_name"}, tt.row})

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 3")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadWithLayout(t *testing.T) {
	path := writeSheet(t, "Layout", [][]interface{}{
		{"notes", "Tag", "Section"},
		{"first", "org_name", "report"},
		{"", "p", "policy"},
	})

	fs, err := LoadWithLayout(path, SheetLayout{
		SheetName:     "Layout",
		SectionColumn: 2,
		TagColumn:     1,
		ParentColumn:  3,
		KeyColumn:     4,
		DataStartRow:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"org_name"}, fs.Report)
	assert.Equal(t, []string{"p"}, fs.Policy)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}
