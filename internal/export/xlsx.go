package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// XLSXWriter writes the table to a single worksheet. Time cells are stored
// as spreadsheet dates; text cells as strings.
type XLSXWriter struct {
	opts Options
}

// Write implements Writer.
func (xw *XLSXWriter) Write(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := xw.opts.SheetName
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, 0, len(t.Columns()))
	for _, name := range t.Columns() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := xw.setCell(f, sheet, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (xw *XLSXWriter) setCell(f *excelize.File, sheet, cell string, v table.Value) error {
	if ts, ok := v.AsTime(); ok {
		return f.SetCellValue(sheet, cell, ts)
	}
	if v.IsMissing() && xw.opts.MissingValue == "" {
		return nil
	}
	s := v.Render(xw.opts.MissingValue)
	if xw.opts.SanitizeFormulas {
		s = sanitize(s)
	}
	return f.SetCellStr(sheet, cell, s)
}
