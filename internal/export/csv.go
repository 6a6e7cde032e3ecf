package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// CSVWriter writes a header row followed by one line per table row.
type CSVWriter struct {
	opts Options
}

// Write implements Writer.
func (cw *CSVWriter) Write(w io.Writer, t *table.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns()); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(t.Columns()))
	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		for j, v := range row {
			s := v.Render(cw.opts.MissingValue)
			if cw.opts.SanitizeFormulas {
				s = sanitize(s)
			}
			record[j] = s
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
