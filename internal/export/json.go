package export

import (
	"fmt"
	"io"

	"github.com/go-json-experiment/json/jsontext"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// JSONWriter writes an array with one object per row. Keys follow column
// order; missing cells are null so they stay distinct from empty strings.
type JSONWriter struct {
	opts Options
}

// Write implements Writer.
func (jw *JSONWriter) Write(w io.Writer, t *table.Table) error {
	enc := jsontext.NewEncoder(w, jsontext.WithIndent(jw.opts.Indent))
	columns := t.Columns()

	if err := enc.WriteToken(jsontext.BeginArray); err != nil {
		return err
	}
	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for j, v := range row {
			if err := enc.WriteToken(jsontext.String(columns[j])); err != nil {
				return err
			}
			if err := enc.WriteToken(jsonToken(v)); err != nil {
				return fmt.Errorf("row %d column %q: %w", i, columns[j], err)
			}
		}
		if err := enc.WriteToken(jsontext.EndObject); err != nil {
			return err
		}
	}
	return enc.WriteToken(jsontext.EndArray)
}

func jsonToken(v table.Value) jsontext.Token {
	if v.IsMissing() {
		return jsontext.Null
	}
	return jsontext.String(v.Render(""))
}
