package export

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	missingStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#6B7280")).Italic(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// TerminalWriter renders the table with borders for reading in a terminal.
type TerminalWriter struct {
	opts Options
}

// Write implements Writer.
func (tw *TerminalWriter) Write(w io.Writer, t *table.Table) error {
	missing := tw.opts.MissingValue
	if missing == "" {
		missing = "missing"
	}

	if tw.opts.Vertical {
		return tw.writeVertical(w, t, missing)
	}

	rows := make([][]string, 0, t.Rows())
	missingCells := make(map[[2]int]bool)
	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.Render(missing)
			if v.IsMissing() {
				missingCells[[2]int{i, j}] = true
			}
		}
		rows = append(rows, cells)
	}

	out := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(t.Columns()...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case missingCells[[2]int{row, col}]:
				return missingStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, out.Render())
	return err
}

// writeVertical renders one two-column field/value table per row.
func (tw *TerminalWriter) writeVertical(w io.Writer, t *table.Table, missing string) error {
	columns := t.Columns()
	for i := 0; i < t.Rows(); i++ {
		row, err := t.Row(i)
		if err != nil {
			return err
		}

		out := lgtable.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(borderStyle).
			Headers("field", fmt.Sprintf("row %d", i))
		for j, v := range row {
			out.Row(columns[j], v.Render(missing))
		}
		out.StyleFunc(func(row, col int) lipgloss.Style {
			if row == lgtable.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

		if _, err := fmt.Fprintln(w, out.Render()); err != nil {
			return err
		}
	}
	return nil
}
