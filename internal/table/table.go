// =============================================================================
// DMARC Report Parser - Tables
// =============================================================================
//
// A Table is an ordered set of named columns that all have the same number of
// rows. It is the in-memory shape of both the raw (consolidated) report and
// the formatted report.
//
// INVARIANTS:
//   - Column names are unique.
//   - Every column holds exactly Rows() values.
//   - Column order is insertion order.
//
// =============================================================================

package table

import (
	"errors"
	"fmt"
	"slices"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrColumnExists is returned when adding a column whose name is taken.
	ErrColumnExists = errors.New("column already exists")

	// ErrUnknownColumn is returned when a column name is not in the table.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrLengthMismatch is returned when a column does not match the row count.
	ErrLengthMismatch = errors.New("column length does not match row count")

	// ErrRowOutOfRange is returned for a row index outside [0, Rows()).
	ErrRowOutOfRange = errors.New("row index out of range")
)

// =============================================================================
// TABLE
// =============================================================================

// Table holds report data column by column.
type Table struct {
	rows    int
	columns []string
	cells   map[string][]Value
}

// New creates a table with the given row count and no columns.
func New(rows int) (*Table, error) {
	if rows < 0 {
		return nil, fmt.Errorf("%w: negative row count %d", ErrLengthMismatch, rows)
	}
	return &Table{
		rows:  rows,
		cells: make(map[string][]Value),
	}, nil
}

// NewEmpty creates a zero-row table with the given columns.
//
// PARAMETERS:
//   - columns: The column names, in display order. Duplicates are ignored.
//
// RETURNS:
//   - A table with each column present and holding no values.
func NewEmpty(columns []string) *Table {
	t := &Table{cells: make(map[string][]Value, len(columns))}
	for _, name := range columns {
		if _, ok := t.cells[name]; ok {
			continue
		}
		t.columns = append(t.columns, name)
		t.cells[name] = []Value{}
	}
	return t
}

// Rows returns the number of rows.
func (t *Table) Rows() int {
	return t.rows
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether the table has a column named name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cells[name]
	return ok
}

// AddColumn appends a column. The values are copied.
func (t *Table) AddColumn(name string, values []Value) error {
	if _, ok := t.cells[name]; ok {
		return fmt.Errorf("%w: %q", ErrColumnExists, name)
	}
	if len(values) != t.rows {
		return fmt.Errorf("%w: column %q has %d values, table has %d rows",
			ErrLengthMismatch, name, len(values), t.rows)
	}
	t.columns = append(t.columns, name)
	t.cells[name] = slices.Clone(values)
	return nil
}

// ReplaceColumn swaps the values of an existing column, keeping its position.
func (t *Table) ReplaceColumn(name string, values []Value) error {
	if _, ok := t.cells[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if len(values) != t.rows {
		return fmt.Errorf("%w: column %q has %d values, table has %d rows",
			ErrLengthMismatch, name, len(values), t.rows)
	}
	t.cells[name] = slices.Clone(values)
	return nil
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	values, ok := t.cells[name]
	if !ok {
		return nil, false
	}
	return slices.Clone(values), true
}

// Cell returns the value at the given column and row.
func (t *Table) Cell(name string, row int) (Value, error) {
	values, ok := t.cells[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if row < 0 || row >= t.rows {
		return Value{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	return values[row], nil
}

// Set stores v at the given column and row.
func (t *Table) Set(name string, row int, v Value) error {
	values, ok := t.cells[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	if row < 0 || row >= t.rows {
		return fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	values[row] = v
	return nil
}

// Row returns the values of one row in column order.
func (t *Table) Row(row int) ([]Value, error) {
	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	out := make([]Value, len(t.columns))
	for i, name := range t.columns {
		out[i] = t.cells[name][row]
	}
	return out, nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	c := &Table{
		rows:    t.rows,
		columns: slices.Clone(t.columns),
		cells:   make(map[string][]Value, len(t.cells)),
	}
	for name, values := range t.cells {
		c.cells[name] = slices.Clone(values)
	}
	return c
}

// Concat stacks tables with identical columns into one. Rows keep their
// order: all rows of the first table, then the second, and so on.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(0)
	}

	first := tables[0]
	out := &Table{
		columns: slices.Clone(first.columns),
		cells:   make(map[string][]Value, len(first.columns)),
	}
	for _, t := range tables {
		if !slices.Equal(t.columns, first.columns) {
			return nil, fmt.Errorf("%w: tables have different columns", ErrUnknownColumn)
		}
		out.rows += t.rows
	}
	for _, name := range out.columns {
		values := make([]Value, 0, out.rows)
		for _, t := range tables {
			values = append(values, t.cells[name]...)
		}
		out.cells[name] = values
	}
	return out, nil
}
