// =============================================================================
// DMARC Report Parser - Field Dictionaries
// =============================================================================
//
// A Dictionary maps each field key of one report section to a fixed-length
// list of cell values, one per row. It is created full of Missing values and
// filled in by Populate; elements absent from the XML simply leave their slot
// Missing.
//
// =============================================================================

package dmarc

import (
	"fmt"
	"slices"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
)

// DefaultRows is the row count of report and policy dictionaries, which hold
// a single row that is later broadcast over every record.
const DefaultRows = 1

// Dictionary holds the values of one section, keyed by field key.
type Dictionary struct {
	keys   []string
	rows   int
	values map[string][]table.Value
}

// NewDictionary creates a dictionary with the given keys, each holding rows
// Missing values.
//
// PARAMETERS:
//   - keys: The field keys, in column order. Must be unique.
//   - rows: The number of rows. Must not be negative.
//
// RETURNS:
//   - A new, independent dictionary.
//   - ErrInvalidInput if rows is negative or a key repeats.
func NewDictionary(keys []string, rows int) (*Dictionary, error) {
	if rows < 0 {
		return nil, fmt.Errorf("%w: row count %d", ErrInvalidInput, rows)
	}

	d := &Dictionary{
		keys:   make([]string, 0, len(keys)),
		rows:   rows,
		values: make(map[string][]table.Value, len(keys)),
	}
	for _, key := range keys {
		if _, ok := d.values[key]; ok {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidInput, key)
		}
		d.keys = append(d.keys, key)
		// The zero Value is Missing.
		d.values[key] = make([]table.Value, rows)
	}

	return d, nil
}

// Keys returns the field keys in order.
func (d *Dictionary) Keys() []string {
	return slices.Clone(d.keys)
}

// Rows returns the fixed row count.
func (d *Dictionary) Rows() int {
	return d.rows
}

// Values returns a copy of the values stored under key.
func (d *Dictionary) Values(key string) ([]table.Value, bool) {
	values, ok := d.values[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(values), true
}

// Get returns the value of key at row.
func (d *Dictionary) Get(key string, row int) (table.Value, bool) {
	values, ok := d.values[key]
	if !ok || row < 0 || row >= d.rows {
		return table.Value{}, false
	}
	return values[row], true
}

// Populate writes the i-th walk result into row i.
//
// Keys absent from a row's pairs keep their Missing value. When the same key
// appears more than once for one row, the first occurrence in document order
// wins.
//
// PARAMETERS:
//   - rows: One TagValues per row, in row order. May be shorter than Rows().
//
// RETURNS:
//   - A *KeyMismatchError if any pair's key is not in the dictionary. Nothing
//     is written in that case.
//   - ErrInvalidInput if there are more result rows than dictionary rows.
func (d *Dictionary) Populate(rows []types.TagValues) error {
	if len(rows) > d.rows {
		return fmt.Errorf("%w: %d result rows for a %d-row dictionary", ErrInvalidInput, len(rows), d.rows)
	}

	for i, pairs := range rows {
		for _, p := range pairs {
			if _, ok := d.values[p.Key]; !ok {
				return &KeyMismatchError{Key: p.Key, Row: i}
			}
		}
	}

	for i, pairs := range rows {
		for _, p := range pairs {
			slot := &d.values[p.Key][i]
			if slot.IsMissing() {
				*slot = table.Text(p.Value)
			}
		}
	}

	return nil
}

// Equal reports whether d and other have the same keys, in the same order,
// and the same values.
func (d *Dictionary) Equal(other *Dictionary) bool {
	if d.rows != other.rows || !slices.Equal(d.keys, other.keys) {
		return false
	}
	for _, key := range d.keys {
		if !slices.EqualFunc(d.values[key], other.values[key], table.Value.Equal) {
			return false
		}
	}
	return true
}
