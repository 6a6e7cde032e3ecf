// =============================================================================
// DMARC Report Parser - Column Transformations
// =============================================================================
//
// This module provides the per-cell transformations used by the formatter.
// A Rule binds a Transform to one column; a Formatter applies its rules in
// order.
//
// TRANSFORMATION TYPES:
//   - EpochSeconds : "1646697600" -> 2022-03-08T00:00:00Z
//   - Lookup       : "r" -> "Relaxed" (unknown values pass through)
//
// Every transform leaves Missing cells Missing.
//
// =============================================================================

package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// ErrMalformedTimestamp is wrapped when a timestamp cell is not an integer
// number of seconds.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// MalformedTimestampError names the cell that failed to parse.
type MalformedTimestampError struct {
	Column string
	Row    int
	Value  string
	Err    error
}

func (e *MalformedTimestampError) Error() string {
	return fmt.Sprintf("%v: column %q row %d: %q", ErrMalformedTimestamp, e.Column, e.Row, e.Value)
}

func (e *MalformedTimestampError) Unwrap() []error {
	return []error{ErrMalformedTimestamp, e.Err}
}

// =============================================================================
// TRANSFORMS
// =============================================================================

// Transform rewrites one cell of column at row.
type Transform func(column string, row int, v table.Value) (table.Value, error)

// Rule applies Transform to every cell of Column.
type Rule struct {
	Column    string
	Transform Transform
}

// EpochSeconds parses Unix epoch seconds into a time in loc. Cells that
// already hold a time are kept.
func EpochSeconds(loc *time.Location) Transform {
	if loc == nil {
		loc = time.UTC
	}
	return func(column string, row int, v table.Value) (table.Value, error) {
		if _, ok := v.AsTime(); ok || v.IsMissing() {
			return v, nil
		}
		text, _ := v.AsText()
		secs, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return v, &MalformedTimestampError{Column: column, Row: row, Value: text, Err: err}
		}
		return table.Time(time.Unix(secs, 0).In(loc)), nil
	}
}

// Lookup replaces text found in labels. Other values, including values that
// are already labels, pass through unchanged.
func Lookup(labels map[string]string) Transform {
	return func(_ string, _ int, v table.Value) (table.Value, error) {
		text, ok := v.AsText()
		if !ok {
			return v, nil
		}
		if label, found := labels[text]; found {
			return table.Text(label), nil
		}
		return v, nil
	}
}

// apply runs rule over its column, returning the new column values.
func (r Rule) apply(values []table.Value) ([]table.Value, error) {
	out := make([]table.Value, len(values))
	for i, v := range values {
		nv, err := r.Transform(r.Column, i, v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}
