// =============================================================================
// DMARC Report Parser - Formatter
// =============================================================================
//
// The formatter turns a raw report table into a human-readable one:
//   1. begin/end epoch seconds become date-times
//   2. adkim/aspf codes become "Relaxed"/"Strict"
//   3. an "id" column is appended: row index followed by the report id
//
// The input table is never modified. Formatting a formatted table again
// yields the same values.
//
// =============================================================================

package format

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// Options configures a Formatter.
type Options struct {
	// Location is the zone of parsed timestamps. nil means UTC.
	Location *time.Location

	// TimestampColumns hold Unix epoch seconds.
	TimestampColumns []string

	// AlignmentColumns hold alignment codes mapped through AlignmentLabels.
	AlignmentColumns []string

	// AlignmentLabels maps codes to labels.
	AlignmentLabels map[string]string

	// IDColumn is the name of the appended id column. Empty disables it.
	IDColumn string

	// ReportIDColumn is combined with the row index into the id.
	ReportIDColumn string
}

// DefaultOptions returns the options matching config.DefaultFormatting.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.DefaultFormatting())
	return opts
}

// OptionsFromConfig converts the formatting configuration.
func OptionsFromConfig(c config.Formatting) (Options, error) {
	loc := time.UTC
	if c.TimeZone != "" {
		var err error
		loc, err = time.LoadLocation(c.TimeZone)
		if err != nil {
			return Options{}, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
		}
	}
	return Options{
		Location:         loc,
		TimestampColumns: c.TimestampColumns,
		AlignmentColumns: c.AlignmentColumns,
		AlignmentLabels:  c.AlignmentLabels,
		IDColumn:         c.IDColumn,
		ReportIDColumn:   c.ReportIDColumn,
	}, nil
}

// Formatter applies the formatting rules to report tables.
type Formatter struct {
	rules          []Rule
	idColumn       string
	reportIDColumn string
}

// New creates a Formatter.
func New(opts Options) *Formatter {
	f := &Formatter{
		idColumn:       opts.IDColumn,
		reportIDColumn: opts.ReportIDColumn,
	}

	epoch := EpochSeconds(opts.Location)
	for _, col := range opts.TimestampColumns {
		f.rules = append(f.rules, Rule{Column: col, Transform: epoch})
	}
	lookup := Lookup(opts.AlignmentLabels)
	for _, col := range opts.AlignmentColumns {
		f.rules = append(f.rules, Rule{Column: col, Transform: lookup})
	}

	return f
}

// Format returns a formatted copy of t.
//
// RETURNS:
//   - The formatted table.
//   - A *MalformedTimestampError if a timestamp cell is not numeric.
func (f *Formatter) Format(t *table.Table) (*table.Table, error) {
	out := t.Clone()

	// Columns that are not in the table are skipped.
	for _, rule := range f.rules {
		values, ok := out.Column(rule.Column)
		if !ok {
			continue
		}
		formatted, err := rule.apply(values)
		if err != nil {
			return nil, err
		}
		if err := out.ReplaceColumn(rule.Column, formatted); err != nil {
			return nil, err
		}
	}

	if f.idColumn == "" {
		return out, nil
	}

	ids := f.ids(out)
	if out.HasColumn(f.idColumn) {
		if err := out.ReplaceColumn(f.idColumn, ids); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := out.AddColumn(f.idColumn, ids); err != nil {
		return nil, err
	}

	return out, nil
}

// ids builds the id column: row index followed by the row's report id.
func (f *Formatter) ids(t *table.Table) []table.Value {
	reportIDs, _ := t.Column(f.reportIDColumn)

	ids := make([]table.Value, t.Rows())
	for i := range ids {
		id := strconv.Itoa(i)
		if i < len(reportIDs) {
			if text, ok := reportIDs[i].AsText(); ok {
				id += text
			}
		}
		ids[i] = table.Text(id)
	}
	return ids
}
