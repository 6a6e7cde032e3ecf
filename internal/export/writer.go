// =============================================================================
// DMARC Report Parser - Output Writers
// =============================================================================
//
// This module writes report tables in the supported output formats:
//   - csv   : one header row, one line per record
//   - json  : an array of objects, missing cells as null
//   - xlsx  : one worksheet, header row, date cells for timestamps
//   - xml   : <records><row n="1">...</row></records>, missing cells omitted
//   - table : a bordered table for the terminal
//
// =============================================================================

package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// Writer encodes a table onto w.
type Writer interface {
	Write(w io.Writer, t *table.Table) error
}

// Options configures the writers. Not every writer uses every option.
type Options struct {
	// MissingValue is written for missing cells by csv, xlsx and table.
	// Default: ""
	MissingValue string

	// SanitizeFormulas prefixes values starting with = + - @ with a quote so
	// spreadsheet applications do not evaluate them (csv and xlsx).
	// Default: true
	SanitizeFormulas bool

	// SheetName is the xlsx worksheet name.
	// Default: "DMARC"
	SheetName string

	// Indent is the json and xml indentation.
	// Default: "  "
	Indent string

	// Vertical renders the terminal table as one field/value block per row.
	Vertical bool
}

// DefaultOptions returns the default writer options.
func DefaultOptions() Options {
	return Options{
		SanitizeFormulas: true,
		SheetName:        "DMARC",
		Indent:           "  ",
	}
}

// Formats lists the supported format names.
var Formats = []string{"csv", "json", "xlsx", "xml", "table"}

// New returns the writer for format.
func New(format string, opts Options) (Writer, error) {
	if opts.SheetName == "" {
		opts.SheetName = "DMARC"
	}
	if opts.Indent == "" {
		opts.Indent = "  "
	}

	switch strings.ToLower(format) {
	case "csv":
		return &CSVWriter{opts: opts}, nil
	case "json":
		return &JSONWriter{opts: opts}, nil
	case "xlsx":
		return &XLSXWriter{opts: opts}, nil
	case "xml":
		return &XMLWriter{opts: opts}, nil
	case "table":
		return &TerminalWriter{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// Extension returns the file extension for format, including the dot.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "table":
		return ".txt"
	default:
		return "." + strings.ToLower(format)
	}
}

// sanitize neutralises spreadsheet formulas.
func sanitize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
