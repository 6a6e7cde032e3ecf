// Package dmarc flattens DMARC aggregate reports into tables.
//
// A report has one <report_metadata>, one <policy_published> and any number
// of <record> elements. The resulting table has one row per record; report
// and policy fields are repeated on every row.
//
//	p, err := dmarc.NewParser(config.DefaultFieldSets())
//	raw, err := p.ParseFile("google.com!example.org!1646697600!1646784000.xml")
package dmarc

import (
	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/format"
	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// Raw parses the report at filePath with the default field sets.
func Raw(filePath string) (*table.Table, error) {
	p, err := NewParser(config.DefaultFieldSets())
	if err != nil {
		return nil, err
	}
	return p.ParseFile(filePath)
}

// Formatted parses the report at filePath with the default field sets and
// applies the default formatting.
func Formatted(filePath string) (*table.Table, error) {
	raw, err := Raw(filePath)
	if err != nil {
		return nil, err
	}
	return format.New(format.DefaultOptions()).Format(raw)
}
