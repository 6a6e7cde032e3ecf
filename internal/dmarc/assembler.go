// =============================================================================
// DMARC Report Parser - Report Assembler
// =============================================================================
//
// This module turns one aggregate report into one table.
//
// ASSEMBLY PIPELINE:
//   1. Load the file into an etree document (internal/xmlreader)
//   2. Locate <report_metadata>, <policy_published> and every <record>
//   3. Walk report and policy once each into single-row dictionaries
//   4. Walk every record into a dictionary with one row per record
//   5. Join: broadcast report and policy row 0 over all record rows
//
// CONCURRENCY:
//   Records can be walked by a bounded set of goroutines. Each goroutine
//   reads its own <record> subtree and writes only its own result slot, and
//   the slots are read after every walk has finished, so row order always
//   follows document order.
//
// =============================================================================

package dmarc

import (
	"fmt"
	"sync"

	"github.com/beevik/etree"
	"go.uber.org/zap"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
	"github.com/ginjaninja78/dmarc-report-parser/internal/validation"
	"github.com/ginjaninja78/dmarc-report-parser/internal/xmlreader"
)

// Element names of an aggregate report.
const (
	TagFeedback        = "feedback"
	TagReportMetadata  = "report_metadata"
	TagPolicyPublished = "policy_published"
	TagRecord          = "record"
)

// =============================================================================
// PARSER
// =============================================================================

// Parser converts aggregate reports into tables using one set of field sets.
// A Parser holds no per-report state and may be shared between goroutines.
type Parser struct {
	fields      config.FieldSets
	keys        *KeyResolver
	logger      *zap.Logger
	concurrency int
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithConcurrency sets how many records are walked in parallel.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(p *Parser) {
		if n < 1 {
			n = 1
		}
		p.concurrency = n
	}
}

// NewParser validates the field sets and returns a Parser.
func NewParser(fields config.FieldSets, opts ...Option) (*Parser, error) {
	if err := validation.ValidateFieldSets(fields); err != nil {
		return nil, err
	}

	p := &Parser{
		fields:      fields.Clone(),
		keys:        NewKeyResolver(fields.Record),
		logger:      zap.NewNop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Fields returns a copy of the parser's field sets.
func (p *Parser) Fields() config.FieldSets {
	return p.fields.Clone()
}

// ParseFile loads and assembles the report at filePath.
//
// RETURNS:
//   - The consolidated table, one row per record.
//   - An error wrapping ErrParse, ErrEmptyReport or ErrKeyMismatch. No
//     partial table is returned with an error.
func (p *Parser) ParseFile(filePath string) (*table.Table, error) {
	doc, err := xmlreader.Load(filePath)
	if err != nil {
		return nil, err
	}

	t, err := p.Assemble(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}

	p.logger.Debug("parsed report",
		zap.String("file", filePath),
		zap.Int("records", t.Rows()),
		zap.Int("columns", len(t.Columns())),
	)

	return t, nil
}

// ParseBytes assembles an in-memory report.
func (p *Parser) ParseBytes(data []byte) (*table.Table, error) {
	doc, err := xmlreader.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Assemble(doc)
}

// Assemble builds the consolidated table from a parsed document.
func (p *Parser) Assemble(doc *etree.Document) (*table.Table, error) {
	sections, err := p.Sections(doc)
	if err != nil {
		return nil, err
	}
	return Join(sections)
}

// =============================================================================
// SECTIONS
// =============================================================================

// Sections holds the populated dictionaries of one report.
type Sections struct {
	// Report has DefaultRows rows.
	Report *Dictionary

	// Policy has DefaultRows rows.
	Policy *Dictionary

	// Record has one row per <record>.
	Record *Dictionary
}

// Sections locates, walks and populates the three sections of doc.
func (p *Parser) Sections(doc *etree.Document) (*Sections, error) {
	if doc == nil || doc.Root() == nil {
		return nil, fmt.Errorf("%w: document has no root element", ErrParse)
	}
	root := doc.Root()
	if root.Tag != TagFeedback {
		return nil, fmt.Errorf("%w: root element is <%s>, want <%s>", ErrParse, root.Tag, TagFeedback)
	}

	records := root.SelectElements(TagRecord)
	if len(records) == 0 {
		return nil, ErrEmptyReport
	}

	report, err := p.section(root, TagReportMetadata, types.SectionReport, p.fields.Report)
	if err != nil {
		return nil, err
	}
	policy, err := p.section(root, TagPolicyPublished, types.SectionPolicy, p.fields.Policy)
	if err != nil {
		return nil, err
	}

	record, err := NewDictionary(p.fields.Record.Columns, len(records))
	if err != nil {
		return nil, err
	}
	if err := record.Populate(p.walkRecords(records)); err != nil {
		return nil, fmt.Errorf("%s section: %w", types.SectionRecord, err)
	}

	return &Sections{Report: report, Policy: policy, Record: record}, nil
}

// section walks the single element tag under root into a one-row dictionary.
// A missing element leaves every key Missing.
func (p *Parser) section(root *etree.Element, tag string, section types.Section, keys []string) (*Dictionary, error) {
	d, err := NewDictionary(keys, DefaultRows)
	if err != nil {
		return nil, err
	}

	node := root.SelectElement(tag)
	if node == nil {
		p.logger.Warn("report section not found", zap.String("element", tag))
		return d, nil
	}

	if err := d.Populate([]types.TagValues{Walk(node, keys)}); err != nil {
		return nil, fmt.Errorf("%s section: %w", section, err)
	}
	return d, nil
}

// walkRecords walks every record, preserving document order.
func (p *Parser) walkRecords(records []*etree.Element) []types.TagValues {
	results := make([]types.TagValues, len(records))
	tags := p.fields.Record.Tags

	if p.concurrency <= 1 || len(records) == 1 {
		for i, record := range records {
			results[i] = WalkRecord(record, tags, p.keys)
		}
		return results
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.concurrency)
	for i, record := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, record *etree.Element) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = WalkRecord(record, tags, p.keys)
		}(i, record)
	}
	wg.Wait()

	return results
}

// =============================================================================
// JOIN
// =============================================================================

// Join builds the consolidated table. Report and policy values at row 0 are
// replicated onto every record row; record values keep their row.
func Join(s *Sections) (*table.Table, error) {
	rows := s.Record.Rows()
	if rows == 0 {
		return nil, ErrEmptyReport
	}

	t, err := table.New(rows)
	if err != nil {
		return nil, err
	}

	for _, d := range []*Dictionary{s.Report, s.Policy} {
		for _, key := range d.Keys() {
			v, _ := d.Get(key, 0)
			if err := t.AddColumn(key, broadcast(v, rows)); err != nil {
				return nil, err
			}
		}
	}
	for _, key := range s.Record.Keys() {
		values, _ := s.Record.Values(key)
		if err := t.AddColumn(key, values); err != nil {
			return nil, err
		}
	}

	return t, nil
}

func broadcast(v table.Value, n int) []table.Value {
	out := make([]table.Value, n)
	for i := range out {
		out[i] = v
	}
	return out
}
