// =============================================================================
// DMARC Report Parser - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - config
//   - dmarc
//   - xlsxschema
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// REPORT SECTIONS
// =============================================================================

// Section names one of the three parts of an aggregate report.
type Section string

const (
	// SectionReport is the <report_metadata> block.
	SectionReport Section = "report"

	// SectionPolicy is the <policy_published> block.
	SectionPolicy Section = "policy"

	// SectionRecord is one <record> block.
	SectionRecord Section = "record"
)

// Sections lists all sections in table column order.
var Sections = []Section{SectionReport, SectionPolicy, SectionRecord}

// ParseSection converts a string such as "Report" or "record" to a Section.
func ParseSection(s string) (Section, error) {
	switch Section(normalize(s)) {
	case SectionReport:
		return SectionReport, nil
	case SectionPolicy:
		return SectionPolicy, nil
	case SectionRecord:
		return SectionRecord, nil
	default:
		return "", fmt.Errorf("unknown section %q", s)
	}
}

// =============================================================================
// TAG VALUES
// =============================================================================

// Pair is one extracted (field key, raw text) pair.
type Pair struct {
	// Key is the column the value belongs to.
	Key string

	// Value is the element text, trimmed. Empty elements yield "".
	Value string
}

// TagValues is the output of one walk over one section node, in document
// order.
type TagValues []Pair

// Keys returns the keys of the pairs in order.
func (tv TagValues) Keys() []string {
	keys := make([]string, len(tv))
	for i, p := range tv {
		keys[i] = p.Key
	}
	return keys
}

// Lookup returns the first value stored under key.
func (tv TagValues) Lookup(key string) (string, bool) {
	for _, p := range tv {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
