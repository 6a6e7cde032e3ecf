// =============================================================================
// DMARC Report Parser - Cell Values
// =============================================================================
//
// Every cell of a report table holds a Value. A Value is one of:
//   - Missing : the element was absent from the XML document
//   - Text    : raw text content (possibly the empty string)
//   - Time    : a date-time produced by the formatter
//
// Missing and Text("") are deliberately different: an empty element such as
// <sp></sp> is present-but-empty, while an element that never appeared is
// missing.
//
// =============================================================================

package table

import "time"

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	// KindMissing marks a cell whose element was not found.
	KindMissing Kind = iota

	// KindText marks a cell holding raw text.
	KindText

	// KindTime marks a cell holding a parsed date-time.
	KindTime
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Value is a single table cell. The zero Value is Missing.
type Value struct {
	kind Kind
	text string
	time time.Time
}

// Missing returns the missing-data sentinel.
func Missing() Value {
	return Value{}
}

// Text returns a present text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Time returns a present date-time value.
func Time(t time.Time) Value {
	return Value{kind: KindTime, time: t}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind {
	return v.kind
}

// IsMissing reports whether v is the missing sentinel.
func (v Value) IsMissing() bool {
	return v.kind == KindMissing
}

// AsText returns the text of v and whether v holds text.
func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsTime returns the time of v and whether v holds a time.
func (v Value) AsTime() (time.Time, bool) {
	return v.time, v.kind == KindTime
}

// Render returns a display string for v. Missing renders as missingText and
// times render in RFC 3339.
func (v Value) Render(missingText string) string {
	switch v.kind {
	case KindText:
		return v.text
	case KindTime:
		return v.time.Format(time.RFC3339)
	default:
		return missingText
	}
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return v.Render("missing")
}

// Equal reports whether v and other hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == other.text
	case KindTime:
		return v.time.Equal(other.time)
	default:
		return true
	}
}
