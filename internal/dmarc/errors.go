package dmarc

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/dmarc-report-parser/internal/xmlreader"
)

// Errors returned by the parser. Use errors.Is to check for them; they are
// always wrapped with the file path or offending key.
var (
	// ErrParse indicates the input could not be read as XML.
	ErrParse = xmlreader.ErrParse

	// ErrEmptyReport indicates the report holds no <record> elements, so
	// there is no row to broadcast report and policy fields onto.
	ErrEmptyReport = errors.New("report contains no records")

	// ErrKeyMismatch indicates a walker produced a key that the destination
	// dictionary does not have. The configured field sets no longer match
	// the documents being parsed.
	ErrKeyMismatch = errors.New("field key not in dictionary")

	// ErrInvalidInput indicates a caller passed an invalid argument, such as
	// a negative row count.
	ErrInvalidInput = errors.New("invalid input")
)

// KeyMismatchError reports the key and row that did not fit the dictionary.
type KeyMismatchError struct {
	Key string
	Row int
}

func (e *KeyMismatchError) Error() string {
	return fmt.Sprintf("%v: %q (row %d)", ErrKeyMismatch, e.Key, e.Row)
}

func (e *KeyMismatchError) Unwrap() error {
	return ErrKeyMismatch
}
