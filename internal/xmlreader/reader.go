// =============================================================================
// DMARC Report Parser - XML Reader Module
// =============================================================================
//
// This module loads a DMARC aggregate report from disk into an etree
// document. Mail providers deliver reports in several shapes, all of which
// are handled here:
//   - Plain XML (report.xml)
//   - Gzip-compressed XML (report.xml.gz)
//   - Zip archives holding one XML report (report.zip)
//
// The compression is detected from the leading magic bytes, not the file
// extension. Non-UTF-8 encodings declared in the XML prolog are decoded
// through golang.org/x/net/html/charset.
//
// ERROR HANDLING:
//   Every failure to read or decode the document wraps ErrParse together with
//   the file path. Malformed XML is not repaired.
//
// =============================================================================

package xmlreader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"golang.org/x/net/html/charset"
)

// ErrParse indicates the input could not be read as an XML document.
var ErrParse = errors.New("failed to parse XML report")

// =============================================================================
// COMPRESSION DETECTION
// =============================================================================

// Compression identifies how a report file is packed.
type Compression int

const (
	// CompressionNone is a plain XML file.
	CompressionNone Compression = iota

	// CompressionGzip is a gzip stream.
	CompressionGzip

	// CompressionZip is a zip archive.
	CompressionZip
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zipMagic  = []byte("PK\x03\x04")
)

// Detect returns the compression of data from its leading bytes.
func Detect(head []byte) Compression {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return CompressionGzip
	case bytes.HasPrefix(head, zipMagic):
		return CompressionZip
	default:
		return CompressionNone
	}
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads a report file and returns the parsed document.
//
// PARAMETERS:
//   - filePath: The path to a .xml, .gz or .zip report.
//
// RETURNS:
//   - The parsed document. Its Root() is never nil.
//   - An error wrapping ErrParse if the file cannot be read or parsed.
func Load(filePath string) (*etree.Document, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, filePath, err)
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	head, _ := reader.Peek(len(zipMagic))

	var doc *etree.Document
	switch Detect(head) {
	case CompressionZip:
		info, statErr := file.Stat()
		if statErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParse, filePath, statErr)
		}
		doc, err = readZip(file, info.Size())
	case CompressionGzip:
		doc, err = readGzip(reader)
	default:
		doc, err = read(reader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrParse, filePath, err)
	}

	return doc, nil
}

// LoadBytes parses an in-memory report, compressed or not.
func LoadBytes(data []byte) (*etree.Document, error) {
	var (
		doc *etree.Document
		err error
	)
	switch Detect(data) {
	case CompressionZip:
		doc, err = readZip(bytes.NewReader(data), int64(len(data)))
	case CompressionGzip:
		doc, err = readGzip(bytes.NewReader(data))
	default:
		doc, err = read(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return doc, nil
}

// read parses plain XML from r.
func read(r io.Reader) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel

	if _, err := doc.ReadFrom(r); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}

	return doc, nil
}

func readGzip(r io.Reader) (*etree.Document, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	return read(gz)
}

// readZip parses the first .xml member of a zip archive. Archives without an
// .xml member fall back to their first regular file.
func readZip(r io.ReaderAt, size int64) (*etree.Document, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("zip: %w", err)
	}

	var member *zip.File
	for _, f := range archive.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if member == nil {
			member = f
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".xml") {
			member = f
			break
		}
	}
	if member == nil {
		return nil, errors.New("zip: archive is empty")
	}

	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("zip: %s: %w", member.Name, err)
	}
	defer rc.Close()

	return read(rc)
}
