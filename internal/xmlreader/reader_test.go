package xmlreader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const report = `<?xml version="1.0" encoding="UTF-8"?>
<feedback>
  <report_metadata><org_name>example.net</org_name></report_metadata>
</feedback>`

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// zipped builds an archive holding the given members in order.
func zipped(t *testing.T, members ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(m[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func orgName(t *testing.T, path string) string {
	t.Helper()
	doc, err := Load(path)
	require.NoError(t, err)
	el := doc.FindElement("//org_name")
	require.NotNil(t, el)
	return el.Text()
}

func TestDetect(t *testing.T) {
	assert.Equal(t, CompressionGzip, Detect(gzipped(t, []byte(report))))
	assert.Equal(t, CompressionZip, Detect(zipped(t, [2]string{"r.xml", report})))
	assert.Equal(t, CompressionNone, Detect([]byte(report)))
	assert.Equal(t, CompressionNone, Detect(nil))
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"plain", "report.xml", []byte(report)},
		{"gzip", "report.xml.gz", gzipped(t, []byte(report))},
		{"zip", "report.zip", zipped(t, [2]string{"report.xml", report})},
		{"gzip without extension", "report", gzipped(t, []byte(report))},
		{"zip prefers xml member", "report.zip", zipped(t,
			[2]string{"README.txt", "not a report"},
			[2]string{"report.XML", report},
		)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.data)
			assert.Equal(t, "example.net", orgName(t, path))
		})
	}
}

func TestLoad_DeclaredCharset(t *testing.T) {
	data := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<feedback><report_metadata><org_name>M\xfcller GmbH</org_name></report_metadata></feedback>")

	path := writeFile(t, "latin1.xml", data)
	assert.Equal(t, "Müller GmbH", orgName(t, path))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"malformed", []byte("<feedback><report_metadata></feedback>")},
		{"no root element", []byte("<!-- nothing here -->")},
		{"corrupt gzip", append([]byte{0x1f, 0x8b}, []byte("garbage")...)},
		{"empty zip", zipped(t)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.xml", tt.data)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), path)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xml"))
	assert.ErrorIs(t, err, ErrParse)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBytes(t *testing.T) {
	doc, err := LoadBytes(gzipped(t, []byte(report)))
	require.NoError(t, err)
	assert.Equal(t, "feedback", doc.Root().Tag)

	_, err = LoadBytes([]byte("not xml at all <"))
	assert.ErrorIs(t, err, ErrParse)
}
