package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
)

// sample is a two-row table with a time column, an empty cell, a missing
// cell and a formula-like value.
func sample(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(2)
	require.NoError(t, err)

	begin := table.Time(time.Date(2022, 3, 8, 0, 0, 0, 0, time.UTC))
	require.NoError(t, tbl.AddColumn("org_name", []table.Value{table.Text("Outlook.com"), table.Text("=HYPERLINK()")}))
	require.NoError(t, tbl.AddColumn("begin", []table.Value{begin, begin}))
	require.NoError(t, tbl.AddColumn("sp", []table.Value{table.Text(""), table.Text("")}))
	require.NoError(t, tbl.AddColumn("reason", []table.Value{table.Missing(), table.Text("local_policy")}))
	require.NoError(t, tbl.AddColumn("id", []table.Value{table.Text("0abc"), table.Text("1abc")}))
	return tbl
}

func write(t *testing.T, format string, opts Options, tbl *table.Table) []byte {
	t.Helper()
	w, err := New(format, opts)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf, tbl))
	return buf.Bytes()
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New("pdf", DefaultOptions())
	assert.Error(t, err)

	for _, format := range Formats {
		w, err := New(strings.ToUpper(format), Options{})
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}
}

func TestExtension(t *testing.T) {
	assert.Equal(t, ".csv", Extension("csv"))
	assert.Equal(t, ".json", Extension("JSON"))
	assert.Equal(t, ".xlsx", Extension("xlsx"))
	assert.Equal(t, ".xml", Extension("xml"))
	assert.Equal(t, ".txt", Extension("table"))
}

func TestCSVWriter(t *testing.T) {
	opts := DefaultOptions()
	opts.MissingValue = "N/A"

	records, err := csv.NewReader(bytes.NewReader(write(t, "csv", opts, sample(t)))).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, []string{"org_name", "begin", "sp", "reason", "id"}, records[0])
	assert.Equal(t, []string{"Outlook.com", "2022-03-08T00:00:00Z", "", "N/A", "0abc"}, records[1])
	assert.Equal(t, "'=HYPERLINK()", records[2][0])
	assert.Equal(t, "local_policy", records[2][3])
}

func TestCSVWriter_NoSanitize(t *testing.T) {
	records, err := csv.NewReader(bytes.NewReader(write(t, "csv", Options{}, sample(t)))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "=HYPERLINK()", records[2][0])
	assert.Equal(t, "", records[1][3])
}

func TestJSONWriter(t *testing.T) {
	out := write(t, "json", DefaultOptions(), sample(t))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(out, &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, "Outlook.com", rows[0]["org_name"])
	assert.Equal(t, "2022-03-08T00:00:00Z", rows[0]["begin"])
	assert.Equal(t, "", rows[0]["sp"])
	assert.Contains(t, rows[0], "reason")
	assert.Nil(t, rows[0]["reason"], "missing cells are null")
	assert.Equal(t, "=HYPERLINK()", rows[1]["org_name"], "json values are not sanitized")

	s := string(out)
	assert.Less(t, strings.Index(s, `"org_name"`), strings.Index(s, `"id"`), "keys follow column order")
}

func TestXMLWriter(t *testing.T) {
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(write(t, "xml", DefaultOptions(), sample(t))))

	root := doc.Root()
	require.NotNil(t, root)
	assert.Equal(t, XMLRootElement, root.Tag)

	rows := root.SelectElements(XMLRowElement)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0].SelectAttrValue(XMLIndexAttribute, ""))
	assert.Equal(t, "Outlook.com", rows[0].SelectElement("org_name").Text())

	sp := rows[0].SelectElement("sp")
	require.NotNil(t, sp, "empty cells are written")
	assert.Equal(t, "", sp.Text())

	assert.Nil(t, rows[0].SelectElement("reason"), "missing cells are omitted")
	assert.Equal(t, "local_policy", rows[1].SelectElement("reason").Text())
}

func TestXLSXWriter(t *testing.T) {
	f, err := excelize.OpenReader(bytes.NewReader(write(t, "xlsx", DefaultOptions(), sample(t))))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"DMARC"}, f.GetSheetList())

	cell := func(name string) string {
		v, err := f.GetCellValue("DMARC", name)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "org_name", cell("A1"))
	assert.Equal(t, "id", cell("E1"))
	assert.Equal(t, "Outlook.com", cell("A2"))
	assert.Equal(t, "'=HYPERLINK()", cell("A3"))
	assert.NotEmpty(t, cell("B2"), "times are stored as dates")
	assert.Equal(t, "", cell("D2"))
	assert.Equal(t, "local_policy", cell("D3"))
	assert.Equal(t, "1abc", cell("E3"))
}

func TestTerminalWriter(t *testing.T) {
	out := string(write(t, "table", DefaultOptions(), sample(t)))

	for _, header := range []string{"org_name", "begin", "reason", "id"} {
		assert.Contains(t, out, header)
	}
	assert.Contains(t, out, "Outlook.com")
	assert.Contains(t, out, "missing")
}

func TestTerminalWriter_Vertical(t *testing.T) {
	opts := DefaultOptions()
	opts.Vertical = true
	opts.MissingValue = "-"

	out := string(write(t, "table", opts, sample(t)))
	assert.Contains(t, out, "row 0")
	assert.Contains(t, out, "row 1")
	assert.Contains(t, out, "local_policy")
	assert.NotContains(t, out, "missing")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "", sanitize(""))
	assert.Equal(t, "'+1", sanitize("+1"))
	assert.Equal(t, "'-1", sanitize("-1"))
	assert.Equal(t, "'@SUM(A1)", sanitize("@SUM(A1)"))
	assert.Equal(t, "192.0.2.1", sanitize("192.0.2.1"))
}
