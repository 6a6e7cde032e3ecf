package utils

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("<feedback/>"), 0o644))
}

func TestIsReportFile(t *testing.T) {
	for _, name := range []string{"a.xml", "a.XML", "a.xml.gz", "a.gz", "google.com!example.org!1.zip"} {
		assert.True(t, IsReportFile(name), name)
	}
	for _, name := range []string{"a.csv", "a.xlsx", "xml", "notes.txt"} {
		assert.False(t, IsReportFile(name), name)
	}
}

func TestTrimReportExtension(t *testing.T) {
	assert.Equal(t, "report", TrimReportExtension("/in/report.xml.gz"))
	assert.Equal(t, "report", TrimReportExtension("report.XML"))
	assert.Equal(t, "a!b!1", TrimReportExtension("dir/a!b!1.zip"))
	assert.Equal(t, "notes", TrimReportExtension("notes.txt"))
}

func TestDiscoverReports(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xml.gz"))
	touch(t, filepath.Join(dir, "a.zip"))
	touch(t, filepath.Join(dir, "c.xml"))
	touch(t, filepath.Join(dir, "readme.md"))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	fm := NewFileManager(dir, "", "")
	files, err := fm.DiscoverReports()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.zip"),
		filepath.Join(dir, "b.xml.gz"),
		filepath.Join(dir, "c.xml"),
	}, files)

	fm.InputDir = filepath.Join(dir, "absent")
	_, err = fm.DiscoverReports()
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "in"), filepath.Join(root, "out", "nested"), "")

	require.NoError(t, fm.EnsureDirectories())
	assert.DirExists(t, fm.InputDir)
	assert.DirExists(t, fm.OutputDir)
}

func TestArchiveInputFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "report.xml")
	touch(t, src)

	fm := NewFileManager(root, root, filepath.Join(root, "archive"))
	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "archive", "report.xml"), archived)
	assert.FileExists(t, archived)
	assert.NoFileExists(t, src)
}

func TestArchiveInputFile_TimestampSubdirs(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "report.zip")
	touch(t, src)

	fm := NewFileManager(root, root, filepath.Join(root, "archive"))
	fm.UseTimestampSubdirs = true
	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)

	now := time.Now()
	assert.Contains(t, archived, filepath.Join("archive", now.Format("2006"), now.Format("01")))
	assert.FileExists(t, archived)
}

func TestArchiveInputFile_Disabled(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "report.xml")
	touch(t, src)

	fm := NewFileManager(root, root, filepath.Join(root, "archive"))
	fm.ArchiveOnSuccess = false
	archived, err := fm.ArchiveInputFile(src)
	require.NoError(t, err)
	assert.Equal(t, src, archived)
	assert.FileExists(t, src)
}

func TestGenerateOutputFileName(t *testing.T) {
	name := GenerateOutputFileName("{original}_{timestamp}", ".csv", map[string]string{"original": "report"})
	assert.Regexp(t, regexp.MustCompile(`^report_\d{8}_\d{6}\.csv$`), name)

	name = GenerateOutputFileName("{report_id}", ".json", map[string]string{"report_id": "a/b\\c"})
	assert.Equal(t, "a_b_c.json", name)

	name = GenerateOutputFileName("{uuid}", ".xml", nil)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}\.xml$`), name)

	assert.Equal(t, "fixed.CSV", GenerateOutputFileName("fixed.CSV", ".csv", nil))
}

func TestCreateUniqueFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.csv"), []byte("first"), 0644))

	f, path, err := CreateUniqueFile(dir, "report.csv")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, filepath.Join(dir, "report_1.csv"), path)

	f, path, err = CreateUniqueFile(dir, "report.csv")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, filepath.Join(dir, "report_2.csv"), path)

	data, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data), "existing file is left alone")

	_, _, err = CreateUniqueFile(filepath.Join(dir, "absent"), "report.csv")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path, "no entries, no file")

	path, err = WriteErrorLog([]ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "bad.xml",
		ErrorType:    "malformed_timestamp",
		ErrorMessage: "malformed timestamp",
		Column:       "end",
		RowNumber:    2,
		Value:        "yesterday",
	}}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "DMARC Report Parser - Error Log")
	assert.Contains(t, content, "Total Errors: 1")
	assert.Contains(t, content, "bad.xml")
	assert.Contains(t, content, "Column:         end")
	assert.Contains(t, content, "Row Number:     2")
	assert.Contains(t, content, "Value:          yesterday")
}

func TestWriteSummaryLog(t *testing.T) {
	start := time.Now()
	summary := ProcessingSummary{
		StartTime:       start,
		EndTime:         start.Add(2 * time.Second),
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		TotalRecords:    3,
		ProcessedFiles: []ProcessedFileInfo{{
			InputFile: "in/good.xml", OutputFile: "out/good.csv",
			OrgName: "Outlook.com", ReportID: "abc123", Records: 3,
		}},
		FailedFilesList: []FailedFileInfo{{InputFile: "in/bad.xml", ErrorType: "parse", ErrorMessage: "boom"}},
	}

	path, err := WriteSummaryLog(summary, t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Total Reports:  2")
	assert.Contains(t, content, "Duration:       2s")
	assert.Contains(t, content, "Report:       Outlook.com abc123")
	assert.Contains(t, content, "Type:  parse")
	assert.Contains(t, content, "Error: boom")
}

func TestWriteSummaryLog_MissingDir(t *testing.T) {
	_, err := WriteSummaryLog(ProcessingSummary{}, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWriteSummaryLog_SameSecondKeepsBoth(t *testing.T) {
	dir := t.TempDir()
	summary := ProcessingSummary{StartTime: time.Now(), EndTime: time.Now(), TotalFiles: 1}

	first, err := WriteSummaryLog(summary, dir)
	require.NoError(t, err)
	second, err := WriteSummaryLog(summary, dir)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.xml")
	assert.False(t, FileExists(path))
	touch(t, path)
	assert.True(t, FileExists(path))
}
