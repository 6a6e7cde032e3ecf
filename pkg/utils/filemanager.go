// =============================================================================
// DMARC Report Parser - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for batch runs, including:
//   - Report discovery in the input directory
//   - Input archival (moving processed reports)
//   - Output file naming
//   - Error log and processing summary generation
//
// ARCHIVAL STRATEGY:
//   - Input reports are moved to input_archive after successful processing
//   - Failed reports remain in their original location
//   - Error logs and summaries are created in the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReportExtensions are the file suffixes picked up by DiscoverReports.
// Longer suffixes come first so TrimReportExtension strips ".xml.gz" whole.
var ReportExtensions = []string{".xml.gz", ".xml", ".gz", ".zip"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for batch runs.
type FileManager struct {
	// InputDir is the directory where reports are dropped.
	InputDir string

	// OutputDir is the directory where tables and logs are written.
	OutputDir string

	// InputArchiveDir is the directory for processed reports.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/report.xml.gz
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether reports are archived after
	// successful processing.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverReports lists the report files directly inside the input directory.
//
// RETURNS:
//   - The paths of regular files ending in one of ReportExtensions, sorted.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverReports() ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var result []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if IsReportFile(entry.Name()) {
			result = append(result, filepath.Join(fm.InputDir, entry.Name()))
		}
	}
	slices.Sort(result)

	return result, nil
}

// IsReportFile reports whether name carries one of ReportExtensions.
func IsReportFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ReportExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// TrimReportExtension returns the base name of path without its report
// extension, e.g. "google.com!example.com!1646697600!1646784000".
func TrimReportExtension(path string) string {
	name := filepath.Base(path)
	lower := strings.ToLower(name)
	for _, ext := range ReportExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input report to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	archiveDir := filepath.Dir(archivePath)
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := time.Now()
		subDir := filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates an output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {original}  - Input file name without its report extension
//               {report_id} - The report's report_id, when known
//   - ext: The extension to ensure, including the dot (e.g. ".csv").
//   - params: A map of placeholder values.
//
// EXAMPLE:
//   format: "{original}_{timestamp}"
//   params: {"original": "google.com!example.com!1646697600!1646784000"}
//   output: "google.com!example.com!1646697600!1646784000_20240115_143022.csv"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	if strings.Contains(format, "{uuid}") {
		replacements["{uuid}"] = uuid.New().String()
	}

	for key, value := range params {
		replacements["{"+key+"}"] = sanitizeFileName(value)
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// sanitizeFileName replaces path separators so a placeholder value cannot
// escape the output directory.
func sanitizeFileName(s string) string {
	return strings.NewReplacer("/", "_", `\`, "_").Replace(s)
}

// maxNameAttempts bounds the numeric suffixes tried by CreateUniqueFile.
const maxNameAttempts = 1000

// CreateUniqueFile creates name inside dir without touching existing files.
// When name is taken it tries "base_1.ext", "base_2.ext" and so on.
//
// RETURNS:
//   - The open file, created exclusively, and its path.
//   - An error if no free name was found or creation failed otherwise.
func CreateUniqueFile(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; i <= maxNameAttempts; i++ {
		path := filepath.Join(dir, candidate)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return file, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	return nil, "", fmt.Errorf("no free file name for %s after %d attempts", name, maxNameAttempts)
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	Column       string
	RowNumber    int
	Value        string
}

// WriteErrorLog writes error entries to a log file.
//
// RETURNS:
//   - The path to the error log file, or "" when there are no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("error_log_%s.txt", timestamp)
	file, logPath, err := CreateUniqueFile(outputDir, logFileName)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "DMARC Report Parser - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:      %s\n"+
			"  File:           %s\n"+
			"  Error Type:     %s\n"+
			"  Message:        %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.Column != "" {
			fmt.Fprintf(writer, "  Column:         %s\n", entry.Column)
		}
		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number:     %d\n", entry.RowNumber)
		}
		if entry.Value != "" {
			fmt.Fprintf(writer, "  Value:          %s\n", entry.Value)
		}

		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalRecords    int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully processed report.
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	OrgName     string
	ReportID    string
	Records     int
	ProcessTime time.Duration
}

// FailedFileInfo contains information about a failed report.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes a processing summary to a log file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	summaryFileName := fmt.Sprintf("processing_summary_%s.txt", timestamp)
	file, summaryPath, err := CreateUniqueFile(outputDir, summaryFileName)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "DMARC Report Parser - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n"+
		"Statistics:\n"+
		"  Total Reports:  %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Records:  %d\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalRecords)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Reports:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:       %s\n", pf.OutputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:     %s\n", pf.ArchivePath)
			}
			if pf.OrgName != "" || pf.ReportID != "" {
				fmt.Fprintf(writer, "  Report:       %s %s\n", pf.OrgName, pf.ReportID)
			}
			fmt.Fprintf(writer, "  Records:      %d\n", pf.Records)
			fmt.Fprintf(writer, "  Process Time: %s\n\n", pf.ProcessTime.String())
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Reports:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			if ff.ErrorType != "" {
				fmt.Fprintf(writer, "  Type:  %s\n", ff.ErrorType)
			}
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
