// =============================================================================
// DMARC Report Parser - Converter Module
// =============================================================================
//
// This module orchestrates the pipeline for a single report file, from the
// compressed XML on disk to a table file in the output directory.
//
// CONVERSION PIPELINE:
//   1. Parse the report into the raw table (internal/dmarc)
//   2. Format timestamps, alignment codes and row ids (internal/format)
//   3. Write the table in the configured format (internal/export)
//   4. Archive the input report
//
// CONCURRENCY:
//   A Converter handles one file. The process command runs several
//   Converters at once; they share the Parser, which holds no per-report
//   state.
//
// =============================================================================

package converter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/dmarc"
	"github.com/ginjaninja78/dmarc-report-parser/internal/export"
	"github.com/ginjaninja78/dmarc-report-parser/internal/format"
	"github.com/ginjaninja78/dmarc-report-parser/internal/table"
	"github.com/ginjaninja78/dmarc-report-parser/pkg/utils"
)

// Error types reported in Result.ErrorType and the error log.
const (
	ErrorTypeParse              = "parse"
	ErrorTypeEmptyReport        = "empty_report"
	ErrorTypeKeyMismatch        = "key_mismatch"
	ErrorTypeMalformedTimestamp = "malformed_timestamp"
	ErrorTypeOutput             = "output"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single report.
type Result struct {
	// FilePath is the path to the input report.
	FilePath string

	// OutputFile is the path to the written table.
	// This is empty if processing failed or on a dry run.
	OutputFile string

	// ArchivePath is where the input report was moved, if it was archived.
	ArchivePath string

	// Success indicates whether the processing was successful.
	Success bool

	// Error contains the error if processing failed.
	Error error

	// ErrorType classifies Error, see ClassifyError.
	ErrorType string

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// Records is the number of <record> elements, and so of table rows.
	Records int

	// Columns is the number of table columns written.
	Columns int

	// OrgName and ReportID identify the report, when present.
	OrgName  string
	ReportID string

	// ProcessingTime is the time taken to process the file.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter handles the conversion of a single report file.
type Converter struct {
	reportPath string
	cfg        *config.MainConfig
	parser     *dmarc.Parser
	files      *utils.FileManager
	logger     *zap.Logger
	dryRun     bool
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFileManager sets the file manager used for archiving.
func WithFileManager(fm *utils.FileManager) Option {
	return func(c *Converter) {
		c.files = fm
	}
}

// WithDryRun parses and formats without writing or archiving anything.
func WithDryRun(dryRun bool) Option {
	return func(c *Converter) {
		c.dryRun = dryRun
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter instance.
//
// PARAMETERS:
//   - reportPath: The path to the input report (.xml, .xml.gz or .zip).
//   - cfg: The main application configuration.
//   - parser: The report parser, shared between converters.
func New(reportPath string, cfg *config.MainConfig, parser *dmarc.Parser, opts ...Option) *Converter {
	c := &Converter{
		reportPath: reportPath,
		cfg:        cfg,
		parser:     parser,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.files == nil {
		c.files = utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir)
		c.files.ArchiveOnSuccess = cfg.ArchiveInputs
	}
	return c
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion pipeline for the report.
//
// RETURNS:
//   - A Result struct containing the outcome of the processing.
func (c *Converter) Run() Result {
	startTime := time.Now()
	result := Result{FilePath: c.reportPath}
	log := c.logger.With(zap.String("file", c.reportPath))

	fail := func(err error) Result {
		result.Error = err
		result.ErrorType = ClassifyError(err)
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 1: PARSE REPORT
	// =========================================================================

	log.Debug("processing report")

	t, err := c.parser.ParseFile(c.reportPath)
	if err != nil {
		return fail(err)
	}

	result.Stats.Records = t.Rows()
	result.Stats.OrgName = firstText(t, "org_name")
	result.Stats.ReportID = firstText(t, c.cfg.Formatting.ReportIDColumn)

	// =========================================================================
	// STEP 2: FORMAT
	// =========================================================================

	if !c.cfg.Raw {
		opts, err := format.OptionsFromConfig(c.cfg.Formatting)
		if err != nil {
			return fail(err)
		}
		t, err = format.New(opts).Format(t)
		if err != nil {
			return fail(err)
		}
	}
	result.Stats.Columns = len(t.Columns())

	if c.dryRun {
		log.Info("dry run, report not written", zap.Int("records", result.Stats.Records))
		result.Success = true
		result.Stats.ProcessingTime = time.Since(startTime)
		return result
	}

	// =========================================================================
	// STEP 3: WRITE OUTPUT FILE
	// =========================================================================

	outputPath, err := c.writeOutput(t, result.Stats.ReportID)
	if err != nil {
		return fail(fmt.Errorf("failed to write output: %w", err))
	}
	result.OutputFile = outputPath

	log.Info("wrote report table",
		zap.String("output", outputPath),
		zap.Int("records", result.Stats.Records),
	)

	// =========================================================================
	// STEP 4: ARCHIVE INPUT
	// =========================================================================

	if c.files.ArchiveOnSuccess {
		archivePath, err := c.files.ArchiveInputFile(c.reportPath)
		if err != nil {
			// The table is written; a failed archive does not fail the report.
			log.Warn("failed to archive report", zap.Error(err))
		} else {
			result.ArchivePath = archivePath
		}
	}

	result.Success = true
	result.Stats.ProcessingTime = time.Since(startTime)

	return result
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// writeOutput writes t to the output directory.
//
// FILE NAMING:
//   The name follows OutputFileFormat with {original} and {report_id}
//   filled in, plus the extension of the output format. An existing file
//   is never overwritten; a numeric suffix is added instead.
func (c *Converter) writeOutput(t *table.Table, reportID string) (string, error) {
	w, err := export.New(c.cfg.OutputFormat, export.Options{
		MissingValue:     c.cfg.MissingValue,
		SanitizeFormulas: true,
	})
	if err != nil {
		return "", err
	}

	fileName := utils.GenerateOutputFileName(
		c.cfg.OutputFileFormat,
		export.Extension(c.cfg.OutputFormat),
		map[string]string{
			"original":  utils.TrimReportExtension(c.reportPath),
			"report_id": reportID,
		},
	)
	file, outputPath, err := utils.CreateUniqueFile(c.cfg.OutputDir, fileName)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := w.Write(file, t); err != nil {
		file.Close()
		os.Remove(outputPath)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(outputPath)
		return "", err
	}

	return outputPath, nil
}

// firstText returns the text at row 0 of column, or "".
func firstText(t *table.Table, column string) string {
	v, err := t.Cell(column, 0)
	if err != nil {
		return ""
	}
	s, _ := v.AsText()
	return s
}

// ClassifyError maps a pipeline error onto one of the ErrorType constants.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, dmarc.ErrParse):
		return ErrorTypeParse
	case errors.Is(err, dmarc.ErrEmptyReport):
		return ErrorTypeEmptyReport
	case errors.Is(err, dmarc.ErrKeyMismatch):
		return ErrorTypeKeyMismatch
	case errors.Is(err, format.ErrMalformedTimestamp):
		return ErrorTypeMalformedTimestamp
	default:
		return ErrorTypeOutput
	}
}

// ErrorLogEntry describes a failed result for utils.WriteErrorLog.
func (r Result) ErrorLogEntry() utils.ErrorLogEntry {
	entry := utils.ErrorLogEntry{
		Timestamp: time.Now(),
		FileName:  filepath.Base(r.FilePath),
		ErrorType: r.ErrorType,
	}
	if r.Error != nil {
		entry.ErrorMessage = r.Error.Error()
	}

	var mismatch *dmarc.KeyMismatchError
	var malformed *format.MalformedTimestampError
	switch {
	case errors.As(r.Error, &mismatch):
		entry.Column = mismatch.Key
		entry.RowNumber = mismatch.Row + 1
	case errors.As(r.Error, &malformed):
		entry.Column = malformed.Column
		entry.RowNumber = malformed.Row + 1
		entry.Value = malformed.Value
	}

	return entry
}
