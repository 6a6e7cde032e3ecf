// =============================================================================
// DMARC Report Parser - Process Command
// =============================================================================
//
// This file defines the 'process' command, the batch mode: every report in
// the input directory becomes one table file in the output directory.
//
// COMMAND USAGE:
//   dmarc process [flags]
//
// FLAGS:
//   --dry-run     : Parse and format without writing or archiving anything
//   --file        : Process only this report instead of the input directory
//   --format      : Override output_format
//   --raw         : Skip formatting
//   --archive     : Move processed reports to input_archive_dir
//   --concurrency : Override max_concurrency
//
// PROCESSING PIPELINE:
//   1. Load and validate the configuration
//   2. Discover reports in the input directory
//   3. Convert reports concurrently, at most max_concurrency at a time
//   4. Write the error log, the processing summary and the metrics textfile
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/converter"
	"github.com/ginjaninja78/dmarc-report-parser/internal/dmarc"
	"github.com/ginjaninja78/dmarc-report-parser/internal/metrics"
	"github.com/ginjaninja78/dmarc-report-parser/internal/validation"
	"github.com/ginjaninja78/dmarc-report-parser/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun parses and formats without writing output files.
var dryRun bool

// filePath is a single report to process instead of the input directory.
var filePath string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert every report in the input directory",
	Long: `The process command scans the input directory for DMARC aggregate reports
(.xml, .xml.gz, .gz, .zip) and converts each into a table file in the output
directory.

Reports are processed concurrently. A failure in one report does not affect
the others unless stop_on_error is set.

On successful processing:
  - The table is placed in the output directory
  - The report is moved to the input archive, if archive_inputs is set

On error:
  - The failure is recorded in an error log in the output directory
  - The report remains in the input directory

Every run writes a processing summary, and a Prometheus textfile when
metrics_file is set.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and format without writing output files")
	processCmd.Flags().StringVar(&filePath, "file", "", "Process only this report")
	processCmd.Flags().String("format", "", "Output format: csv, json, xlsx, xml or table")
	processCmd.Flags().Bool("raw", false, "Skip formatting")
	processCmd.Flags().Bool("archive", false, "Move processed reports to the input archive")
	processCmd.Flags().Int("concurrency", 0, "Maximum number of reports processed at once")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(cmd *cobra.Command) error {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := validation.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	parser, err := dmarc.NewParser(cfg.FieldSets,
		dmarc.WithLogger(logger),
		dmarc.WithConcurrency(cfg.RecordConcurrency),
	)
	if err != nil {
		return err
	}

	recorder, err := metrics.New()
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir)
	fm.ArchiveOnSuccess = cfg.ArchiveInputs && !dryRun
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if filePath != "" {
		inputFiles = []string{filePath}
	} else {
		inputFiles, err = fm.DiscoverReports()
		if err != nil {
			return err
		}
	}

	if len(inputFiles) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reports found in the input directory.")
		return nil
	}

	logger.Info("processing reports",
		zap.Int("reports", len(inputFiles)),
		zap.Int("concurrency", cfg.MaxConcurrency),
		zap.Bool("dry_run", dryRun),
	)

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================

	results := convertAll(cfg, parser, fm, logger, inputFiles)

	// =========================================================================
	// STEP 4: COLLECT RESULTS AND WRITE LOGS
	// =========================================================================

	summary := utils.ProcessingSummary{
		StartTime:  startTime,
		TotalFiles: len(inputFiles),
	}
	var errorEntries []utils.ErrorLogEntry

	out := cmd.OutOrStdout()
	for _, result := range results {
		if result.Success {
			recorder.ObserveSuccess(result.Stats.Records, result.Stats.ProcessingTime)
			summary.SuccessfulFiles++
			summary.TotalRecords += result.Stats.Records
			summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
				InputFile:   result.FilePath,
				OutputFile:  result.OutputFile,
				ArchivePath: result.ArchivePath,
				OrgName:     result.Stats.OrgName,
				ReportID:    result.Stats.ReportID,
				Records:     result.Stats.Records,
				ProcessTime: result.Stats.ProcessingTime,
			})
			fmt.Fprintf(out, "  ✓ %s -> %s (%d records)\n",
				filepath.Base(result.FilePath), outputLabel(result), result.Stats.Records)
			continue
		}

		recorder.ObserveFailure(result.Stats.ProcessingTime)
		summary.FailedFiles++
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    result.FilePath,
			ErrorMessage: result.Error.Error(),
			ErrorType:    result.ErrorType,
		})
		errorEntries = append(errorEntries, result.ErrorLogEntry())
		logger.Error("report failed", zap.String("file", result.FilePath), zap.Error(result.Error))
		fmt.Fprintf(out, "  ✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
	}
	summary.EndTime = time.Now()

	skipped := len(inputFiles) - len(results)

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total reports:   %d\n", len(inputFiles))
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	if skipped > 0 {
		fmt.Fprintf(out, "Skipped:         %d\n", skipped)
	}
	fmt.Fprintf(out, "Records:         %d\n", summary.TotalRecords)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if !dryRun {
		if path, err := utils.WriteErrorLog(errorEntries, cfg.OutputDir); err != nil {
			logger.Warn("failed to write error log", zap.Error(err))
		} else if path != "" {
			fmt.Fprintf(out, "\nErrors have been logged to %s\n", path)
		}
		if _, err := utils.WriteSummaryLog(summary, cfg.OutputDir); err != nil {
			logger.Warn("failed to write processing summary", zap.Error(err))
		}
	}

	if cfg.MetricsFile != "" {
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn("failed to write metrics", zap.Error(err))
		}
	}

	if cfg.StopOnError && summary.FailedFiles > 0 {
		return fmt.Errorf("processing stopped after %d failed report(s)", summary.FailedFiles)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// convertAll runs one Converter per file, at most cfg.MaxConcurrency at a
// time. With stop_on_error, files not yet started after the first failure are
// skipped and absent from the results. Results are sorted by file path.
func convertAll(cfg *config.MainConfig, parser *dmarc.Parser, fm *utils.FileManager, logger *zap.Logger, files []string) []converter.Result {
	var wg sync.WaitGroup
	var failed atomic.Bool

	results := make(chan converter.Result, len(files))
	sem := make(chan struct{}, cfg.MaxConcurrency)

	for _, file := range files {
		sem <- struct{}{}
		if cfg.StopOnError && failed.Load() {
			<-sem
			break
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			conv := converter.New(path, cfg, parser,
				converter.WithLogger(logger),
				converter.WithFileManager(fm),
				converter.WithDryRun(dryRun),
			)
			result := conv.Run()
			if !result.Success {
				failed.Store(true)
			}
			results <- result
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var out []converter.Result
	for result := range results {
		out = append(out, result)
	}
	slices.SortFunc(out, func(a, b converter.Result) int {
		return strings.Compare(a.FilePath, b.FilePath)
	})
	return out
}

// outputLabel is the console name of a result's output.
func outputLabel(result converter.Result) string {
	if result.OutputFile == "" {
		return "(dry run)"
	}
	return result.OutputFile
}
