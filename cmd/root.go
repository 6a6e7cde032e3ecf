// =============================================================================
// DMARC Report Parser - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every other command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (dmarc)
//   ├── parseCmd    (dmarc parse FILE...)
//   ├── processCmd  (dmarc process)
//   ├── fieldsCmd   (dmarc fields)
//   ├── validateCmd (dmarc validate)
//   └── versionCmd  (dmarc version)
//
// CONFIGURATION:
//   Settings are resolved in this order, later sources winning:
//   1. Built-in defaults (config.Default)
//   2. The YAML file given by --config (skipped if the default file is absent)
//   3. DMARC_* environment variables, e.g. DMARC_OUTPUT_FORMAT=json
//   4. Command-line flags bound to a setting
//   Field sets are replaced by field_sets_workbook when one is configured.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/xlsxschema"
	"github.com/ginjaninja78/dmarc-report-parser/pkg/utils"
)

// EnvPrefix prefixes environment variables that override settings.
const EnvPrefix = "DMARC"

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "config.yaml"

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "dmarc",
	Short: "DMARC Report Parser - Flatten DMARC aggregate reports into tables",
	Long: `DMARC Report Parser reads DMARC aggregate (RUA) XML reports, as sent by
mail providers in plain, gzip or zip form, and flattens each one into a table
with one row per <record>. Report metadata and the published policy are
repeated on every row.

Key Features:
  - Configurable field sets, in YAML or an XLSX workbook
  - Formatted output: dates, alignment labels and a per-row id
  - CSV, JSON, XLSX, XML or terminal table output
  - Concurrent batch processing with archiving and run summaries

Example Usage:
  dmarc parse report.xml.gz             # Print one report as a table
  dmarc parse *.zip --format csv -o out.csv
  dmarc process                         # Convert every report in input_dir
  dmarc validate --config ./my.yaml     # Check a configuration`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		defaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// flagKeys maps flag names to the setting they override. Commands that do not
// define a flag simply skip it.
var flagKeys = map[string]string{
	"format":      "output_format",
	"raw":         "raw",
	"missing":     "missing_value",
	"input-dir":   "input_dir",
	"output-dir":  "output_dir",
	"archive":     "archive_inputs",
	"concurrency": "max_concurrency",
	"workbook":    "field_sets_workbook",
}

// loadConfig resolves the configuration for cmd. It does not validate it.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	cfg := config.Default()

	explicit := cmd.Flags().Changed("config")
	if explicit || utils.FileExists(cfgFile) {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if flag := cmd.Flags().Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}
	applyOverrides(v, cfg)

	if verbose {
		cfg.LogLevel = "debug"
	}

	if cfg.FieldSetsWorkbook != "" {
		fs, err := xlsxschema.Load(cfg.FieldSetsWorkbook)
		if err != nil {
			return nil, err
		}
		cfg.FieldSets = fs
	}

	return cfg, nil
}

// applyOverrides copies every setting that viper saw in the environment or
// on the command line into cfg.
func applyOverrides(v *viper.Viper, cfg *config.MainConfig) {
	stringKeys := map[string]*string{
		"input_dir":           &cfg.InputDir,
		"output_dir":          &cfg.OutputDir,
		"input_archive_dir":   &cfg.InputArchiveDir,
		"log_file":            &cfg.LogFile,
		"log_level":           &cfg.LogLevel,
		"metrics_file":        &cfg.MetricsFile,
		"output_format":       &cfg.OutputFormat,
		"output_file_format":  &cfg.OutputFileFormat,
		"missing_value":       &cfg.MissingValue,
		"field_sets_workbook": &cfg.FieldSetsWorkbook,
		"time_zone":           &cfg.Formatting.TimeZone,
	}
	boolKeys := map[string]*bool{
		"archive_inputs": &cfg.ArchiveInputs,
		"raw":            &cfg.Raw,
		"stop_on_error":  &cfg.StopOnError,
	}
	intKeys := map[string]*int{
		"max_concurrency":    &cfg.MaxConcurrency,
		"record_concurrency": &cfg.RecordConcurrency,
	}

	for key, dst := range stringKeys {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	for key, dst := range boolKeys {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	for key, dst := range intKeys {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
}

// =============================================================================
// LOGGING
// =============================================================================

// newLogger builds the zap logger described by cfg: console encoding with
// ISO8601 timestamps, written to log_file or stderr.
func newLogger(cfg *config.MainConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	zc.Encoding = "console"
	zc.Sampling = nil
	zc.DisableStacktrace = true
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.OutputPaths = []string{"stderr"}
	if cfg.LogFile != "" {
		zc.OutputPaths = []string{cfg.LogFile}
	}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// setup loads the configuration and the logger for a command.
func setup(cmd *cobra.Command) (*config.MainConfig, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
