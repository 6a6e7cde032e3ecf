// =============================================================================
// DMARC Report Parser - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing the configuration file.
// It covers two concerns:
//   1. Application settings (directories, output format, logging, concurrency)
//   2. Field sets: which XML tags are extracted from each report section and
//      which column each extracted tag lands in
//
// The field sets used to be compiled-in constants. They are configuration so
// that a report producer adding or renaming elements can be handled by
// editing YAML (or an XLSX workbook, see internal/xlsxschema) instead of code.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
// This is loaded from the main config.yaml file.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the directory scanned by the process command.
	// Default: "./input"
	InputDir string `yaml:"input_dir" mapstructure:"input_dir"`

	// OutputDir is the directory where converted reports are written.
	// Default: "./output"
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`

	// InputArchiveDir receives input reports after successful processing,
	// when ArchiveInputs is set.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir" mapstructure:"input_archive_dir"`

	// ArchiveInputs moves processed reports into InputArchiveDir.
	// Default: false
	ArchiveInputs bool `yaml:"archive_inputs" mapstructure:"archive_inputs"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is the path of the log file. Empty logs to stderr.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`

	// MetricsFile, when set, receives Prometheus text-format metrics after
	// each process run.
	MetricsFile string `yaml:"metrics_file" mapstructure:"metrics_file"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputFormat selects the writer: "csv", "json", "xlsx", "xml" or "table".
	// Default: "csv"
	OutputFormat string `yaml:"output_format" mapstructure:"output_format"`

	// OutputFileFormat defines output file names without extension.
	// Placeholders:
	//   {uuid}      - A random UUID
	//   {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
	//   {original}  - Input file name without extensions
	// Default: "{original}_{timestamp}"
	OutputFileFormat string `yaml:"output_file_format" mapstructure:"output_file_format"`

	// Raw disables the formatting step (timestamps, alignment labels, id).
	// Default: false
	Raw bool `yaml:"raw" mapstructure:"raw"`

	// MissingValue is how missing cells are written to output files.
	// Default: ""
	MissingValue string `yaml:"missing_value" mapstructure:"missing_value"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of files processed concurrently.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency" mapstructure:"max_concurrency"`

	// RecordConcurrency is the number of workers walking <record> elements of
	// a single report. 1 walks them sequentially.
	// Default: 1
	RecordConcurrency int `yaml:"record_concurrency" mapstructure:"record_concurrency"`

	// StopOnError aborts a process run at the first failed file.
	// Default: false
	StopOnError bool `yaml:"stop_on_error" mapstructure:"stop_on_error"`

	// =========================================================================
	// SCHEMA SETTINGS
	// =========================================================================

	// FieldSetsWorkbook is an optional XLSX file whose field sets replace
	// FieldSets. See internal/xlsxschema for the sheet layout.
	FieldSetsWorkbook string `yaml:"field_sets_workbook" mapstructure:"field_sets_workbook"`

	// FieldSets lists the tags extracted per report section.
	FieldSets FieldSets `yaml:"field_sets" mapstructure:"field_sets"`

	// Formatting configures the formatted output.
	Formatting Formatting `yaml:"formatting" mapstructure:"formatting"`
}

// =============================================================================
// FIELD SETS
// =============================================================================

// FieldSets holds the tag names extracted from each section of a report.
type FieldSets struct {
	// Report lists tags read from <report_metadata>.
	Report []string `yaml:"report" mapstructure:"report"`

	// Policy lists tags read from <policy_published>.
	Policy []string `yaml:"policy" mapstructure:"policy"`

	// Record configures extraction from each <record>.
	Record RecordFields `yaml:"record" mapstructure:"record"`
}

// RecordFields configures the record walker. Record elements reuse tag names
// at different depths (<result> appears under both <dkim> and <spf>), so the
// emitted column key may differ from the tag name.
type RecordFields struct {
	// Tags are the element names extracted from a record.
	Tags []string `yaml:"tags" mapstructure:"tags"`

	// Columns are the resolved column keys of the record dictionary, in
	// output order. A resolved key outside this list is a schema mismatch.
	Columns []string `yaml:"columns" mapstructure:"columns"`

	// QualifiedTags are always prefixed with their parent tag name when no
	// key rule matches, e.g. "result" under <spf> becomes "spf_result".
	QualifiedTags []string `yaml:"qualified_tags" mapstructure:"qualified_tags"`

	// KeyRules map a (parent, tag) position to an explicit column key.
	KeyRules []KeyRule `yaml:"key_rules" mapstructure:"key_rules"`
}

// KeyRule maps a tag found directly under Parent to the column Key.
type KeyRule struct {
	Parent string `yaml:"parent" mapstructure:"parent"`
	Tag    string `yaml:"tag" mapstructure:"tag"`
	Key    string `yaml:"key" mapstructure:"key"`
}

// Columns returns the dictionary keys of every section in table order.
func (fs FieldSets) Columns() []string {
	out := make([]string, 0, len(fs.Report)+len(fs.Policy)+len(fs.Record.Columns))
	out = append(out, fs.Report...)
	out = append(out, fs.Policy...)
	out = append(out, fs.Record.Columns...)
	return out
}

// Clone returns a deep copy of fs.
func (fs FieldSets) Clone() FieldSets {
	return FieldSets{
		Report: slices.Clone(fs.Report),
		Policy: slices.Clone(fs.Policy),
		Record: RecordFields{
			Tags:          slices.Clone(fs.Record.Tags),
			Columns:       slices.Clone(fs.Record.Columns),
			QualifiedTags: slices.Clone(fs.Record.QualifiedTags),
			KeyRules:      slices.Clone(fs.Record.KeyRules),
		},
	}
}

// =============================================================================
// FORMATTING
// =============================================================================

// Formatting configures the formatter.
type Formatting struct {
	// TimeZone is the IANA zone used for parsed timestamps.
	// Default: "UTC"
	TimeZone string `yaml:"time_zone" mapstructure:"time_zone"`

	// TimestampColumns hold Unix epoch seconds.
	// Default: ["begin", "end"]
	TimestampColumns []string `yaml:"timestamp_columns" mapstructure:"timestamp_columns"`

	// AlignmentColumns hold DKIM/SPF alignment codes.
	// Default: ["adkim", "aspf"]
	AlignmentColumns []string `yaml:"alignment_columns" mapstructure:"alignment_columns"`

	// AlignmentLabels maps alignment codes to labels.
	// Default: {"r": "Relaxed", "s": "Strict"}
	AlignmentLabels map[string]string `yaml:"alignment_labels" mapstructure:"alignment_labels"`

	// IDColumn is the name of the synthetic row id column.
	// Default: "id"
	IDColumn string `yaml:"id_column" mapstructure:"id_column"`

	// ReportIDColumn is the column combined with the row index into the id.
	// Default: "report_id"
	ReportIDColumn string `yaml:"report_id_column" mapstructure:"report_id_column"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// DefaultFieldSets returns the field sets of an RFC 7489 aggregate report.
func DefaultFieldSets() FieldSets {
	return FieldSets{
		Report: []string{"org_name", "email", "extra_contact_info", "report_id", "begin", "end"},
		Policy: []string{"domain", "adkim", "aspf", "p", "sp", "pct", "fo"},
		Record: RecordFields{
			Tags: []string{
				"source_ip", "count", "disposition", "dkim", "spf", "type", "comment",
				"header_from", "envelope_from", "envelope_to",
				"domain", "selector", "result", "scope", "human_result",
			},
			Columns: []string{
				"source_ip", "count", "disposition", "dkim", "spf", "type", "comment",
				"header_from", "envelope_from", "envelope_to",
				"dkim_domain", "dkim_selector", "dkim_result", "dkim_human_result",
				"spf_domain", "spf_scope", "spf_result", "spf_human_result",
			},
			QualifiedTags: []string{"result"},
			KeyRules: []KeyRule{
				{Parent: "dkim", Tag: "domain", Key: "dkim_domain"},
				{Parent: "dkim", Tag: "selector", Key: "dkim_selector"},
				{Parent: "dkim", Tag: "human_result", Key: "dkim_human_result"},
				{Parent: "spf", Tag: "domain", Key: "spf_domain"},
				{Parent: "spf", Tag: "scope", Key: "spf_scope"},
				{Parent: "spf", Tag: "human_result", Key: "spf_human_result"},
			},
		},
	}
}

// DefaultFormatting returns the default formatter settings.
func DefaultFormatting() Formatting {
	return Formatting{
		TimeZone:         "UTC",
		TimestampColumns: []string{"begin", "end"},
		AlignmentColumns: []string{"adkim", "aspf"},
		AlignmentLabels:  map[string]string{"r": "Relaxed", "s": "Strict"},
		IDColumn:         "id",
		ReportIDColumn:   "report_id",
	}
}

// Default returns a configuration with every option at its default.
func Default() *MainConfig {
	cfg := &MainConfig{
		FieldSets:  DefaultFieldSets(),
		Formatting: DefaultFormatting(),
	}
	applyMainConfigDefaults(cfg)
	return cfg
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load loads the main configuration from a YAML file. Keys absent from the
// file keep their defaults.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func Load(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data over the defaults.
func Parse(data []byte) (*MainConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyMainConfigDefaults(cfg)
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *MainConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputFormat == "" {
		config.OutputFormat = "csv"
	}
	if config.OutputFileFormat == "" {
		config.OutputFileFormat = "{original}_{timestamp}"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.RecordConcurrency == 0 {
		config.RecordConcurrency = 1
	}

	// Formatting defaults.
	defaults := DefaultFormatting()
	if config.Formatting.TimeZone == "" {
		config.Formatting.TimeZone = defaults.TimeZone
	}
	if config.Formatting.TimestampColumns == nil {
		config.Formatting.TimestampColumns = defaults.TimestampColumns
	}
	if config.Formatting.AlignmentColumns == nil {
		config.Formatting.AlignmentColumns = defaults.AlignmentColumns
	}
	if config.Formatting.AlignmentLabels == nil {
		config.Formatting.AlignmentLabels = defaults.AlignmentLabels
	}
	if config.Formatting.IDColumn == "" {
		config.Formatting.IDColumn = defaults.IDColumn
	}
	if config.Formatting.ReportIDColumn == "" {
		config.Formatting.ReportIDColumn = defaults.ReportIDColumn
	}
}
