// =============================================================================
// DMARC Report Parser - Configuration Validation
// =============================================================================
//
// This module checks a configuration before any report is parsed. A broken
// field set would otherwise surface only as a key mismatch halfway through a
// batch run.
//
// CHECKS:
//   1. Field sets: every section lists at least one tag, no duplicates
//   2. Columns: report, policy and record columns are pairwise disjoint
//   3. Key rules: complete, unique per position, targeting a record column
//   4. Settings: known output format, positive concurrency, loadable zone
//
// ERROR HANDLING:
//   - Problems are collected, not returned at the first one
//   - Each problem names the field and the offending value
//   - Validate joins the problems into one error wrapping ErrInvalidConfig
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/ginjaninja78/dmarc-report-parser/internal/config"
	"github.com/ginjaninja78/dmarc-report-parser/internal/export"
	"github.com/ginjaninja78/dmarc-report-parser/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single configuration problem.
type ValidationError struct {
	// Field is the configuration key that failed validation.
	Field string

	// Value is the offending value, if any.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s (value: '%s')", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is match config.ErrInvalidConfig.
func (e *ValidationError) Unwrap() error {
	return config.ErrInvalidConfig
}

// =============================================================================
// MAIN VALIDATION FUNCTIONS
// =============================================================================

// Validate checks the whole configuration.
//
// RETURNS:
//   - nil if the configuration is usable.
//   - An error joining every ValidationError otherwise.
func Validate(cfg *config.MainConfig) error {
	return join(CheckConfig(cfg))
}

// ValidateFieldSets checks only the field sets.
func ValidateFieldSets(fs config.FieldSets) error {
	return join(CheckFieldSets(fs))
}

// CheckConfig returns every problem found in cfg.
func CheckConfig(cfg *config.MainConfig) []*ValidationError {
	var errs []*ValidationError

	errs = append(errs, CheckFieldSets(cfg.FieldSets)...)

	if !slices.Contains(export.Formats, cfg.OutputFormat) {
		errs = append(errs, &ValidationError{
			Field:   "output_format",
			Value:   cfg.OutputFormat,
			Message: "must be one of " + strings.Join(export.Formats, ", "),
		})
	}
	if cfg.MaxConcurrency < 1 {
		errs = append(errs, &ValidationError{
			Field:   "max_concurrency",
			Value:   fmt.Sprint(cfg.MaxConcurrency),
			Message: "must be at least 1",
		})
	}
	if cfg.RecordConcurrency < 1 {
		errs = append(errs, &ValidationError{
			Field:   "record_concurrency",
			Value:   fmt.Sprint(cfg.RecordConcurrency),
			Message: "must be at least 1",
		})
	}
	if _, err := time.LoadLocation(cfg.Formatting.TimeZone); err != nil {
		errs = append(errs, &ValidationError{
			Field:   "formatting.time_zone",
			Value:   cfg.Formatting.TimeZone,
			Message: "unknown time zone",
		})
	}
	if cfg.Formatting.IDColumn != "" && slices.Contains(cfg.FieldSets.Columns(), cfg.Formatting.IDColumn) {
		errs = append(errs, &ValidationError{
			Field:   "formatting.id_column",
			Value:   cfg.Formatting.IDColumn,
			Message: "collides with an extracted column",
		})
	}

	return errs
}

// CheckFieldSets returns every problem found in the field sets.
func CheckFieldSets(fs config.FieldSets) []*ValidationError {
	var errs []*ValidationError

	sections := map[types.Section][]string{
		types.SectionReport: fs.Report,
		types.SectionPolicy: fs.Policy,
		types.SectionRecord: fs.Record.Tags,
	}
	for _, section := range types.Sections {
		errs = append(errs, checkList("field_sets."+string(section), sections[section])...)
	}
	errs = append(errs, checkList("field_sets.record.columns", fs.Record.Columns)...)

	// Report, policy and record columns share one table.
	seen := make(map[string]string)
	columns := map[string][]string{
		"report": fs.Report,
		"policy": fs.Policy,
		"record": fs.Record.Columns,
	}
	for _, section := range []string{"report", "policy", "record"} {
		for _, key := range lo.Uniq(columns[section]) {
			if owner, ok := seen[key]; ok && owner != section {
				errs = append(errs, &ValidationError{
					Field:   "field_sets." + section,
					Value:   key,
					Message: "column also defined in section " + owner,
				})
				continue
			}
			seen[key] = section
		}
	}

	errs = append(errs, checkKeyRules(fs.Record)...)

	return errs
}

// =============================================================================
// HELPERS
// =============================================================================

func checkList(field string, values []string) []*ValidationError {
	var errs []*ValidationError

	if len(values) == 0 {
		errs = append(errs, &ValidationError{Field: field, Message: "must not be empty"})
		return errs
	}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, &ValidationError{Field: field, Message: "contains an empty name"})
		}
	}
	for _, dup := range lo.FindDuplicates(values) {
		errs = append(errs, &ValidationError{Field: field, Value: dup, Message: "duplicate name"})
	}

	return errs
}

func checkKeyRules(rf config.RecordFields) []*ValidationError {
	var errs []*ValidationError

	positions := make(map[string]bool, len(rf.KeyRules))
	for i, rule := range rf.KeyRules {
		field := fmt.Sprintf("field_sets.record.key_rules[%d]", i)
		if rule.Parent == "" || rule.Tag == "" || rule.Key == "" {
			errs = append(errs, &ValidationError{Field: field, Message: "parent, tag and key are required"})
			continue
		}
		position := rule.Parent + "/" + rule.Tag
		if positions[position] {
			errs = append(errs, &ValidationError{Field: field, Value: position, Message: "duplicate rule for position"})
		}
		positions[position] = true

		if !slices.Contains(rf.Tags, rule.Tag) {
			errs = append(errs, &ValidationError{Field: field, Value: rule.Tag, Message: "tag is not in field_sets.record.tags"})
		}
		if !slices.Contains(rf.Columns, rule.Key) {
			errs = append(errs, &ValidationError{Field: field, Value: rule.Key, Message: "key is not in field_sets.record.columns"})
		}
	}

	return errs
}

func join(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	out := make([]error, len(errs))
	for i, e := range errs {
		out[i] = e
	}
	return errors.Join(out...)
}

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d error(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
