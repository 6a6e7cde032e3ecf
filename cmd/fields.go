// =============================================================================
// DMARC Report Parser - Fields Command
// =============================================================================
//
// This file defines the 'fields' command, which prints the effective field
// sets and can export them as a workbook for editing.
//
// COMMAND USAGE:
//   dmarc fields [--workbook PATH] [--export-workbook PATH]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/dmarc-report-parser/internal/validation"
	"github.com/ginjaninja78/dmarc-report-parser/internal/xlsxschema"
)

// exportWorkbook is where the field sets are saved as XLSX, if set.
var exportWorkbook string

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Print the field sets extracted from each report section",
	Long: `The fields command prints the effective field sets as YAML, after the
configuration file, environment and an optional --workbook are applied.

Use --export-workbook to write them as an XLSX workbook; edit it and point
field_sets_workbook (or --workbook) at it to change the extracted columns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(map[string]interface{}{"field_sets": cfg.FieldSets})
		if err != nil {
			return fmt.Errorf("failed to encode field sets: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))

		if err := validation.ValidateFieldSets(cfg.FieldSets); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nwarning: field sets are not usable:\n%v\n", err)
		}

		if exportWorkbook != "" {
			if err := xlsxschema.Save(cfg.FieldSets, exportWorkbook); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Field sets written to %s\n", exportWorkbook)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)

	fieldsCmd.Flags().String("workbook", "", "Read field sets from this XLSX workbook")
	fieldsCmd.Flags().StringVar(&exportWorkbook, "export-workbook", "", "Write the field sets to this XLSX workbook")
}
