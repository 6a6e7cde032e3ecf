// =============================================================================
// DMARC Report Parser - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which checks the configuration
// without touching any report.
//
// COMMAND USAGE:
//   dmarc validate [--config PATH] [--workbook PATH]
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/dmarc-report-parser/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `The validate command loads the configuration the same way 'process' does and
reports every problem found: empty or duplicate field sets, columns shared
between sections, broken key rules, unknown output formats or time zones.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		errs := validation.CheckConfig(cfg)
		fmt.Fprint(cmd.OutOrStdout(), validation.FormatErrors(errs))
		if len(errs) > 0 {
			return fmt.Errorf("configuration has %d error(s)", len(errs))
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().String("workbook", "", "Read field sets from this XLSX workbook")
}
