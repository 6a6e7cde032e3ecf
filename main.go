// =============================================================================
// DMARC Report Parser - Main Entry Point
// =============================================================================
//
// This is the main entry point for the DMARC Report Parser CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   dmarc parse FILE...   - Print reports as a table
//   dmarc process         - Convert every report in the input directory
//   dmarc fields          - Print the configured field sets
//   dmarc validate        - Validate the configuration
//   dmarc version         - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Report parsing, formatting and output
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/dmarc-report-parser/cmd"
)

func main() {
	cmd.Execute()
}
