// =============================================================================
// NF-e / DANFE Filter - Main Entry Point
// =============================================================================
//
// USAGE:
//   nfefilter filter   - Filter XML and DANFE archives into a new ZIP
//   nfefilter serve    - Serve the upload form over HTTP
//   nfefilter version  - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : extraction, classification, filtering, reports, server
//   - pkg/       : shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/nfe-danfe-filter/cmd"
)

func main() {
	cmd.Execute()
}
