// =============================================================================
// NF-e / DANFE Filter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (nfefilter)
//   ├── filterCmd  (nfefilter filter)
//   ├── serveCmd   (nfefilter serve)
//   └── versionCmd (nfefilter version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose)
//   2. Loading the configuration (YAML, .env, environment)
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/extractor"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/logger"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/ocr"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/validation"
)

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

var rootCmd = &cobra.Command{
	Use:   "nfefilter",
	Short: "Filter NF-e XMLs and DANFE PDFs by order id and invoice number",
	Long: `nfefilter reads a ZIP of NF-e XML files and/or a ZIP of DANFE PDFs, keeps
the documents matching an order id (pedido), an invoice-number range
(intervalo de NF) or both, classifies every invoice as authorized or
cancelled, and packs the result into a new ZIP with a summary report.

Example Usage:
  nfefilter filter --xml-zip notas.zip --danfe-zip danfes.zip --modo pedido --pedido 7373
  nfefilter filter --xml-zip notas.zip --modo intervalo --nf-inicio 100 --nf-fim 200
  nfefilter serve --config ./config.yaml`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. Invalid input exits with status 2, any other
// failure with status 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var inputErr *validation.InputError
		if errors.As(err, &inputErr) {
			fmt.Fprintln(os.Stderr, "Entrada inválida:")
			for _, msg := range inputErr.Messages() {
				fmt.Fprintf(os.Stderr, "  - %s\n", msg)
			}
			os.Exit(2)
		}
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
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadConfig loads the configuration. The default config file may be
// missing; a file named with --config must exist.
func loadConfig(cmd *cobra.Command) (*config.MainConfig, error) {
	required := cmd.Flags().Changed("config")
	cfg, err := config.LoadMainConfig(cfgFile, required)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger builds the application logger from the configuration.
func newLogger(cfg *config.MainConfig) *slog.Logger {
	return logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)
}

// newRecognizer returns the OCR recognizer, or nil when OCR is disabled.
func newRecognizer(cfg *config.MainConfig, log *slog.Logger) (extractor.Recognizer, error) {
	if !cfg.OCR.Enabled {
		return nil, nil
	}
	rec, err := ocr.NewAzureRecognizer(cfg.OCR, log)
	if err != nil {
		return nil, fmt.Errorf("failed to set up OCR: %w", err)
	}
	return rec, nil
}
