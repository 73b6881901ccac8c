// =============================================================================
// NF-e / DANFE Filter - Filter Command
// =============================================================================
//
// This file defines the 'filter' command, which runs one filter over
// archives on disk and writes the result ZIP to the output directory.
//
// COMMAND USAGE:
//   nfefilter filter [flags]
//
// FLAGS:
//   --xml-zip      : ZIP of NF-e XML files
//   --danfe-zip    : ZIP of DANFE PDF files
//   --modo         : pedido, intervalo or pedido+intervalo
//   --pedido       : comma-separated order ids
//   --pedidos-file : CSV/TXT/XLSX file with order ids
//   --nf-inicio    : first invoice number of the range (inclusive)
//   --nf-fim       : last invoice number of the range (inclusive)
//   --out          : output directory (default from config)
//   --dry-run      : print the report without writing the ZIP
//
// When --modo is omitted it is inferred from the other flags.
//
// =============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/orderlist"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/pipeline"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
	"github.com/ginjaninja78/nfe-danfe-filter/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	xmlZipPath   string
	danfeZipPath string
	filterMode   string
	orderIDsFlag string
	ordersFile   string
	rangeLow     string
	rangeHigh    string
	outputDir    string
	dryRun       bool
)

// =============================================================================
// FILTER COMMAND DEFINITION
// =============================================================================

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Filter NF-e XMLs and DANFEs into a new ZIP",
	Long: `The filter command reads the XML and/or DANFE archives, keeps the
documents matching the requested order ids and invoice-number range, and
writes resultado_filtrado_<uuid>.zip with:

  XMLs_filtrados/   the retained XML files
  DANFEs_filtrados/ the retained DANFEs of authorized invoices
  relatorio.txt     the processing report (also printed to stdout)
  relatorio.xlsx    the report as a workbook (when enabled)`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runFilter(cmd)
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)

	flags := filterCmd.Flags()
	flags.StringVar(&xmlZipPath, "xml-zip", "", "ZIP archive of NF-e XML files")
	flags.StringVar(&danfeZipPath, "danfe-zip", "", "ZIP archive of DANFE PDF files")
	flags.StringVar(&filterMode, "modo", "", "Filter mode: pedido, intervalo or pedido+intervalo")
	flags.StringVar(&orderIDsFlag, "pedido", "", "Comma-separated order ids")
	flags.StringVar(&ordersFile, "pedidos-file", "", "CSV, TXT or XLSX file with order ids")
	flags.StringVar(&rangeLow, "nf-inicio", "", "First invoice number (inclusive)")
	flags.StringVar(&rangeHigh, "nf-fim", "", "Last invoice number (inclusive)")
	flags.StringVar(&outputDir, "out", "", "Output directory (default from config)")
	flags.BoolVar(&dryRun, "dry-run", false, "Print the report without writing the ZIP")
}

// =============================================================================
// FILTER LOGIC
// =============================================================================

func runFilter(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	recognizer, err := newRecognizer(cfg, log)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: COLLECT THE REQUEST
	// =========================================================================

	orderIDs := types.SplitOrderIDs(orderIDsFlag)
	if ordersFile != "" {
		fromFile, err := orderlist.Load(ordersFile)
		if err != nil {
			return err
		}
		log.Debug("order list loaded", "file", ordersFile, "orders", len(fromFile))
		orderIDs = append(orderIDs, fromFile...)
	}

	records, err := utils.ReadOptionalFile(xmlZipPath)
	if err != nil {
		return err
	}
	renderings, err := utils.ReadOptionalFile(danfeZipPath)
	if err != nil {
		return err
	}

	mode := filterMode
	if mode == "" {
		mode = inferMode(len(orderIDs) > 0, rangeLow != "" || rangeHigh != "")
	}

	// =========================================================================
	// STEP 2: RUN THE PIPELINE
	// =========================================================================

	result, err := pipeline.New(cfg, log, recognizer).Run(cmd.Context(), pipeline.Input{
		RecordArchive:    records,
		RenderingArchive: renderings,
		Mode:             mode,
		OrderIDs:         orderIDs,
		Low:              rangeLow,
		High:             rangeHigh,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, result.Report)

	if dryRun {
		return nil
	}

	// =========================================================================
	// STEP 3: WRITE THE RESULT
	// =========================================================================

	dir := outputDir
	if dir == "" {
		dir = cfg.Output.Dir
	}
	name := utils.GenerateOutputFileName(cfg.Output.FileNameFormat, map[string]string{"uuid": result.RunID, "run": result.RunID})

	path, err := utils.WriteOutputFile(dir, name, result.Archive)
	if err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	fmt.Fprintf(out, "\nArquivo gerado: %s\n", path)
	return nil
}

// inferMode picks the filter mode from the flags that were given.
func inferMode(hasOrders, hasRange bool) string {
	switch {
	case hasOrders && hasRange:
		return string(types.ModeOrderAndRange)
	case hasRange:
		return string(types.ModeRange)
	default:
		return string(types.ModeOrder)
	}
}
