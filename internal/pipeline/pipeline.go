// =============================================================================
// NF-e / DANFE Filter - Processing Pipeline
// =============================================================================
//
// This module orchestrates one filter run, from the uploaded archives to the
// result archive. A run is single-threaded and keeps everything in memory;
// nothing is shared between runs, so concurrent runs need no locking.
//
// PROCESSING PIPELINE:
//   1. Validate the request
//   2. Read the XML and DANFE archives
//   3. Extract a StructuredRecord from every XML
//   4. Filter the records and group them by invoice number
//   5. Classify every group as authorized or voided
//   6. Resolve DANFE invoice numbers and filter the DANFEs
//   7. Render the reports
//   8. Build the result archive
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/archive"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/classifier"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/extractor"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/index"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/pdftext"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/report"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/validation"
)

// =============================================================================
// INPUT AND RESULT STRUCTURES
// =============================================================================

// Input is one filter request. A nil archive means it was not supplied.
type Input struct {
	RecordArchive    []byte
	RenderingArchive []byte

	Mode     string
	OrderIDs []string
	Low      string
	High     string
}

// Result is the outcome of a successful run. It is built once and not
// modified afterwards.
type Result struct {
	// RunID correlates the log lines of one run.
	RunID string

	Criteria types.FilterCriteria

	// Records and Renderings are the retained documents.
	Records    []types.StructuredRecord
	Renderings []types.Rendering

	// Groups are the retained invoice groups, ascending, classified.
	Groups []types.InvoiceGroup

	Authorized []uint64
	Voided     []uint64

	// Report is the text of relatorio.txt.
	Report string

	// Archive is the result ZIP.
	Archive []byte

	Stats Stats
}

// Stats contains run statistics.
type Stats struct {
	RecordsRead    int
	RenderingsRead int
	ProcessingTime time.Duration
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline holds the components shared by every run.
type Pipeline struct {
	cfg        *config.MainConfig
	extractor  *extractor.Extractor
	chain      *extractor.Chain
	classifier *classifier.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a Pipeline.
//
// PARAMETERS:
//   - cfg: The application configuration.
//   - logger: The base logger; nil discards logs.
//   - recognizer: The OCR recognizer; nil disables the OCR strategy.
func New(cfg *config.MainConfig, logger *slog.Logger, recognizer extractor.Recognizer) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	pdf := pdftext.New(cfg.OCR.MaxPages)
	strategies := []extractor.Strategy{
		extractor.FilenameStrategy(),
		extractor.TextStrategy(pdf, logger),
	}
	if recognizer != nil {
		strategies = append(strategies, extractor.OCRStrategy(pdf, recognizer, cfg.OCR.MaxPages, logger))
	}

	return &Pipeline{
		cfg:        cfg,
		extractor:  extractor.New(cfg.Classification, logger),
		chain:      extractor.NewChain(logger, strategies...),
		classifier: classifier.New(cfg.Classification, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes one filter run.
//
// RETURNS:
//   - The Result.
//   - A validation.ErrInput error when the request is invalid; no archive
//     is produced in that case. Other errors are infrastructure failures.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	start := p.now()
	runID := uuid.NewString()
	log := p.logger.With("run_id", runID)

	// =========================================================================
	// STEP 1: VALIDATE THE REQUEST
	// =========================================================================

	haveRecords := in.RecordArchive != nil
	haveRenderings := in.RenderingArchive != nil

	criteria, err := validation.Validate(validation.Request{
		Mode:           in.Mode,
		OrderIDs:       in.OrderIDs,
		Low:            in.Low,
		High:           in.High,
		HaveRecords:    haveRecords,
		HaveRenderings: haveRenderings,
	})
	if err != nil {
		log.Info("request rejected", "error", err)
		return nil, err
	}

	log.Info("processing started",
		"mode", criteria.Mode,
		"orders", criteria.OrderIDs(),
		"xml_archive", haveRecords,
		"danfe_archive", haveRenderings,
	)

	// =========================================================================
	// STEP 2: READ THE ARCHIVES
	// =========================================================================

	var recordEntries, renderingEntries []archive.Entry
	if haveRecords {
		recordEntries, err = archive.Read(in.RecordArchive, p.cfg.Archive.RecordExtensions, log)
		if err != nil {
			return nil, validation.NewInputError("xml_zip", "", "archive_corrupt", "o arquivo de XMLs não é um ZIP válido")
		}
	}
	if haveRenderings {
		renderingEntries, err = archive.Read(in.RenderingArchive, p.cfg.Archive.RenderingExtensions, log)
		if err != nil {
			return nil, validation.NewInputError("danfe_zip", "", "archive_corrupt", "o arquivo de DANFEs não é um ZIP válido")
		}
	}

	log.Debug("archives read", "xmls", len(recordEntries), "danfes", len(renderingEntries))

	// =========================================================================
	// STEP 3: EXTRACT RECORDS
	// =========================================================================

	records := make([]types.StructuredRecord, 0, len(recordEntries))
	recordData := make(map[string][]byte, len(recordEntries))
	for _, e := range recordEntries {
		records = append(records, p.extractor.ExtractRecord(e.Name, e.Data))
		recordData[e.Name] = e.Data
	}

	// =========================================================================
	// STEP 4: FILTER AND GROUP
	// =========================================================================

	retained := index.FilterRecords(records, criteria)
	idx := index.Build(retained)

	log.Debug("records filtered", "retained", len(retained), "groups", idx.Len())

	// =========================================================================
	// STEP 5: CLASSIFY
	// =========================================================================
	// Cancellation events are indexed over the whole record set, so an
	// event excluded by the filters still voids its invoice.

	events := classifier.BuildEventIndex(records)
	p.classifier.ClassifyAll(idx.Groups(), events)

	// =========================================================================
	// STEP 6: RESOLVE AND FILTER DANFES
	// =========================================================================

	renderings := make([]types.Rendering, 0, len(renderingEntries))
	renderingData := make(map[string][]byte, len(renderingEntries))
	for _, e := range renderingEntries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing cancelled: %w", err)
		}
		renderings = append(renderings, p.chain.ExtractRendering(ctx, e.Name, e.Data))
		renderingData[e.Name] = e.Data
	}

	keptRenderings := index.FilterRenderings(renderings, criteria, idx, haveRecords)

	// =========================================================================
	// STEP 7: RENDER THE REPORTS
	// =========================================================================

	summary := report.Summary{
		Criteria:       criteria,
		HaveRecords:    haveRecords,
		HaveRenderings: haveRenderings,
		Records:        retained,
		Groups:         idx.Groups(),
		Renderings:     keptRenderings,
		SplitByKind:    p.cfg.Output.SplitByKind,
	}
	text := report.Text(summary)

	var workbook []byte
	if p.cfg.Output.WorkbookEnabled {
		workbook, err = report.Workbook(summary)
		if err != nil {
			return nil, fmt.Errorf("failed to render workbook: %w", err)
		}
	}

	// =========================================================================
	// STEP 8: BUILD THE RESULT ARCHIVE
	// =========================================================================

	out, err := p.buildArchive(retained, recordData, keptRenderings, renderingData, idx, text, workbook)
	if err != nil {
		return nil, fmt.Errorf("failed to build result archive: %w", err)
	}

	result := &Result{
		RunID:      runID,
		Criteria:   criteria,
		Records:    retained,
		Renderings: keptRenderings,
		Groups:     idx.Groups(),
		Authorized: summary.Authorized(),
		Voided:     summary.Voided(),
		Report:     text,
		Archive:    out,
		Stats: Stats{
			RecordsRead:    len(records),
			RenderingsRead: len(renderings),
			ProcessingTime: p.now().Sub(start),
		},
	}

	log.Info("processing finished",
		"xmls", len(retained),
		"danfes", len(keptRenderings),
		"authorized", len(result.Authorized),
		"voided", len(result.Voided),
		"elapsed", result.Stats.ProcessingTime,
	)

	return result, nil
}

// buildArchive writes the retained documents and the reports.
func (p *Pipeline) buildArchive(
	records []types.StructuredRecord,
	recordData map[string][]byte,
	renderings []types.Rendering,
	renderingData map[string][]byte,
	idx *index.Index,
	text string,
	workbook []byte,
) ([]byte, error) {
	out := p.cfg.Output
	w := archive.NewWriter(p.now())

	for _, r := range records {
		folder := ""
		if out.SplitByKind {
			folder = r.Kind.Folder()
		}
		if err := p.add(w, recordData[r.SourceName], out.RecordPrefix, folder, r.SourceName); err != nil {
			return nil, err
		}
	}

	for _, r := range renderings {
		folder := ""
		if out.SplitByKind {
			if g, ok := idx.Group(r.InvoiceNumber.Value); ok {
				folder = g.Kind().Folder()
			}
		}
		if err := p.add(w, renderingData[r.SourceName], out.RenderingPrefix, folder, r.SourceName); err != nil {
			return nil, err
		}
	}

	if err := w.Add([]byte(text), out.ReportPath); err != nil {
		return nil, err
	}
	if workbook != nil {
		if err := w.Add(workbook, out.WorkbookPath); err != nil {
			return nil, err
		}
	}

	return w.Bytes()
}

// add writes a document entry. A name repeated inside the uploaded archive
// is written once.
func (p *Pipeline) add(w *archive.Writer, data []byte, parts ...string) error {
	err := w.Add(data, parts...)
	if errors.Is(err, archive.ErrDuplicateEntry) {
		p.logger.Warn("skipping repeated entry", "entry", archive.Join(parts...))
		return nil
	}
	return err
}
