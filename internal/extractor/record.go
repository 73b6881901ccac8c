// =============================================================================
// NF-e / DANFE Filter - Field Extractor
// =============================================================================
//
// This module turns the raw bytes of an NF-e XML document into a
// StructuredRecord. It never fails the batch: anything it cannot read is
// reported as "unknown" and the record simply does not join a group.
//
// PARSING RULES:
//   - Elements are matched by local name, so namespaces and prefixes are
//     ignored. The first occurrence in document order wins.
//   - ISO-8859-1 and windows-1252 documents are decoded transparently.
//   - Cancellation events (procEventoNFe, envEvento, ...) carry the invoice
//     number inside the 44-digit access key (chNFe).
//
// =============================================================================

package extractor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// =============================================================================
// EXTRACTOR
// =============================================================================

// Extractor reads StructuredRecords out of XML documents.
type Extractor struct {
	shipmentCFOPs    map[string]struct{}
	shipmentPurposes map[string]struct{}
	eventRoots       map[string]struct{}
	cancelledStatus  map[string]struct{}
	cancelEventType  string
	cancelKeyword    string
	keyOffset        int
	keyLength        int
	logger           *slog.Logger
}

// New creates an Extractor from the classification settings.
func New(cfg config.ClassificationSettings, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Extractor{
		shipmentCFOPs:    toSet(cfg.ShipmentCFOPs),
		shipmentPurposes: toSet(cfg.ShipmentPurposeCodes),
		eventRoots:       toSet(cfg.EventRoots),
		cancelledStatus:  toSet(cfg.CancelledStatusCodes),
		cancelEventType:  strings.TrimSpace(cfg.CancelEventType),
		cancelKeyword:    strings.ToLower(cfg.CancelKeyword),
		keyOffset:        cfg.AccessKeyOffset,
		keyLength:        cfg.AccessKeyLength,
		logger:           logger,
	}
}

// rawFields holds the element values collected during the token scan.
type rawFields struct {
	root        string
	values      map[string]string
	cfops       []string
	statusCodes []string
}

// Elements captured once (first occurrence).
var singleFields = map[string]struct{}{
	"nNF":        {},
	"xPed":       {},
	"finNFe":     {},
	"chNFe":      {},
	"tpEvento":   {},
	"xEvento":    {},
	"descEvento": {},
	"xJust":      {},
	"xMotivo":    {},
}

// =============================================================================
// RECORD EXTRACTION
// =============================================================================

// ExtractRecord parses one XML document.
//
// PARAMETERS:
//   - name: The archive entry name, kept as SourceName.
//   - data: The document bytes.
//
// RETURNS:
//   - The StructuredRecord. Unreadable documents come back with Parsed=false
//     and every field unknown.
func (e *Extractor) ExtractRecord(name string, data []byte) types.StructuredRecord {
	record := types.StructuredRecord{
		SourceName: name,
		Kind:       types.KindUnknown,
	}

	fields, err := scanFields(data)
	if err != nil {
		e.logger.Debug("xml not readable", "entry", name, "error", err)
		return record
	}
	record.Parsed = true
	record.RootElement = fields.root
	record.EventType = fields.values["tpEvento"]
	record.StatusCodes = fields.statusCodes
	record.EventDescription = firstNonEmpty(fields.values["xEvento"], fields.values["descEvento"])
	record.Reason = firstNonEmpty(fields.values["xJust"], fields.values["xMotivo"])

	if id, ok := OrderIDFromText(fields.values["xPed"]); ok {
		record.OrderID = id
	}

	record.VoidSignal = e.hasVoidSignal(record)

	if _, isEvent := e.eventRoots[fields.root]; isEvent {
		// Only cancellation events belong to an invoice group. Other events
		// (carta de correcao, manifestacao) stay unknown.
		if !record.VoidSignal {
			e.logger.Debug("ignoring non-cancellation event", "entry", name, "tpEvento", record.EventType)
			return record
		}
		record.Kind = types.KindVoidEvent
		if n, ok := e.numberFromAccessKey(fields.values["chNFe"]); ok {
			record.InvoiceNumber = n
		}
		return record
	}

	if n, ok := types.ParseInvoiceNumber(fields.values["nNF"]); ok {
		record.InvoiceNumber = n
	}

	if record.InvoiceNumber.Valid || len(fields.cfops) > 0 {
		record.Kind = e.documentKind(fields)
	}

	return record
}

// documentKind applies the shipment heuristics; anything else is a sale.
func (e *Extractor) documentKind(fields rawFields) types.DocumentKind {
	for _, cfop := range fields.cfops {
		if _, ok := e.shipmentCFOPs[cfop]; ok {
			return types.KindShipment
		}
	}
	if _, ok := e.shipmentPurposes[fields.values["finNFe"]]; ok {
		return types.KindShipment
	}
	return types.KindSale
}

// hasVoidSignal reports whether the document content asserts or reports a
// cancellation.
func (e *Extractor) hasVoidSignal(r types.StructuredRecord) bool {
	if r.EventType != "" && r.EventType == e.cancelEventType {
		return true
	}
	if _, isEvent := e.eventRoots[r.RootElement]; isEvent && r.EventType == "" {
		return true
	}
	for _, code := range r.StatusCodes {
		if _, ok := e.cancelledStatus[code]; ok {
			return true
		}
	}
	if e.cancelKeyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.EventDescription), e.cancelKeyword) ||
		strings.Contains(strings.ToLower(r.Reason), e.cancelKeyword)
}

// numberFromAccessKey slices the invoice number out of a chNFe value.
func (e *Extractor) numberFromAccessKey(key string) (types.InvoiceNumber, bool) {
	key = strings.TrimSpace(key)
	end := e.keyOffset + e.keyLength
	if len(key) < end {
		return types.InvoiceNumber{}, false
	}
	return types.ParseInvoiceNumber(key[e.keyOffset:end])
}

// =============================================================================
// TOKEN SCAN
// =============================================================================

// scanFields walks the document once and collects the fields of interest.
func scanFields(data []byte) (rawFields, error) {
	fields := rawFields{values: make(map[string]string)}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charsetReader

	var (
		current string
		text    strings.Builder
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rawFields{}, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if fields.root == "" {
				fields.root = local
			}
			if isCaptured(local) {
				current = local
				text.Reset()
			} else {
				current = ""
			}
		case xml.CharData:
			if current != "" {
				text.Write(t)
			}
		case xml.EndElement:
			if current == "" || t.Name.Local != current {
				continue
			}
			value := strings.TrimSpace(text.String())
			switch current {
			case "CFOP":
				fields.cfops = append(fields.cfops, value)
			case "cStat":
				fields.statusCodes = append(fields.statusCodes, value)
			default:
				if _, seen := fields.values[current]; !seen {
					fields.values[current] = value
				}
			}
			current = ""
		}
	}

	if fields.root == "" {
		return rawFields{}, fmt.Errorf("no root element")
	}
	return fields, nil
}

func isCaptured(local string) bool {
	if local == "CFOP" || local == "cStat" {
		return true
	}
	_, ok := singleFields[local]
	return ok
}

// charsetReader decodes the legacy charsets fiscal systems still emit.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
