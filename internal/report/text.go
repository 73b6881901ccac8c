// =============================================================================
// NF-e / DANFE Filter - Report Formatter
// =============================================================================
//
// This module renders the processing summary (relatorio.txt) and the
// optional XLSX workbook (relatorio.xlsx). Every list is sorted so the same
// input always produces byte-identical output.
//
// =============================================================================

package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

// Summary is everything the report shows about one run.
type Summary struct {
	Criteria types.FilterCriteria

	HaveRecords    bool
	HaveRenderings bool

	// Records are the retained XML records.
	Records []types.StructuredRecord

	// Groups are the retained, classified invoice groups.
	Groups []types.InvoiceGroup

	// Renderings are the retained DANFEs.
	Renderings []types.Rendering

	// SplitByKind adds per-kind counts.
	SplitByKind bool
}

// Authorized returns the authorized invoice numbers, ascending.
func (s Summary) Authorized() []uint64 {
	return s.numbersWith(types.StatusAuthorized)
}

// Voided returns the voided invoice numbers, ascending.
func (s Summary) Voided() []uint64 {
	return s.numbersWith(types.StatusVoided)
}

// Found returns every retained invoice number, ascending.
func (s Summary) Found() []uint64 {
	out := make([]uint64, 0, len(s.Groups))
	for _, g := range s.Groups {
		out = append(out, g.InvoiceNumber)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s Summary) numbersWith(status types.Status) []uint64 {
	var out []uint64
	for _, g := range s.Groups {
		if g.Status == status {
			out = append(out, g.InvoiceNumber)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RenderingNames returns the retained DANFE entry names, sorted.
func (s Summary) RenderingNames() []string {
	names := make([]string, len(s.Renderings))
	for i, r := range s.Renderings {
		names[i] = r.SourceName
	}
	sort.Strings(names)
	return names
}

// Text renders relatorio.txt.
func Text(s Summary) string {
	var b strings.Builder

	b.WriteString("RELATÓRIO DO PROCESSAMENTO\n\n")
	fmt.Fprintf(&b, "Modo de filtragem: %s\n", s.Criteria.Mode.Label())

	if s.Criteria.HasOrderFilter() {
		fmt.Fprintf(&b, "Pedido filtrado: %s\n", strings.Join(s.Criteria.OrderIDs(), ", "))
	}
	if s.Criteria.HasRangeFilter() {
		fmt.Fprintf(&b, "Intervalo de NF: %d até %d\n", s.Criteria.Range.Low, s.Criteria.Range.High)
	}
	b.WriteString("\n")

	if s.HaveRecords {
		fmt.Fprintf(&b, "XMLs filtrados: %d\n", len(s.Records))
		if s.SplitByKind {
			counts := recordKindCounts(s.Records)
			for _, k := range []types.DocumentKind{types.KindSale, types.KindShipment, types.KindVoidEvent} {
				fmt.Fprintf(&b, "  %s: %d\n", k.Folder(), counts[k])
			}
		}
		fmt.Fprintf(&b, "Notas encontradas: %s\n", formatNumbers(s.Found()))
		fmt.Fprintf(&b, "Autorizadas: %s\n", formatNumbers(s.Authorized()))
		fmt.Fprintf(&b, "Canceladas: %s\n\n", formatNumbers(s.Voided()))
	}

	if s.HaveRenderings {
		fmt.Fprintf(&b, "DANFEs filtradas: %d\n", len(s.Renderings))
		fmt.Fprintf(&b, "Arquivos DANFE: [%s]\n", strings.Join(s.RenderingNames(), ", "))
	}

	return b.String()
}

func recordKindCounts(records []types.StructuredRecord) map[types.DocumentKind]int {
	counts := make(map[types.DocumentKind]int)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}

func formatNumbers(ns []uint64) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
