package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SummarySheet  = "Resumo"
	InvoicesSheet = "Notas"
)

// invoiceHeaders is the header row of the Notas sheet.
var invoiceHeaders = []interface{}{"NF", "Status", "Tipo", "Pedido", "XMLs", "DANFEs", "Arquivos XML"}

// Workbook renders relatorio.xlsx: a Resumo sheet with the same totals as
// the text report, and a Notas sheet with one row per invoice.
func Workbook(s Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(InvoicesSheet); err != nil {
		return nil, fmt.Errorf("failed to create invoices sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummarySheet(f, s, bold); err != nil {
		return nil, err
	}
	if err := writeInvoicesSheet(f, s, bold); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, s Summary, bold int) error {
	rows := [][]interface{}{
		{"Modo de filtragem", s.Criteria.Mode.Label()},
	}
	if s.Criteria.HasOrderFilter() {
		rows = append(rows, []interface{}{"Pedido filtrado", strings.Join(s.Criteria.OrderIDs(), ", ")})
	}
	if s.Criteria.HasRangeFilter() {
		rows = append(rows,
			[]interface{}{"NF inicial", s.Criteria.Range.Low},
			[]interface{}{"NF final", s.Criteria.Range.High},
		)
	}
	if s.HaveRecords {
		rows = append(rows,
			[]interface{}{"XMLs filtrados", len(s.Records)},
			[]interface{}{"Notas encontradas", len(s.Groups)},
			[]interface{}{"Autorizadas", len(s.Authorized())},
			[]interface{}{"Canceladas", len(s.Voided())},
		)
	}
	if s.HaveRenderings {
		rows = append(rows, []interface{}{"DANFEs filtradas", len(s.Renderings)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row %d: %w", i+1, err)
		}
	}

	last := fmt.Sprintf("A%d", len(rows))
	if err := f.SetCellStyle(SummarySheet, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style summary sheet: %w", err)
	}
	return f.SetColWidth(SummarySheet, "A", "B", 24)
}

func writeInvoicesSheet(f *excelize.File, s Summary, bold int) error {
	if err := f.SetSheetRow(InvoicesSheet, "A1", &invoiceHeaders); err != nil {
		return fmt.Errorf("failed to write invoices header: %w", err)
	}
	if err := f.SetCellStyle(InvoicesSheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("failed to style invoices header: %w", err)
	}

	for i, g := range s.Groups {
		names := make([]string, len(g.Records))
		for j, r := range g.Records {
			names[j] = r.SourceName
		}
		row := []interface{}{
			g.InvoiceNumber,
			g.Status.Label(),
			g.Kind().Folder(),
			g.OrderID(),
			len(g.Records),
			len(g.Renderings),
			strings.Join(names, ", "),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(InvoicesSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write invoice %d: %w", g.InvoiceNumber, err)
		}
	}

	return f.SetColWidth(InvoicesSheet, "A", "G", 16)
}
