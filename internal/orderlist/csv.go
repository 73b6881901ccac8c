// =============================================================================
// NF-e / DANFE Filter - Order List Loader
// =============================================================================
//
// This module loads the order ids (pedidos) to filter by from a file, so a
// batch of orders can be filtered in one run. Two formats are accepted:
//   - CSV / TXT: comma, semicolon, tab or pipe separated; one id per cell
//   - XLSX: the first sheet of a workbook
//
// COLUMN SELECTION:
//   If the first row has a header named "pedido", "pedidos", "order" or
//   "xPed" (any case), that column is used. Otherwise the first column is.
//
// Every cell goes through the same normalization as xPed, so "7373-A" is
// read as 7373. Cells without a leading digit (headers, notes) are skipped
// and duplicates are dropped, keeping the first occurrence.
//
// =============================================================================

package orderlist

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/extractor"
)

// headerNames are the accepted order-id column headers, lower case.
var headerNames = map[string]struct{}{
	"pedido":  {},
	"pedidos": {},
	"order":   {},
	"xped":    {},
}

// Load reads order ids from a CSV, TXT or XLSX file.
//
// PARAMETERS:
//   - path: The file path; the format is chosen by extension.
//
// RETURNS:
//   - The order ids in file order, without duplicates.
//   - An error if the file cannot be read or holds no order id.
func Load(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open order list: %w", err)
	}

	var ids []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		ids, err = ParseXLSX(bytes.NewReader(data))
	case ".csv", ".txt", "":
		ids, err = ParseCSV(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("unsupported order list format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("order list %s has no order ids", filepath.Base(path))
	}
	return ids, nil
}

// ParseCSV reads order ids from delimited text. Files saved by Excel in
// windows-1252 are decoded transparently.
func ParseCSV(r io.Reader) ([]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read order list: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xEF\xBB\xBF"))

	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode order list: %w", err)
		}
		raw = decoded
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = detectDelimiter(raw)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return fromRows(rows), nil
}

// detectDelimiter picks the separator used on the first line.
func detectDelimiter(raw []byte) rune {
	line := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		line = raw[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// fromRows selects the order-id column and normalizes its cells.
func fromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	col := 0
	for i, cell := range rows[0] {
		if _, ok := headerNames[strings.ToLower(strings.TrimSpace(cell))]; ok {
			col = i
			break
		}
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		id, ok := extractor.OrderIDFromText(row[col])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
