package orderlist

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"single column with header", "pedido\n7373\n7374\n7373\n", []string{"7373", "7374"}},
		{"header selects column", "cliente;pedido;obs\nACME;7373-A;urgente\nBeta;12345678;\n", []string{"7373", "12345"}},
		{"no header", "7373\n8888\n", []string{"7373", "8888"}},
		{"bom and blanks", "\xEF\xBB\xBFPedido\n\n 4321 \nobs\n", []string{"4321"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCSV(strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCSV_Windows1252(t *testing.T) {
	// "Pedido n\xBA" is "Pedido nº" in windows-1252.
	got, err := ParseCSV(strings.NewReader("Pedido n\xBA\r\n7373\r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"7373"}) {
		t.Errorf("got %v", got)
	}
}

func TestLoad_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{
		{"Cliente", "Pedido"},
		{"ACME", "7373"},
		{"Beta", 98765},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("write row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "pedidos.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"7373", "98765"}) {
		t.Errorf("got %v", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "vazio.csv")
	if err := os.WriteFile(empty, []byte("pedido\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); err == nil {
		t.Error("expected error for a list without ids")
	}

	if _, err := Load(filepath.Join(dir, "pedidos.json")); err == nil {
		t.Error("expected error for a missing file")
	}

	other := filepath.Join(dir, "pedidos.json")
	if err := os.WriteFile(other, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(other); err == nil {
		t.Error("expected error for an unsupported format")
	}
}
