package validation

import (
	"errors"
	"testing"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

func TestValidate_Valid(t *testing.T) {
	criteria, err := Validate(Request{
		Mode:        "pedido+intervalo",
		OrderIDs:    []string{" 7373 ", "", "7374"},
		Low:         "100",
		High:        "200",
		HaveRecords: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if criteria.Mode != types.ModeOrderAndRange {
		t.Errorf("Mode = %q", criteria.Mode)
	}
	if got := criteria.OrderIDs(); len(got) != 2 || got[0] != "7373" || got[1] != "7374" {
		t.Errorf("OrderIDs() = %v", got)
	}
	if criteria.Range == nil || criteria.Range.Low != 100 || criteria.Range.High != 200 {
		t.Errorf("Range = %+v", criteria.Range)
	}
}

func TestValidate_RangeOnlyWithRenderings(t *testing.T) {
	criteria, err := Validate(Request{Mode: "intervalo", Low: "90", High: "100", HaveRenderings: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if criteria.HasOrderFilter() {
		t.Error("range mode must not carry an order filter")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		req      Request
		wantRule string
	}{
		{"no archives", Request{Mode: "intervalo", Low: "1", High: "2"}, "archive_required"},
		{"unknown mode", Request{Mode: "tudo", HaveRecords: true}, "mode_unknown"},
		{"missing order", Request{Mode: "pedido", HaveRecords: true}, "order_required"},
		{"non numeric order", Request{Mode: "pedido", OrderIDs: []string{"73A3"}, HaveRecords: true}, "order_numeric"},
		{"order with renderings only", Request{Mode: "pedido", OrderIDs: []string{"7373"}, HaveRenderings: true}, "order_needs_xml"},
		{"missing bound", Request{Mode: "intervalo", Low: "1", HaveRecords: true}, "range_required"},
		{"negative bound", Request{Mode: "intervalo", Low: "-1", High: "5", HaveRecords: true}, "range_numeric"},
		{"inverted range", Request{Mode: "intervalo", Low: "200", High: "100", HaveRecords: true}, "range_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.req)
			if !errors.Is(err, ErrInput) {
				t.Fatalf("expected ErrInput, got %v", err)
			}
			var inputErr *InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("expected *InputError, got %T", err)
			}
			found := false
			for _, ve := range inputErr.Errors {
				if ve.Rule == tt.wantRule {
					found = true
				}
			}
			if !found {
				t.Errorf("rule %q not reported: %v", tt.wantRule, inputErr.Messages())
			}
		})
	}
}

func TestNewInputError(t *testing.T) {
	err := NewInputError("xml_zip", "", "archive_corrupt", "arquivo não é um ZIP válido")
	if !errors.Is(err, ErrInput) {
		t.Error("expected ErrInput")
	}
	if err.Error() != "arquivo não é um ZIP válido" {
		t.Errorf("Error() = %q", err.Error())
	}
}
