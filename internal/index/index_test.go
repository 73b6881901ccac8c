package index

import (
	"reflect"
	"testing"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/types"
)

func rec(name string, n uint64, order string) types.StructuredRecord {
	return types.StructuredRecord{
		SourceName:    name,
		InvoiceNumber: types.KnownNumber(n),
		OrderID:       order,
		Kind:          types.KindSale,
		Parsed:        true,
	}
}

func rendering(name string, n uint64) types.Rendering {
	return types.Rendering{SourceName: name, InvoiceNumber: types.KnownNumber(n)}
}

func TestBuild_GroupsAscendingAndDropsUnknown(t *testing.T) {
	idx := Build([]types.StructuredRecord{
		rec("c.xml", 30, ""),
		rec("a.xml", 10, ""),
		{SourceName: "bad.xml"},
		rec("a2.xml", 10, ""),
	})

	if got := idx.Numbers(); !reflect.DeepEqual(got, []uint64{10, 30}) {
		t.Fatalf("Numbers() = %v, want [10 30]", got)
	}
	g, ok := idx.Group(10)
	if !ok || len(g.Records) != 2 {
		t.Fatalf("group 10 = %+v", g)
	}
	if _, ok := idx.Group(99); ok {
		t.Error("unexpected group 99")
	}
}

func TestFilterRecords(t *testing.T) {
	records := []types.StructuredRecord{
		rec("a.xml", 100, "7373"),
		rec("b.xml", 150, "7374"),
		rec("c.xml", 250, "7373"),
		{SourceName: "unknown.xml", OrderID: "7373"},
		rec("d.xml", 149, "7374"),
		rec("e.xml", 251, "7373"),
	}

	tests := []struct {
		name     string
		criteria types.FilterCriteria
		want     []string
	}{
		{"order only", types.NewFilterCriteria(types.ModeOrder, []string{"7373"}, nil), []string{"a.xml", "c.xml", "e.xml"}},
		{"range only", types.NewFilterCriteria(types.ModeRange, nil, &types.NumberRange{Low: 100, High: 200}), []string{"a.xml", "b.xml", "d.xml"}},
		{"order and range", types.NewFilterCriteria(types.ModeOrderAndRange, []string{"7373"}, &types.NumberRange{Low: 100, High: 200}), []string{"a.xml"}},
		{"inclusive bounds", types.NewFilterCriteria(types.ModeRange, nil, &types.NumberRange{Low: 150, High: 250}), []string{"b.xml", "c.xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range FilterRecords(records, tt.criteria) {
				got = append(got, r.SourceName)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterRenderings_WithRecords(t *testing.T) {
	idx := Build([]types.StructuredRecord{rec("a.xml", 100, "1"), rec("b.xml", 106, "1")})
	g, _ := idx.Group(106)
	g.Status = types.StatusVoided
	g100, _ := idx.Group(100)
	g100.Status = types.StatusAuthorized

	criteria := types.NewFilterCriteria(types.ModeRange, nil, &types.NumberRange{Low: 100, High: 200})
	got := FilterRenderings([]types.Rendering{
		rendering("NFe_001-000000100.pdf", 100),
		rendering("NFe_001-000000106.pdf", 106),
		rendering("NFe_001-000000150.pdf", 150),
		{SourceName: "danfe.pdf"},
	}, criteria, idx, true)

	if len(got) != 1 || got[0].SourceName != "NFe_001-000000100.pdf" {
		t.Fatalf("got %+v", got)
	}
	if len(g100.Renderings) != 1 {
		t.Errorf("rendering not attached to group 100")
	}
}

func TestFilterRenderings_WithoutRecords(t *testing.T) {
	criteria := types.NewFilterCriteria(types.ModeRange, nil, &types.NumberRange{Low: 90, High: 100})
	got := FilterRenderings([]types.Rendering{
		rendering("DANFE_0099.pdf", 99),
		rendering("DANFE_0101.pdf", 101),
	}, criteria, Build(nil), false)

	if len(got) != 1 || got[0].SourceName != "DANFE_0099.pdf" {
		t.Fatalf("got %+v", got)
	}
}
