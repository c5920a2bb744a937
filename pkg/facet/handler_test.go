package facet

import (
	"testing"

	"github.com/stenmark/stone-finder/pkg/types"
)

var testStones = []*types.MockItem{
	{
		Id: 1, Sku: "SAP-001", Title: "Blue Sapphire", Price: 120000, Weight: 1.2, Stock: 3,
		Strings: map[types.Dimension]string{
			types.DimType: "sapphire", types.DimColor: "blue", types.DimCut: "oval",
			types.DimClarity: "VS1", types.DimOrigin: "Ceylon",
		},
		Flags: map[types.Flag]bool{types.FlagHasCertification: true},
	},
	{
		Id: 2, Sku: "SAP-002", Title: "Pink Sapphire", Price: 250000, Weight: 0.9, Stock: 1,
		Strings: map[types.Dimension]string{
			types.DimType: "sapphire", types.DimColor: "pink", types.DimCut: "cushion",
			types.DimClarity: "VVS1", types.DimOrigin: "Madagascar",
		},
	},
	{
		Id: 3, Sku: "RUB-001", Title: "Burmese Ruby", Price: 310000, Weight: 1.5, Stock: 2,
		Strings: map[types.Dimension]string{
			types.DimType: "ruby", types.DimColor: "red", types.DimCut: "oval",
			types.DimClarity: "SI1", types.DimOrigin: "Burma",
		},
		Flags: map[types.Flag]bool{types.FlagHasCertification: true, types.FlagHasImages: true},
	},
	{
		Id: 4, Sku: "EME-001", Title: "Colombian Emerald", Price: 180000, Weight: 2.1, Stock: 0,
		Strings: map[types.Dimension]string{
			types.DimType: "emerald", types.DimColor: "green", types.DimCut: "emerald",
			types.DimClarity: "VS2", types.DimOrigin: "Colombia",
		},
	},
	{
		Id: 5, Sku: "SPI-001", Title: "Red Spinel", Price: 90000, Weight: 1.1, Stock: 5,
		Strings: map[types.Dimension]string{
			types.DimType: "spinel", types.DimColor: "red", types.DimCut: "round",
			types.DimClarity: "IF", types.DimOrigin: "Vietnam",
		},
	},
}

func newTestHandler() (*Handler, *types.ItemList) {
	h := NewHandler()
	base := types.NewItemList()
	for _, s := range testStones {
		h.HandleItem(s)
		base.Add(s)
	}
	return h, base
}

func findDimension(res *Result, dim types.Dimension) *DimensionResult {
	for _, d := range res.Facets {
		if d.Dimension == dim {
			return d
		}
	}
	return nil
}

func countOf(d *DimensionResult, value string) int {
	for _, v := range d.Values {
		if v.Value == value {
			return v.Count
		}
	}
	return -1
}

func TestHandlerMatchListIntersectsBase(t *testing.T) {
	h, _ := newTestHandler()
	filters := types.NewFilters().WithTerm(types.DimColor, "red")

	ids := h.MatchList(filters, types.NewItemList(1, 2, 3))
	if ids.Len() != 1 || !ids.Contains(3) {
		t.Errorf("Expected only id 3 but got %v", ids.Ids())
	}
}

func TestHandlerSelfExcludingCounts(t *testing.T) {
	h, base := newTestHandler()

	before := h.Facets(types.NewFilters(), base)
	after := h.Facets(types.NewFilters().WithTerm(types.DimColor, "red"), base)

	colorBefore := findDimension(before, types.DimColor)
	colorAfter := findDimension(after, types.DimColor)
	if colorBefore == nil || colorAfter == nil {
		t.Fatal("Expected a color dimension in both results")
	}
	for _, v := range colorBefore.Values {
		if got := countOf(colorAfter, v.Value); got != v.Count {
			t.Errorf("Expected color %s to keep count %d but got %d", v.Value, v.Count, got)
		}
	}

	typeAfter := findDimension(after, types.DimType)
	if got := countOf(typeAfter, "ruby"); got != 1 {
		t.Errorf("Expected 1 ruby among red stones but got %v", got)
	}
	if got := countOf(typeAfter, "spinel"); got != 1 {
		t.Errorf("Expected 1 spinel among red stones but got %v", got)
	}
	if got := countOf(typeAfter, "sapphire"); got != -1 {
		t.Errorf("Expected sapphire to be hidden at zero but got count %v", got)
	}
	if after.TotalHits != 2 {
		t.Errorf("Expected 2 hits but got %v", after.TotalHits)
	}
}

func TestHandlerSelectedValueStaysVisibleAtZero(t *testing.T) {
	h, base := newTestHandler()
	filters := types.NewFilters().
		WithTerm(types.DimType, "sapphire").
		WithTerm(types.DimColor, "green")

	res := h.Facets(filters, base)
	color := findDimension(res, types.DimColor)
	if color == nil {
		t.Fatal("Expected a color dimension")
	}
	found := false
	for _, v := range color.Values {
		if v.Value == "green" {
			found = true
			if v.Count != 0 || !v.Selected {
				t.Errorf("Expected green selected at zero but got count %d selected %v", v.Count, v.Selected)
			}
		}
	}
	if !found {
		t.Error("Expected selected green to stay visible")
	}
	if res.TotalHits != 0 {
		t.Errorf("Expected no hits but got %v", res.TotalHits)
	}
}

func TestHandlerClarityOrderedByGrade(t *testing.T) {
	h, base := newTestHandler()

	res := h.Facets(types.NewFilters(), base)
	clarity := findDimension(res, types.DimClarity)
	if clarity == nil {
		t.Fatal("Expected a clarity dimension")
	}
	expected := []string{"IF", "VVS1", "VS1", "VS2", "SI1"}
	if len(clarity.Values) != len(expected) {
		t.Fatalf("Expected %d clarity values but got %d", len(expected), len(clarity.Values))
	}
	for i, want := range expected {
		if clarity.Values[i].Value != want {
			t.Errorf("Expected %s at position %d but got %s", want, i, clarity.Values[i].Value)
		}
	}
}

func TestHandlerTypeOrderedByLabel(t *testing.T) {
	h, base := newTestHandler()

	res := h.Facets(types.NewFilters(), base)
	d := findDimension(res, types.DimType)
	if d == nil {
		t.Fatal("Expected a type dimension")
	}
	expected := []string{"emerald", "ruby", "sapphire", "spinel"}
	for i, want := range expected {
		if d.Values[i].Value != want {
			t.Errorf("Expected %s at position %d but got %s", want, i, d.Values[i].Value)
		}
	}
}

func TestHandlerRangeExtents(t *testing.T) {
	h, base := newTestHandler()
	filters := types.NewFilters().WithPrice(&types.PriceRange{Min: 100000, Max: 200000})

	res := h.Facets(filters, base)
	if res.TotalHits != 2 {
		t.Errorf("Expected 2 hits but got %v", res.TotalHits)
	}
	if res.Price == nil {
		t.Fatal("Expected price extents")
	}
	if res.Price.Min != 90000 || res.Price.Max != 310000 {
		t.Errorf("Expected price extents 90000..310000 but got %v..%v", res.Price.Min, res.Price.Max)
	}
	if !res.Price.Selected {
		t.Error("Expected price range to be marked selected")
	}
	if res.Weight == nil {
		t.Fatal("Expected weight extents")
	}
	if res.Weight.Min != 1.2 || res.Weight.Max != 2.1 {
		t.Errorf("Expected weight extents 1.2..2.1 but got %v..%v", res.Weight.Min, res.Weight.Max)
	}
}

func TestHandlerFlagCounts(t *testing.T) {
	h, base := newTestHandler()

	res := h.Facets(types.NewFilters(), base)
	counts := map[types.Flag]int{}
	for _, f := range res.Flags {
		counts[f.Flag] = f.Count
	}
	if counts[types.FlagInStock] != 4 {
		t.Errorf("Expected 4 stones in stock but got %v", counts[types.FlagInStock])
	}
	if counts[types.FlagHasCertification] != 2 {
		t.Errorf("Expected 2 certified stones but got %v", counts[types.FlagHasCertification])
	}
	if counts[types.FlagHasImages] != 1 {
		t.Errorf("Expected 1 stone with images but got %v", counts[types.FlagHasImages])
	}

	withFlag := h.Facets(types.NewFilters().WithFlag(types.FlagInStock), base)
	for _, f := range withFlag.Flags {
		if f.Flag == types.FlagInStock {
			if f.Count != 4 || !f.Selected {
				t.Errorf("Expected in stock to stay at 4 selected but got %d selected %v", f.Count, f.Selected)
			}
		}
	}
}

func TestHandlerUpsertRelinks(t *testing.T) {
	h, base := newTestHandler()
	old := testStones[4]

	updated := *old
	updated.Price = 95000
	updated.Strings = map[types.Dimension]string{
		types.DimType: "spinel", types.DimColor: "blue", types.DimCut: "round",
		types.DimClarity: "IF", types.DimOrigin: "Vietnam",
	}
	h.RemoveItem(old)
	h.HandleItem(&updated)

	red := h.MatchList(types.NewFilters().WithTerm(types.DimColor, "red"), base)
	if red.Contains(5) {
		t.Error("Expected id 5 to leave the red posting list")
	}
	blue := h.MatchList(types.NewFilters().WithTerm(types.DimColor, "blue"), base)
	if !blue.Contains(5) {
		t.Errorf("Expected id 5 under blue but got %v", blue.Ids())
	}
}
