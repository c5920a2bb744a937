package index

import (
	"context"
	"testing"

	"github.com/stenmark/stone-finder/pkg/facet"
	"github.com/stenmark/stone-finder/pkg/types"
)

func fixtureStones() []types.Item {
	return []types.Item{
		&Stone{Id: 1, Sku: "ST-1001", Title: "Blue Ceylon Sapphire", StoneType: "sapphire", Color: "blue", Cut: "oval", Clarity: "VS1", Origin: "Ceylon", Price: 120000, Weight: 1.2, Stock: 3, Images: []string{"1.jpg"}, Certification: &Certification{Lab: "GIA", Number: "r1"}},
		&Stone{Id: 2, Sku: "ST-1002", Title: "Pink Sapphire", StoneType: "sapphire", Color: "pink", Cut: "cushion", Clarity: "VVS1", Origin: "Madagascar", Price: 250000, Weight: 0.9, Stock: 1},
		&Stone{Id: 3, Sku: "ST-1003", Title: "Burmese Ruby", StoneType: "ruby", Color: "red", Cut: "oval", Clarity: "SI1", Origin: "Burma", Price: 310000, Weight: 1.5, Stock: 2, Images: []string{"3.jpg"}, Certification: &Certification{Lab: "GIA", Number: "r3"}},
		&Stone{Id: 4, Sku: "ST-1004", Title: "Colombian Emerald", StoneType: "emerald", Color: "green", Cut: "emerald", Clarity: "VS2", Origin: "Colombia", Price: 180000, Weight: 2.1, Stock: 0},
		&Stone{Id: 5, Sku: "ST-1005", Title: "Red Spinel", StoneType: "spinel", Color: "red", Cut: "round", Clarity: "IF", Origin: "Vietnam", Price: 90000, Weight: 1.1, Stock: 5},
	}
}

func newTestIndex(t *testing.T) *ItemIndex {
	t.Helper()
	idx := NewItemIndex()
	if err := idx.HandleItems(fixtureStones()); err != nil {
		t.Fatalf("Expected fixture load to succeed but got %v", err)
	}
	return idx
}

func matchIds(t *testing.T, idx *ItemIndex, f *types.Filters) []types.ItemId {
	t.Helper()
	list, err := idx.Match(context.Background(), f)
	if err != nil {
		t.Fatalf("Expected match to succeed but got %v", err)
	}
	return list.Ids()
}

func findDimension(res *facet.Result, dim types.Dimension) *facet.DimensionResult {
	for _, dr := range res.Facets {
		if dr.Dimension == dim {
			return dr
		}
	}
	return nil
}

func TestIndexUpsertAndLookup(t *testing.T) {
	idx := newTestIndex(t)
	if idx.Len() != 5 {
		t.Errorf("Expected 5 items but got %d", idx.Len())
	}
	item, ok := idx.GetItem(3)
	if !ok || item.GetTitle() != "Burmese Ruby" {
		t.Errorf("Expected to find the ruby but got %v (%v)", item, ok)
	}
	bySku, ok := idx.GetItemBySku("ST-1004")
	if !ok || bySku.GetId() != 4 {
		t.Errorf("Expected sku lookup to find item 4 but got %v (%v)", bySku, ok)
	}
	if idx.HasItem(99) {
		t.Error("Expected unknown id to be absent")
	}
	if _, ok := idx.GetItemBySku("ST-9999"); ok {
		t.Error("Expected unknown sku to be absent")
	}
}

func TestIndexUpsertRelinks(t *testing.T) {
	idx := newTestIndex(t)
	update := &Stone{Id: 5, Sku: "ST-9005", Title: "Pink Spinel", StoneType: "spinel", Color: "pink", Cut: "round", Clarity: "IF", Origin: "Vietnam", Price: 95000, Weight: 1.1, Stock: 5}
	if err := idx.HandleItem(update); err != nil {
		t.Fatalf("Expected update to succeed but got %v", err)
	}
	if idx.Len() != 5 {
		t.Errorf("Expected update to keep 5 items but got %d", idx.Len())
	}
	if _, ok := idx.GetItemBySku("ST-1005"); ok {
		t.Error("Expected the old sku to be unlinked")
	}
	if item, ok := idx.GetItemBySku("ST-9005"); !ok || item.GetId() != 5 {
		t.Error("Expected the new sku to resolve")
	}
	red := matchIds(t, idx, types.NewFilters().WithTerm(types.DimColor, "red"))
	if len(red) != 1 || red[0] != 3 {
		t.Errorf("Expected only the ruby to stay red but got %v", red)
	}
	pink := matchIds(t, idx, types.NewFilters().WithTerm(types.DimColor, "pink"))
	if len(pink) != 2 || pink[0] != 2 || pink[1] != 5 {
		t.Errorf("Expected 2 and 5 to be pink but got %v", pink)
	}
}

func TestIndexUpsertDeletedRemoves(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.HandleItem(&Stone{Id: 2, Sku: "ST-1002", Deleted: true}); err != nil {
		t.Fatalf("Expected delete upsert to succeed but got %v", err)
	}
	if idx.Len() != 4 || idx.HasItem(2) {
		t.Errorf("Expected item 2 to be removed, len %d", idx.Len())
	}
	sapphires := matchIds(t, idx, types.NewFilters().WithTerm(types.DimType, "sapphire"))
	if len(sapphires) != 1 || sapphires[0] != 1 {
		t.Errorf("Expected only item 1 to stay a sapphire but got %v", sapphires)
	}
	// A zero price reads as deleted too.
	if err := idx.HandleItem(&Stone{Id: 4, Sku: "ST-1004", Price: 0}); err != nil {
		t.Fatalf("Expected soft delete to succeed but got %v", err)
	}
	if idx.HasItem(4) {
		t.Error("Expected the zero priced emerald to be removed")
	}
	// Deleted payloads for unknown ids are ignored.
	if err := idx.HandleItem(&Stone{Id: 99, Deleted: true}); err != nil {
		t.Fatalf("Expected unknown delete to be a no-op but got %v", err)
	}
	if idx.Len() != 3 {
		t.Errorf("Expected 3 items but got %d", idx.Len())
	}
}

func TestIndexDeleteItem(t *testing.T) {
	idx := newTestIndex(t)
	if err := idx.DeleteItem(1); err != nil {
		t.Fatalf("Expected delete to succeed but got %v", err)
	}
	if idx.HasItem(1) || idx.Len() != 4 {
		t.Error("Expected item 1 to be gone")
	}
	if _, ok := idx.GetItemBySku("ST-1001"); ok {
		t.Error("Expected the sku of a deleted item to be gone")
	}
	sapphires := matchIds(t, idx, types.NewFilters().WithTerm(types.DimType, "sapphire"))
	if len(sapphires) != 1 || sapphires[0] != 2 {
		t.Errorf("Expected only item 2 to match but got %v", sapphires)
	}
	if err := idx.DeleteItem(1); err != nil {
		t.Errorf("Expected a second delete to be a no-op but got %v", err)
	}
}

func TestIndexMatch(t *testing.T) {
	idx := newTestIndex(t)
	all := matchIds(t, idx, nil)
	if len(all) != 5 {
		t.Errorf("Expected nil filters to match everything but got %v", all)
	}
	sapphires := matchIds(t, idx, types.NewFilters().WithTerm(types.DimType, "sapphire"))
	if len(sapphires) != 2 || sapphires[0] != 1 || sapphires[1] != 2 {
		t.Errorf("Expected sapphires 1 and 2 but got %v", sapphires)
	}
	blue := matchIds(t, idx, types.NewFilters().WithTerm(types.DimType, "sapphire").WithTerm(types.DimColor, "blue"))
	if len(blue) != 1 || blue[0] != 1 {
		t.Errorf("Expected only the blue sapphire but got %v", blue)
	}
	inStock := matchIds(t, idx, types.NewFilters().WithFlag(types.FlagInStock))
	if len(inStock) != 4 {
		t.Errorf("Expected the emerald to be filtered out but got %v", inStock)
	}
}

func TestIndexMatchWithQuery(t *testing.T) {
	idx := newTestIndex(t)
	ruby := matchIds(t, idx, types.NewFilters().WithQuery("ruby"))
	if len(ruby) != 1 || ruby[0] != 3 {
		t.Errorf("Expected the ruby but got %v", ruby)
	}
	banded := matchIds(t, idx, types.NewFilters().WithQuery("sapphire").WithPrice(&types.PriceRange{Min: 100000, Max: 200000}))
	if len(banded) != 1 || banded[0] != 1 {
		t.Errorf("Expected the query and the price band to intersect to 1 but got %v", banded)
	}
	if got := matchIds(t, idx, types.NewFilters().WithQuery("quartz")); len(got) != 0 {
		t.Errorf("Expected no hits for quartz but got %v", got)
	}
}

func TestIndexMatchRejectsBadFilters(t *testing.T) {
	idx := newTestIndex(t)
	bad := types.NewFilters().WithPrice(&types.PriceRange{Min: 500, Max: 100})
	if _, err := idx.Match(context.Background(), bad); err == nil {
		t.Error("Expected an inverted price range to be rejected")
	}
	if _, err := idx.FetchPage(context.Background(), bad, 1, 10, "popular"); err == nil {
		t.Error("Expected the page fetch to reject bad filters")
	}
	if _, err := idx.Facets(context.Background(), bad); err == nil {
		t.Error("Expected the facet fetch to reject bad filters")
	}
}

func TestIndexFetchPage(t *testing.T) {
	idx := newTestIndex(t)
	idx.Sorting.UpdateSorts()

	page, err := idx.FetchPage(context.Background(), nil, 1, 2, "price")
	if err != nil {
		t.Fatalf("Expected page fetch to succeed but got %v", err)
	}
	if page.TotalHits != 5 || !page.More {
		t.Errorf("Expected 5 hits with more pages but got %+v", page)
	}
	if len(page.Items) != 2 || page.Items[0].GetId() != 5 || page.Items[1].GetId() != 1 {
		t.Errorf("Expected the cheapest stones first but got %v", page.Items)
	}

	last, err := idx.FetchPage(context.Background(), nil, 3, 2, "price")
	if err != nil {
		t.Fatalf("Expected page fetch to succeed but got %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].GetId() != 3 || last.More {
		t.Errorf("Expected the final partial page but got %+v", last)
	}

	past, err := idx.FetchPage(context.Background(), nil, 9, 2, "price")
	if err != nil {
		t.Fatalf("Expected page fetch to succeed but got %v", err)
	}
	if len(past.Items) != 0 || past.More {
		t.Errorf("Expected an empty page past the end but got %+v", past)
	}

	desc, err := idx.FetchPage(context.Background(), nil, 1, 5, "-price")
	if err != nil {
		t.Fatalf("Expected page fetch to succeed but got %v", err)
	}
	if len(desc.Items) != 5 || desc.Items[0].GetId() != 3 || desc.Items[4].GetId() != 5 {
		t.Errorf("Expected most expensive first but got %v", desc.Items)
	}
}

func TestIndexFetchPageClampsArguments(t *testing.T) {
	idx := newTestIndex(t)
	idx.Sorting.UpdateSorts()
	page, err := idx.FetchPage(context.Background(), nil, 0, 0, "price")
	if err != nil {
		t.Fatalf("Expected page fetch to succeed but got %v", err)
	}
	if page.Page != 1 || page.PageSize != DefaultPageSize {
		t.Errorf("Expected page 1 with the default size but got %+v", page)
	}
	if len(page.Items) != 5 || page.More {
		t.Errorf("Expected the whole catalog on one page but got %+v", page)
	}
}

func TestIndexFacets(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Facets(context.Background(), nil)
	if err != nil {
		t.Fatalf("Expected facets to succeed but got %v", err)
	}
	if res.TotalHits != 5 {
		t.Errorf("Expected 5 total hits but got %d", res.TotalHits)
	}
	typeDim := findDimension(res, types.DimType)
	if typeDim == nil || len(typeDim.Values) != 4 {
		t.Fatalf("Expected 4 stone types but got %v", typeDim)
	}
	if typeDim.Values[0].Value != "emerald" || typeDim.Values[2].Value != "sapphire" || typeDim.Values[2].Count != 2 {
		t.Errorf("Expected label sorted type values but got %v", typeDim.Values)
	}
	if res.Price == nil || res.Price.Min != 90000 || res.Price.Max != 310000 {
		t.Errorf("Expected the full price extent but got %+v", res.Price)
	}

	// Selecting a type keeps the type options visible but narrows color.
	res, err = idx.Facets(context.Background(), types.NewFilters().WithTerm(types.DimType, "sapphire"))
	if err != nil {
		t.Fatalf("Expected facets to succeed but got %v", err)
	}
	if res.TotalHits != 2 {
		t.Errorf("Expected 2 sapphires but got %d", res.TotalHits)
	}
	typeDim = findDimension(res, types.DimType)
	if typeDim == nil || len(typeDim.Values) != 4 {
		t.Fatalf("Expected the type dimension to keep all options but got %v", typeDim)
	}
	colorDim := findDimension(res, types.DimColor)
	if colorDim == nil || len(colorDim.Values) != 2 {
		t.Fatalf("Expected only sapphire colors but got %v", colorDim)
	}
	if colorDim.Values[0].Value != "blue" || colorDim.Values[1].Value != "pink" {
		t.Errorf("Expected blue and pink but got %v", colorDim.Values)
	}
}

func TestIndexFacetsWithQuery(t *testing.T) {
	idx := newTestIndex(t)
	res, err := idx.Facets(context.Background(), types.NewFilters().WithQuery("red"))
	if err != nil {
		t.Fatalf("Expected facets to succeed but got %v", err)
	}
	if res.TotalHits != 2 {
		t.Errorf("Expected the ruby and the spinel but got %d hits", res.TotalHits)
	}
	typeDim := findDimension(res, types.DimType)
	if typeDim == nil || len(typeDim.Values) != 2 {
		t.Fatalf("Expected two matching types but got %v", typeDim)
	}
	if typeDim.Values[0].Value != "ruby" || typeDim.Values[1].Value != "spinel" {
		t.Errorf("Expected ruby and spinel but got %v", typeDim.Values)
	}
}

func TestIndexCandidates(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	sapphires, err := idx.Candidates(ctx, types.CandidateQuery{StoneType: "sapphire"}, 0)
	if err != nil {
		t.Fatalf("Expected candidates to succeed but got %v", err)
	}
	if len(sapphires) != 2 || sapphires[0].GetId() != 1 || sapphires[1].GetId() != 2 {
		t.Errorf("Expected sapphires in id order but got %v", sapphires)
	}

	banded, err := idx.Candidates(ctx, types.CandidateQuery{StoneType: "sapphire", Price: &types.PriceRange{Min: 100000, Max: 200000}}, 0)
	if err != nil {
		t.Fatalf("Expected candidates to succeed but got %v", err)
	}
	if len(banded) != 1 || banded[0].GetId() != 1 {
		t.Errorf("Expected only the blue sapphire in band but got %v", banded)
	}

	limited, err := idx.Candidates(ctx, types.CandidateQuery{Color: "red"}, 1)
	if err != nil {
		t.Fatalf("Expected candidates to succeed but got %v", err)
	}
	if len(limited) != 1 || limited[0].GetId() != 3 {
		t.Errorf("Expected the limit to keep the lowest id but got %v", limited)
	}

	none, err := idx.Candidates(ctx, types.CandidateQuery{StoneType: "emerald", InStock: true}, 0)
	if err != nil {
		t.Fatalf("Expected candidates to succeed but got %v", err)
	}
	if len(none) != 0 {
		t.Errorf("Expected the out-of-stock emerald to be excluded but got %v", none)
	}
}

func TestIndexGetItemsPreservesOrder(t *testing.T) {
	idx := newTestIndex(t)
	items := idx.GetItems([]types.ItemId{4, 1, 77, 3})
	if len(items) != 3 {
		t.Fatalf("Expected unknown ids to be skipped but got %v", items)
	}
	if items[0].GetId() != 4 || items[1].GetId() != 1 || items[2].GetId() != 3 {
		t.Errorf("Expected the requested order but got %v", items)
	}
}
