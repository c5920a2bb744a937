package sorting

import (
	"fmt"
	"testing"
	"time"

	"github.com/stenmark/stone-finder/pkg/types"
)

func sortStone(id types.ItemId, price int, weight float64, stock int, ageDays int, flags map[types.Flag]bool) *types.MockItem {
	created := time.Now().UnixMilli() - int64(ageDays)*86_400_000
	return &types.MockItem{
		Id:         id,
		Sku:        fmt.Sprintf("ST-%d", id),
		Title:      fmt.Sprintf("Stone %d", id),
		Price:      price,
		Weight:     weight,
		Stock:      stock,
		Flags:      flags,
		Created:    created,
		LastUpdate: created,
	}
}

// Popularity with the default rules: 1=9500, 3=8000, 4=6750, 2=1950.
func sortTestStones() []types.Item {
	return []types.Item{
		sortStone(1, 90000, 1.1, 5, 400, map[types.Flag]bool{types.FlagHasCertification: true, types.FlagHasImages: true}),
		sortStone(2, 310000, 1.5, 0, 2, map[types.Flag]bool{types.FlagHasImages: true}),
		sortStone(3, 500000, 1.2, 3, 100, map[types.Flag]bool{types.FlagHasCertification: true}),
		sortStone(4, 250000, 0.9, 1, 30, nil),
	}
}

func newSortTestHandler(t *testing.T) (*SortingItemHandler, *types.ItemList) {
	t.Helper()
	handler := NewSortingItemHandler()
	if err := handler.HandleItems(sortTestStones()); err != nil {
		t.Fatalf("Expected no error handling items but got %v", err)
	}
	handler.UpdateSorts()
	return handler, types.NewItemList(1, 2, 3, 4)
}

func assertIdOrder(t *testing.T, got []types.ItemId, want ...types.ItemId) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d ids but got %v", len(want), got)
	}
	for i, id := range want {
		if got[i] != id {
			t.Fatalf("Expected order %v but got %v", want, got)
		}
	}
}

func TestSortedIdsPopular(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 1, 3, 4, 2)
}

func TestSortedIdsPagedCut(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 2), 1, 3)
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 2, 2), 4, 2)
	if got := handler.SortedIds(all, PopularSort, 4, 2); len(got) != 0 {
		t.Errorf("Expected empty page past the end but got %v", got)
	}
}

func TestSortedIdsHonorsMembership(t *testing.T) {
	handler, _ := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(types.NewItemList(2, 3), PopularSort, 0, 10), 3, 2)
}

func TestSortedIdsUnknownSortFallsBackToPopular(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, "shiny", 0, 10), 1, 3, 4, 2)
}

func TestSortedIdsPriceBothDirections(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, PriceSort, 0, 10), 1, 4, 2, 3)
	assertIdOrder(t, handler.SortedIds(all, "-"+PriceSort, 0, 10), 3, 2, 4, 1)
}

func TestSortedIdsWeight(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, WeightSort, 0, 10), 4, 1, 3, 2)
	assertIdOrder(t, handler.SortedIds(all, "-"+WeightSort, 0, 10), 2, 3, 1, 4)
}

func TestSortedIdsNewestFirst(t *testing.T) {
	handler, all := newSortTestHandler(t)
	assertIdOrder(t, handler.SortedIds(all, NewestSort, 0, 10), 2, 4, 3, 1)
}

func TestSortedIdsBeforeFirstRefresh(t *testing.T) {
	handler := NewSortingItemHandler()
	if err := handler.HandleItems(sortTestStones()); err != nil {
		t.Fatalf("Expected no error handling items but got %v", err)
	}
	// No UpdateSorts yet, the cut falls back to ascending id order.
	assertIdOrder(t, handler.SortedIds(types.NewItemList(1, 2, 3, 4), PopularSort, 1, 2), 2, 3)
}

func TestHandlerOverrideReordersPopular(t *testing.T) {
	handler, all := newSortTestHandler(t)
	handler.HandleSortOverrideUpdate(types.SortOverrideUpdate{
		Key:  PopularSort,
		Data: types.SortOverride{2: 100000},
	})
	handler.UpdateSorts()
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 2, 1, 3, 4)

	if _, ok := handler.GetOverride(PopularSort); !ok {
		t.Error("Expected the override to be retained")
	}
}

func TestHandlerIgnoresSessionOverrides(t *testing.T) {
	handler, all := newSortTestHandler(t)
	handler.HandleSortOverrideUpdate(types.SortOverrideUpdate{
		Key:  "session-1234",
		Data: types.SortOverride{2: 100000},
	})
	handler.UpdateSorts()
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 1, 3, 4, 2)
	if _, ok := handler.GetOverride("session-1234"); ok {
		t.Error("Expected session overrides to be dropped")
	}
}

func TestHandlerStaticPositions(t *testing.T) {
	handler, all := newSortTestHandler(t)
	handler.SetStaticPositions(StaticPositions{0: 4, 5: 99})
	handler.UpdateSorts()

	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 4, 1, 3, 2)
	// The reversed popular order stays organic.
	assertIdOrder(t, handler.SortedIds(all, "-"+PopularSort, 0, 10), 2, 4, 3, 1)
}

func TestHandlerStaticPositionPastEndPinsToTail(t *testing.T) {
	handler, all := newSortTestHandler(t)
	handler.SetStaticPositions(StaticPositions{9: 3})
	handler.UpdateSorts()
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 1, 4, 2, 3)
}

func TestHandlerDeleteItem(t *testing.T) {
	handler, all := newSortTestHandler(t)
	if err := handler.DeleteItem(1); err != nil {
		t.Fatalf("Expected no error deleting item but got %v", err)
	}
	handler.UpdateSorts()
	assertIdOrder(t, handler.SortedIds(all, PopularSort, 0, 10), 3, 4, 2)
}

func TestStaticPositionsRoundTrip(t *testing.T) {
	statics := StaticPositions{0: 4, 3: 17}
	parsed := StaticPositions{}
	if err := parsed.FromString(statics.ToString()); err != nil {
		t.Fatalf("Expected no error parsing statics but got %v", err)
	}
	if len(parsed) != 2 || parsed[0] != 4 || parsed[3] != 17 {
		t.Errorf("Expected %v but got %v", statics, parsed)
	}
}
