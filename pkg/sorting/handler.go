package sorting

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/stenmark/stone-finder/pkg/types"
)

const (
	PopularSort = "popular"
	PriceSort   = "price"
	WeightSort  = "weight"
	NewestSort  = "new"
)

func NewPopularitySorter(rules ...ItemPopularityRule) Sorter {
	if len(rules) == 0 {
		rules = DefaultPopularityRules()
	}
	return NewBaseSorter(PopularSort, func(item types.Item) float64 {
		return CollectPopularity(item, rules...)
	}, false)
}

func NewPriceSorter() Sorter {
	return NewBaseSorter(PriceSort, func(item types.Item) float64 {
		price := item.GetPrice()
		if price > 0 && price <= 1000000000 {
			return float64(price)
		}
		return 0
	}, true)
}

func NewWeightSorter() Sorter {
	return NewBaseSorter(WeightSort, func(item types.Item) float64 {
		weight := item.GetWeight()
		if weight > 0 {
			return weight
		}
		return 0
	}, true)
}

func NewNewestSorter() Sorter {
	return NewBaseSorter(NewestSort, func(item types.Item) float64 {
		created := item.GetCreated()
		if created > 0 {
			return float64(created)
		}
		return 0
	}, false)
}

// SortingItemHandler keeps one precomputed id order per sort key. Each base
// sort is also stored reversed under a "-" prefixed key, so "price" is
// cheapest first and "-price" most expensive first.
type SortingItemHandler struct {
	mu           sync.RWMutex
	overrides    map[string]types.SortOverride
	statics      StaticPositions
	staticsDirty bool
	Sorters      []Sorter
	sortIndexes  map[string]types.SortIndex
}

func NewSortingItemHandler() *SortingItemHandler {
	handler := &SortingItemHandler{
		mu:          sync.RWMutex{},
		overrides:   make(map[string]types.SortOverride),
		statics:     StaticPositions{},
		sortIndexes: make(map[string]types.SortIndex, 8),
		Sorters: []Sorter{
			NewPopularitySorter(),
			NewPriceSorter(),
			NewWeightSorter(),
			NewNewestSorter(),
		},
	}
	ticker := time.NewTicker(time.Second * 10)
	go func() {
		for range ticker.C {
			handler.UpdateSorts()
		}
	}()
	return handler
}

func (h *SortingItemHandler) HandleSortOverrideUpdate(item types.SortOverrideUpdate) {
	if strings.Contains(item.Key, "session-") {
		// Session specific overrides are ignored for now
		return
	}
	h.mu.Lock()
	h.overrides[item.Key] = item.Data
	h.mu.Unlock()
	log.Printf("Applied sort override: %s", item.Key)
	for _, s := range h.Sorters {
		s.HandleOverride(item)
	}
}

func (h *SortingItemHandler) GetOverride(key string) (types.SortOverride, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ov, ok := h.overrides[key]
	return ov, ok
}

// SetStaticPositions replaces the pinned slots of the popular sort. The
// reversed popular order stays organic.
func (h *SortingItemHandler) SetStaticPositions(statics StaticPositions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statics = statics
	h.staticsDirty = true
}

func (h *SortingItemHandler) HandleItem(item types.Item) error {
	for _, s := range h.Sorters {
		s.ProcessItem(item)
	}
	return nil
}

func (h *SortingItemHandler) HandleItems(items []types.Item) error {
	for _, item := range items {
		for _, s := range h.Sorters {
			s.ProcessItem(item)
		}
	}
	return nil
}

func (h *SortingItemHandler) DeleteItem(id types.ItemId) error {
	for _, s := range h.Sorters {
		s.RemoveItem(id)
	}
	return nil
}

func (h *SortingItemHandler) updateSorter(s Sorter) {
	name := s.Name()
	force := false
	if name == PopularSort {
		h.mu.RLock()
		force = h.staticsDirty
		h.mu.RUnlock()
	}
	if !s.IsDirty() && !force {
		return
	}

	sort := s.GetSort()
	if len(sort) == 0 {
		return
	}
	idx := toSortIndex(sort)
	reversed := cloneReversed(idx)

	h.mu.Lock()
	if name == PopularSort {
		idx = h.statics.Apply(idx)
		h.staticsDirty = false
	}
	h.sortIndexes[name] = idx
	h.sortIndexes["-"+name] = reversed
	h.mu.Unlock()

	log.Printf("Updated sort: %s, items: %d", name, len(idx))
}

func (h *SortingItemHandler) UpdateSorts() {
	for _, s := range h.Sorters {
		h.updateSorter(s)
	}
}

func (h *SortingItemHandler) GetSort(id string) types.SortIndex {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if r, ok := h.sortIndexes[id]; ok {
		return r
	}
	if r, ok := h.sortIndexes[PopularSort]; ok {
		return r
	}
	return nil
}

// SortedIds cuts a page out of list in the precomputed order for sort,
// falling back to the popular order for unknown keys. Before the first
// refresh has run items come back in ascending id order.
func (h *SortingItemHandler) SortedIds(list *types.ItemList, sort string, skip int, take int) []types.ItemId {
	if list == nil || list.IsEmpty() || take <= 0 {
		return []types.ItemId{}
	}
	if skip < 0 {
		skip = 0
	}
	idx := h.GetSort(sort)
	if idx == nil {
		ids := list.Ids()
		if skip >= len(ids) {
			return []types.ItemId{}
		}
		return ids[skip:min(skip+take, len(ids))]
	}
	return idx.PickFrom(list, skip, take)
}
