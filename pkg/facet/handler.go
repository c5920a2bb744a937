package facet

import (
	"slices"
	"sync"

	"github.com/stenmark/stone-finder/pkg/types"
)

// Handler owns the facet fields for every filterable stone property and
// answers match and aggregation queries against them. Writes are expected
// to be serialized by the owning index, reads may run concurrently.
type Handler struct {
	mu     sync.RWMutex
	Keys   map[types.Dimension]*KeyField
	Flags  map[types.Flag]*FlagField
	Price  *NumberField[int64]
	Weight *NumberField[float64]
}

func NewHandler() *Handler {
	h := &Handler{
		Keys:   make(map[types.Dimension]*KeyField, len(types.KeyDimensions)),
		Flags:  make(map[types.Flag]*FlagField, len(types.AllFlags)),
		Price:  NewNumberField[int64](types.DimPrice),
		Weight: NewNumberField[float64](types.DimWeight),
	}
	for _, dim := range types.KeyDimensions {
		h.Keys[dim] = NewKeyField(dim)
	}
	for _, flag := range types.AllFlags {
		h.Flags[flag] = NewFlagField(flag)
	}
	return h
}

// HandleItem links every filterable property of item into its field.
// Callers replacing an item must RemoveItem the previous version first.
func (h *Handler) HandleItem(item types.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := item.GetId()
	for dim, f := range h.Keys {
		if value, ok := item.GetStringField(dim); ok {
			f.AddValueLink(value, id)
		}
	}
	h.Price.AddValueLink(int64(item.GetPrice()), id)
	h.Weight.AddValueLink(item.GetWeight(), id)
	for flag, f := range h.Flags {
		f.AddValueLink(item.GetFlag(flag), id)
	}
}

func (h *Handler) RemoveItem(item types.Item) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := item.GetId()
	for dim, f := range h.Keys {
		if value, ok := item.GetStringField(dim); ok {
			f.RemoveValueLink(value, id)
		}
	}
	h.Price.RemoveValueLink(int64(item.GetPrice()), id)
	h.Weight.RemoveValueLink(item.GetWeight(), id)
	for _, f := range h.Flags {
		f.RemoveValueLink(id)
	}
}

// Match feeds one constraint per active filter into the merger. Constraint
// lists are computed before returning so field access stays inside the
// read lock, the merger goroutines only combine finished lists.
func (h *Handler) Match(filters *types.Filters, qm *types.QueryMerger) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.match(filters, qm)
}

func (h *Handler) match(filters *types.Filters, qm *types.QueryMerger) {
	if filters == nil {
		return
	}
	for dim, values := range filters.Terms {
		f, ok := h.Keys[dim]
		if !ok {
			continue
		}
		ids := f.Match(values)
		qm.Add(func() *types.ItemList { return ids })
	}
	if r := filters.Price; r != nil {
		ids := h.Price.MatchesRange(r.Min, r.Max)
		qm.Add(func() *types.ItemList { return ids })
	}
	if r := filters.Weight; r != nil {
		ids := h.Weight.MatchesRange(r.Min, r.Max)
		qm.Add(func() *types.ItemList { return ids })
	}
	for _, flag := range filters.Flags {
		f, ok := h.Flags[flag]
		if !ok {
			continue
		}
		ids := f.Match()
		qm.Add(func() *types.ItemList { return ids })
	}
}

// MatchList resolves filters within base and returns the matching ids.
// Base is the candidate set before facet constraints, typically the full
// corpus or the ids matching a free text query.
func (h *Handler) MatchList(filters *types.Filters, base *types.ItemList) *types.ItemList {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.matchList(filters, base)
}

func (h *Handler) matchList(filters *types.Filters, base *types.ItemList) *types.ItemList {
	result := types.NewItemList()
	qm := types.NewQueryMerger(result)
	if base != nil {
		qm.Add(func() *types.ItemList { return base })
	}
	h.match(filters, qm)
	qm.Wait()
	return result
}

// Facets aggregates value counts and range extents for one filter state.
// Each dimension is counted against the match with its own constraint
// stripped, so selecting a value never changes its own dimension's counts.
// Selected values stay visible even when their count drops to zero.
func (h *Handler) Facets(filters *types.Filters, base *types.ItemList) *Result {
	if filters == nil {
		filters = types.NewFilters()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched := h.matchList(filters, base)

	wg := &sync.WaitGroup{}
	ch := make(chan *DimensionResult)
	for _, dim := range types.KeyDimensions {
		f, ok := h.Keys[dim]
		if !ok {
			continue
		}
		ids := matched
		selected := filters.TermValues(dim)
		if len(selected) > 0 {
			ids = h.matchList(filters.WithOut(dim), base)
		}
		wg.Add(1)
		go dimensionResult(f, selected, ids, ch, wg)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()
	byDim := make(map[types.Dimension]*DimensionResult, len(types.KeyDimensions))
	for r := range ch {
		if r != nil {
			byDim[r.Dimension] = r
		}
	}

	ret := &Result{TotalHits: matched.Len()}
	for _, dim := range types.KeyDimensions {
		if r, ok := byDim[dim]; ok {
			ret.Facets = append(ret.Facets, r)
		}
	}

	priceIds := matched
	if filters.Price != nil {
		priceIds = h.matchList(filters.WithOut(types.DimPrice), base)
	}
	if extents, n := h.Price.GetExtents(priceIds); n > 0 {
		ret.Price = &RangeResult[int64]{NumberRange: extents, Count: n, Selected: filters.Price != nil}
	}

	weightIds := matched
	if filters.Weight != nil {
		weightIds = h.matchList(filters.WithOut(types.DimWeight), base)
	}
	if extents, n := h.Weight.GetExtents(weightIds); n > 0 {
		ret.Weight = &RangeResult[float64]{NumberRange: extents, Count: n, Selected: filters.Weight != nil}
	}

	for _, flag := range types.AllFlags {
		f, ok := h.Flags[flag]
		if !ok {
			continue
		}
		ids := matched
		if filters.HasFlag(flag) {
			ids = h.matchList(filters.WithoutFlag(flag), base)
		}
		ret.Flags = append(ret.Flags, &FlagResult{
			Flag:     flag,
			Count:    ids.IntersectionLen(f.Match()),
			Selected: filters.HasFlag(flag),
		})
	}
	return ret
}

func dimensionResult(f *KeyField, selected []string, matching *types.ItemList, ch chan<- *DimensionResult, wg *sync.WaitGroup) {
	defer wg.Done()
	values := make([]ValueCount, 0, len(f.Keys))
	for value, ids := range f.Keys {
		count := matching.IntersectionLen(ids)
		isSelected := slices.Contains(selected, value)
		if count == 0 && !isSelected {
			continue
		}
		values = append(values, ValueCount{
			Value:    value,
			Count:    count,
			Selected: isSelected,
		})
	}
	// Selected values that vanished from the corpus still render, at zero,
	// so they can be deselected.
	for _, value := range selected {
		if _, ok := f.Keys[value]; !ok {
			values = append(values, ValueCount{Value: value, Selected: true})
		}
	}
	if len(values) == 0 {
		ch <- nil
		return
	}
	SortValues(f.Dimension(), values)
	ch <- &DimensionResult{Dimension: f.Dimension(), Values: values}
}
