package index

import (
	"context"
	"iter"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/stenmark/stone-finder/pkg/facet"
	"github.com/stenmark/stone-finder/pkg/search"
	"github.com/stenmark/stone-finder/pkg/sorting"
	"github.com/stenmark/stone-finder/pkg/types"
)

var (
	noUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_index_updates_total",
		Help: "The total number of item updates",
	})
	noDeletes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_index_deletes_total",
		Help: "The total number of item deletions",
	})
	noInserts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_index_inserts_total",
		Help: "The total number of item insertions",
	})
)

var tracer = otel.Tracer("stone-finder-index")

const DefaultPageSize = 40

// ItemIndex owns the catalog and keeps the facet, search and sorting
// structures in step with it. All store queries go through here.
type ItemIndex struct {
	mu    sync.RWMutex
	items map[types.ItemId]types.Item
	bySku map[string]types.ItemId
	all   *types.ItemList

	Facet   *facet.Handler
	Search  *search.FreeTextItemHandler
	Sorting *sorting.SortingItemHandler
}

func NewItemIndex() *ItemIndex {
	return &ItemIndex{
		items:   make(map[types.ItemId]types.Item),
		bySku:   make(map[string]types.ItemId),
		all:     types.NewItemList(),
		Facet:   facet.NewHandler(),
		Search:  search.NewFreeTextItemHandler(search.DefaultFreeTextHandlerOptions()),
		Sorting: sorting.NewSortingItemHandler(),
	}
}

func (i *ItemIndex) HandleItem(item types.Item) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handleItemUnsafe(item)
}

func (i *ItemIndex) HandleItems(items []types.Item) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	for _, item := range items {
		if err := i.handleItemUnsafe(item); err != nil {
			return err
		}
	}
	return nil
}

func (i *ItemIndex) handleItemUnsafe(item types.Item) error {
	id := item.GetId()
	existing, isUpdate := i.items[id]

	if item.IsDeleted() {
		if !isUpdate {
			return nil
		}
		return i.deleteItemUnsafe(id, existing)
	}

	if isUpdate {
		i.Facet.RemoveItem(existing)
		if sku := existing.GetSku(); sku != item.GetSku() {
			delete(i.bySku, sku)
		}
		noUpdates.Inc()
	} else {
		noInserts.Inc()
	}

	i.items[id] = item
	i.bySku[item.GetSku()] = id
	i.all.AddId(id)
	i.Facet.HandleItem(item)
	if err := i.Search.HandleItem(item); err != nil {
		return err
	}
	return i.Sorting.HandleItem(item)
}

func (i *ItemIndex) DeleteItem(id types.ItemId) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	existing, ok := i.items[id]
	if !ok {
		return nil
	}
	return i.deleteItemUnsafe(id, existing)
}

func (i *ItemIndex) deleteItemUnsafe(id types.ItemId, existing types.Item) error {
	i.Facet.RemoveItem(existing)
	delete(i.items, id)
	delete(i.bySku, existing.GetSku())
	i.all.RemoveId(id)
	noDeletes.Inc()
	if err := i.Search.DeleteItem(id); err != nil {
		return err
	}
	return i.Sorting.DeleteItem(id)
}

func (i *ItemIndex) GetItem(id types.ItemId) (types.Item, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	item, ok := i.items[id]
	return item, ok
}

func (i *ItemIndex) GetItemBySku(sku string) (types.Item, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.bySku[sku]
	if !ok {
		return nil, false
	}
	item, ok := i.items[id]
	return item, ok
}

func (i *ItemIndex) HasItem(id types.ItemId) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.items[id]
	return ok
}

func (i *ItemIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.items)
}

// GetAllItems snapshots the catalog for the storage save path.
func (i *ItemIndex) GetAllItems() iter.Seq[types.Item] {
	i.mu.RLock()
	items := make([]types.Item, 0, len(i.items))
	for _, item := range i.items {
		items = append(items, item)
	}
	i.mu.RUnlock()
	return func(yield func(types.Item) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}

// GetItems yields the items behind ids in the given order, silently skipping
// unknown ids.
func (i *ItemIndex) GetItems(ids []types.ItemId) []types.Item {
	i.mu.RLock()
	defer i.mu.RUnlock()
	items := make([]types.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := i.items[id]; ok {
			items = append(items, item)
		}
	}
	return items
}

func (i *ItemIndex) baseList() *types.ItemList {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.all.Clone()
}

// Match resolves the filter state to the matching id set: free text and the
// facet constraints all intersect against the full catalog.
func (i *ItemIndex) Match(ctx context.Context, f *types.Filters) (*types.ItemList, error) {
	_, span := tracer.Start(ctx, "index.Match")
	defer span.End()

	if f == nil {
		f = types.NewFilters()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	base := i.baseList()

	result := types.NewItemList()
	qm := types.NewQueryMerger(result)
	qm.Add(func() *types.ItemList {
		return base
	})
	i.Search.MatchQuery(f.Query, qm)
	i.Facet.Match(f, qm)
	qm.Wait()
	return result, nil
}

// FetchPage is the store fetch behind every listing view. Page numbering is
// 1-based, an out-of-range page yields an empty page with More false.
func (i *ItemIndex) FetchPage(ctx context.Context, f *types.Filters, page int, pageSize int, sort string) (*types.Page, error) {
	ctx, span := tracer.Start(ctx, "index.FetchPage")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	ids, err := i.Match(ctx, f)
	if err != nil {
		return nil, err
	}
	total := ids.Len()
	skip := (page - 1) * pageSize
	pageIds := i.Sorting.SortedIds(ids, sort, skip, pageSize)
	items := i.GetItems(pageIds)
	return &types.Page{
		Items:     items,
		Page:      page,
		PageSize:  pageSize,
		TotalHits: total,
		More:      skip+len(items) < total,
	}, nil
}

// Facets aggregates the option counts for the filter state. The free text
// query narrows the base set, the facet handler self-excludes per dimension.
func (i *ItemIndex) Facets(ctx context.Context, f *types.Filters) (*facet.Result, error) {
	_, span := tracer.Start(ctx, "index.Facets")
	defer span.End()

	if f == nil {
		f = types.NewFilters()
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	base := i.baseList()
	if f.Query != "" {
		narrowed := types.NewItemList()
		qm := types.NewQueryMerger(narrowed)
		qm.Add(func() *types.ItemList {
			return base
		})
		i.Search.MatchQuery(f.Query, qm)
		qm.Wait()
		base = narrowed
	}
	return i.Facet.Facets(f, base), nil
}

// Candidates answers the recommender's flat predicate in ascending id order.
func (i *ItemIndex) Candidates(ctx context.Context, q types.CandidateQuery, limit int) ([]types.Item, error) {
	_, span := tracer.Start(ctx, "index.Candidates")
	defer span.End()

	f := types.NewFilters()
	if q.StoneType != "" {
		f = f.WithTerms(types.DimType, q.StoneType)
	}
	if q.Color != "" {
		f = f.WithTerms(types.DimColor, q.Color)
	}
	if q.Price != nil {
		f = f.WithPrice(q.Price)
	}
	if q.InStock {
		f = f.WithFlag(types.FlagInStock)
	}
	matched := i.Facet.MatchList(f, i.baseList())

	if limit <= 0 {
		limit = matched.Len()
	}
	ids := make([]types.ItemId, 0, limit)
	matched.ForEach(func(id types.ItemId) bool {
		ids = append(ids, id)
		return len(ids) < limit
	})
	return i.GetItems(ids), nil
}
