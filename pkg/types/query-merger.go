package types

import (
	"sync"
)

// Merger is a custom merging strategy hook.
type Merger = func(current *ItemList, next *ItemList, isFirst bool)

// QueryMerger coordinates concurrent set operations over ItemLists.
// Semantics (default constructor):
//
//	First Add with a non-nil result -> seed result with that set.
//	Subsequent Adds -> result = result ∩ next
//	Add with nil -> treated as 'no restriction' (no-op).
//	Exclusions are accumulated and applied once in Wait().
type QueryMerger struct {
	wg      sync.WaitGroup
	isFirst bool
	l       sync.Mutex
	merger  Merger
	result  *ItemList
	exclude *ItemList
}

// NewQueryMerger builds a QueryMerger with default (seed + intersect) semantics.
func NewQueryMerger(result *ItemList) *QueryMerger {
	return &QueryMerger{
		isFirst: true,
		result:  result,
		merger: func(current *ItemList, next *ItemList, isFirst bool) {
			if next == nil {
				// nil means "no restriction"
				return
			}
			if isFirst {
				current.Merge(next)
			} else {
				current.Intersect(next)
			}
		},
		exclude: NewItemList(),
	}
}

// NewCustomMerger allows providing a custom merge strategy.
func NewCustomMerger(result *ItemList, merger Merger) *QueryMerger {
	return &QueryMerger{
		isFirst: true,
		result:  result,
		merger:  merger,
		exclude: NewItemList(),
	}
}

// Add evaluates a constraint concurrently and merges its result.
func (m *QueryMerger) Add(getResult func() *ItemList) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		items := getResult()
		m.l.Lock()
		m.merger(m.result, items, m.isFirst)
		if items != nil {
			m.isFirst = false
		}
		m.l.Unlock()
	}()
}

// Exclude collects items to remove from the final result.
func (m *QueryMerger) Exclude(getResult func() *ItemList) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		items := getResult()
		if items == nil {
			return
		}
		m.l.Lock()
		m.exclude.Merge(items)
		m.l.Unlock()
	}()
}

// Wait blocks until all operations complete and then applies exclusions.
func (m *QueryMerger) Wait() {
	m.wg.Wait()
	m.result.Exclude(m.exclude)
}
