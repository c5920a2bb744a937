package sorting

import (
	"slices"
	"sync"

	"github.com/stenmark/stone-finder/pkg/types"
)

type Sorter interface {
	ProcessItem(item types.Item)
	RemoveItem(id types.ItemId)
	GetSort() types.ByValue
	IsDirty() bool
	Name() string
	HandleOverride(types.SortOverrideUpdate)
}

type BaseSorter struct {
	mu          sync.RWMutex
	override    types.SortOverride
	scores      map[types.ItemId]float64
	isReversed  bool
	name        string
	overrideKey string
	dirty       bool
	fn          func(item types.Item) float64
}

func NewBaseSorter(name string, fn func(item types.Item) float64, isReversed bool) Sorter {
	return &BaseSorter{
		mu:          sync.RWMutex{},
		override:    types.SortOverride{},
		scores:      make(map[types.ItemId]float64),
		isReversed:  isReversed,
		name:        name,
		dirty:       false,
		fn:          fn,
		overrideKey: name,
	}
}

func NewBaseSorterWithCustomOverrideKey(name string, fn func(item types.Item) float64, isReversed bool, overrideKey string) Sorter {
	return &BaseSorter{
		mu:          sync.RWMutex{},
		override:    types.SortOverride{},
		scores:      make(map[types.ItemId]float64),
		isReversed:  isReversed,
		name:        name,
		dirty:       false,
		fn:          fn,
		overrideKey: overrideKey,
	}
}

func (s *BaseSorter) HandleOverride(update types.SortOverrideUpdate) {
	if update.Key == s.overrideKey {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.override = update.Data
		s.dirty = true
	}
}

func (s *BaseSorter) IsDirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *BaseSorter) Name() string {
	return s.name
}

func (s *BaseSorter) ProcessItem(item types.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := item.GetId()
	if item.IsDeleted() {
		if _, ok := s.scores[id]; ok {
			delete(s.scores, id)
			s.dirty = true
		}
		return
	}
	newscore := s.fn(item)
	if current, ok := s.scores[id]; ok && current == newscore {
		return
	}
	s.scores[id] = newscore
	s.dirty = true
}

func (s *BaseSorter) RemoveItem(id types.ItemId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scores[id]; ok {
		delete(s.scores, id)
		s.dirty = true
	}
}

// GetSort snapshots scores plus overrides under the read lock and sorts
// outside it. Descending by value unless the sorter is reversed, ties always
// break on ascending id so the order is deterministic.
func (s *BaseSorter) GetSort() types.ByValue {
	s.mu.RLock()
	l := len(s.scores)
	sortMap := make(types.ByValue, 0, l)
	for id, score := range s.scores {
		ov := s.override[id]
		sortMap = append(sortMap, types.Lookup{Id: id, Value: score + ov})
	}
	isReversed := s.isReversed
	s.mu.RUnlock()

	if !isReversed {
		slices.SortFunc(sortMap, types.LookUpReversed)
	} else {
		slices.SortFunc(sortMap, func(a, b types.Lookup) int {
			if a.Value < b.Value {
				return -1
			}
			if a.Value > b.Value {
				return 1
			}
			if a.Id < b.Id {
				return -1
			}
			if a.Id > b.Id {
				return 1
			}
			return 0
		})
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()

	return sortMap
}
