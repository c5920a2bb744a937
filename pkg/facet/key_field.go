package facet

import (
	"strings"

	"github.com/stenmark/stone-finder/pkg/types"
)

// KeyField holds one posting list per distinct value of a categorical
// dimension.
type KeyField struct {
	dim  types.Dimension
	Keys map[string]*types.ItemList
}

func NewKeyField(dim types.Dimension) *KeyField {
	return &KeyField{
		dim:  dim,
		Keys: map[string]*types.ItemList{},
	}
}

func (f *KeyField) Dimension() types.Dimension {
	return f.dim
}

func (f *KeyField) AddValueLink(value string, id types.ItemId) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	if ids, ok := f.Keys[value]; ok {
		ids.AddId(id)
	} else {
		f.Keys[value] = types.NewItemList(id)
	}
	return true
}

func (f *KeyField) RemoveValueLink(value string, id types.ItemId) {
	value = strings.TrimSpace(value)
	if ids, ok := f.Keys[value]; ok {
		ids.RemoveId(id)
		if ids.IsEmpty() {
			delete(f.Keys, value)
		}
	}
}

// Match unions the posting lists of the given values. An empty selection
// returns nil, meaning no restriction. Unknown values contribute nothing,
// so selecting only unknown values yields an empty list.
func (f *KeyField) Match(values []string) *types.ItemList {
	if len(values) == 0 {
		return nil
	}
	ret := types.NewItemList()
	for _, v := range values {
		if ids, ok := f.Keys[v]; ok {
			ret.Merge(ids)
		}
	}
	return ret
}

// Ids returns the posting list for a single value, nil when unknown.
func (f *KeyField) Ids(value string) *types.ItemList {
	return f.Keys[value]
}

func (f *KeyField) Values() []string {
	ret := make([]string, 0, len(f.Keys))
	for v := range f.Keys {
		ret = append(ret, v)
	}
	return ret
}

func (f *KeyField) UniqueCount() int {
	return len(f.Keys)
}

func (f *KeyField) TotalCount() int {
	total := 0
	for _, ids := range f.Keys {
		total += ids.Len()
	}
	return total
}
