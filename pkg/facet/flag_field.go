package facet

import "github.com/stenmark/stone-finder/pkg/types"

// FlagField tracks the ids for which a boolean property is true. Filters
// only ever require true, so the false side is never stored.
type FlagField struct {
	flag types.Flag
	ids  *types.ItemList
}

func NewFlagField(flag types.Flag) *FlagField {
	return &FlagField{
		flag: flag,
		ids:  types.NewItemList(),
	}
}

func (f *FlagField) Flag() types.Flag {
	return f.flag
}

func (f *FlagField) AddValueLink(set bool, id types.ItemId) {
	if set {
		f.ids.AddId(id)
	} else {
		f.ids.RemoveId(id)
	}
}

func (f *FlagField) RemoveValueLink(id types.ItemId) {
	f.ids.RemoveId(id)
}

// Match returns the ids with the flag set.
func (f *FlagField) Match() *types.ItemList {
	return f.ids
}

func (f *FlagField) TotalCount() int {
	return f.ids.Len()
}
