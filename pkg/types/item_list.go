package types

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// ItemList is a set of item ids backed by a roaring bitmap. Not safe for
// concurrent mutation; QueryMerger serializes writes during fan-out queries.
type ItemList struct {
	bitmap *roaring.Bitmap
}

func NewItemList(ids ...ItemId) *ItemList {
	l := &ItemList{bitmap: roaring.New()}
	for _, id := range ids {
		l.bitmap.Add(uint32(id))
	}
	return l
}

func FromBitmap(bitmap *roaring.Bitmap) *ItemList {
	if bitmap == nil {
		bitmap = roaring.New()
	}
	return &ItemList{bitmap: bitmap}
}

func (l *ItemList) ensure() *roaring.Bitmap {
	if l.bitmap == nil {
		l.bitmap = roaring.New()
	}
	return l.bitmap
}

func (l *ItemList) AddId(id ItemId) {
	l.ensure().Add(uint32(id))
}

func (l *ItemList) Add(item Item) {
	l.AddId(item.GetId())
}

func (l *ItemList) RemoveId(id ItemId) {
	if l == nil || l.bitmap == nil {
		return
	}
	l.bitmap.Remove(uint32(id))
}

func (l *ItemList) Contains(id ItemId) bool {
	if l == nil || l.bitmap == nil {
		return false
	}
	return l.bitmap.Contains(uint32(id))
}

func (l *ItemList) Len() int {
	if l == nil || l.bitmap == nil {
		return 0
	}
	return int(l.bitmap.GetCardinality())
}

func (l *ItemList) IsEmpty() bool {
	return l == nil || l.bitmap == nil || l.bitmap.IsEmpty()
}

// Merge unions other into the receiver.
func (l *ItemList) Merge(other *ItemList) {
	if other == nil || other.bitmap == nil {
		return
	}
	l.ensure().Or(other.bitmap)
}

// Intersect keeps only ids present in other. A nil other empties the set.
func (l *ItemList) Intersect(other *ItemList) {
	if other == nil || other.bitmap == nil {
		l.ensure().Clear()
		return
	}
	l.ensure().And(other.bitmap)
}

// Exclude removes every id present in other.
func (l *ItemList) Exclude(other *ItemList) {
	if l == nil || l.bitmap == nil || other == nil || other.bitmap == nil {
		return
	}
	l.bitmap.AndNot(other.bitmap)
}

func (l *ItemList) HasIntersection(other *ItemList) bool {
	if l == nil || l.bitmap == nil || other == nil || other.bitmap == nil {
		return false
	}
	return l.bitmap.Intersects(other.bitmap)
}

func (l *ItemList) IntersectionLen(other *ItemList) int {
	if l == nil || l.bitmap == nil || other == nil || other.bitmap == nil {
		return 0
	}
	return int(l.bitmap.AndCardinality(other.bitmap))
}

func (l *ItemList) Clone() *ItemList {
	if l == nil || l.bitmap == nil {
		return NewItemList()
	}
	return &ItemList{bitmap: l.bitmap.Clone()}
}

func (l *ItemList) Bitmap() *roaring.Bitmap {
	return l.ensure()
}

func (l *ItemList) Ids() []ItemId {
	if l == nil || l.bitmap == nil {
		return nil
	}
	raw := l.bitmap.ToArray()
	ids := make([]ItemId, len(raw))
	for i, v := range raw {
		ids[i] = ItemId(v)
	}
	return ids
}

// ForEach visits ids in ascending order until fn returns false.
func (l *ItemList) ForEach(fn func(id ItemId) bool) {
	if l == nil || l.bitmap == nil {
		return
	}
	l.bitmap.Iterate(func(v uint32) bool {
		return fn(ItemId(v))
	})
}
