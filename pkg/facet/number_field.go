package facet

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/stenmark/stone-finder/pkg/types"
)

// NumberRange is the inclusive extent of a numeric facet.
type NumberRange[V FieldNumberValue] struct {
	Min V `json:"min"`
	Max V `json:"max"`
}

// NumberField indexes one numeric property per item and answers range
// queries from coarse buckets of sorted posting lists.
type NumberField[V FieldNumberValue] struct {
	dim     types.Dimension
	buckets map[int]*ValueBucket[V]
	values  map[types.ItemId]V
	bounds  NumberRange[V]
	count   int
}

func NewNumberField[V FieldNumberValue](dim types.Dimension) *NumberField[V] {
	return &NumberField[V]{
		dim:     dim,
		buckets: map[int]*ValueBucket[V]{},
		values:  map[types.ItemId]V{},
	}
}

func (f *NumberField[V]) Dimension() types.Dimension {
	return f.dim
}

func (f *NumberField[V]) AddValueLink(value V, id types.ItemId) {
	if f.count == 0 {
		f.bounds.Min, f.bounds.Max = value, value
	} else {
		if value < f.bounds.Min {
			f.bounds.Min = value
		}
		if value > f.bounds.Max {
			f.bounds.Max = value
		}
	}
	f.count++
	f.values[id] = value
	bId := GetBucket(value)
	b, ok := f.buckets[bId]
	if !ok {
		b = NewValueBucket[V]()
		f.buckets[bId] = b
	}
	b.AddValue(value, uint32(id))
}

// RemoveValueLink unlinks an item. Bounds are not shrunk on removal, they
// converge again as items are added.
func (f *NumberField[V]) RemoveValueLink(value V, id types.ItemId) {
	if _, ok := f.values[id]; !ok {
		return
	}
	delete(f.values, id)
	if f.count > 0 {
		f.count--
	}
	if b, ok := f.buckets[GetBucket(value)]; ok {
		b.RemoveValue(value, uint32(id))
	}
}

// MatchesRange returns the ids with value in [minValue, maxValue]. A range
// covering the whole field returns nil, meaning no restriction. An inverted
// range matches nothing.
func (f *NumberField[V]) MatchesRange(minValue V, maxValue V) *types.ItemList {
	if minValue > maxValue || f.count == 0 {
		return types.NewItemList()
	}
	if minValue <= f.bounds.Min && maxValue >= f.bounds.Max {
		return nil
	}
	if minValue < f.bounds.Min {
		minValue = f.bounds.Min
	}
	if maxValue > f.bounds.Max {
		maxValue = f.bounds.Max
	}
	minBucket := GetBucket(minValue)
	maxBucket := GetBucket(maxValue)
	acc := roaring.New()

	if minBucket == maxBucket {
		if b, ok := f.buckets[minBucket]; ok {
			b.RangeUnion(minValue, maxValue, acc)
		}
		return types.FromBitmap(acc)
	}

	if b, ok := f.buckets[minBucket]; ok {
		b.RangeUnion(minValue, f.bounds.Max, acc)
	}
	for id := minBucket + 1; id < maxBucket; id++ {
		if b, ok := f.buckets[id]; ok {
			acc.Or(b.merged)
		}
	}
	if b, ok := f.buckets[maxBucket]; ok {
		b.RangeUnion(f.bounds.Min, maxValue, acc)
	}
	return types.FromBitmap(acc)
}

// GetExtents returns the extent of values present among matching ids and
// how many of them carry a value.
func (f *NumberField[V]) GetExtents(matching *types.ItemList) (NumberRange[V], int) {
	var r NumberRange[V]
	n := 0
	if matching == nil || f.count == 0 {
		return r, 0
	}
	matching.ForEach(func(id types.ItemId) bool {
		v, ok := f.values[id]
		if !ok {
			return true
		}
		if n == 0 {
			r.Min, r.Max = v, v
		} else {
			if v < r.Min {
				r.Min = v
			}
			if v > r.Max {
				r.Max = v
			}
		}
		n++
		return true
	})
	return r, n
}

func (f *NumberField[V]) ValueForItemId(id types.ItemId) (V, bool) {
	v, ok := f.values[id]
	return v, ok
}

func (f *NumberField[V]) Bounds() NumberRange[V] {
	return f.bounds
}

func (f *NumberField[V]) TotalCount() int {
	return f.count
}
