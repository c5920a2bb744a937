package facet

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// FieldNumberValue covers the numeric domains of range facets. Prices are
// minor currency units, weights are carats.
type FieldNumberValue interface {
	int64 | float64
}

const bitsToShift = 9

// GetBucket maps a value to its coarse bucket. Carat weights are scaled to
// points (hundredths) first so fractional values spread across buckets
// instead of collapsing into bucket zero.
func GetBucket[V FieldNumberValue](value V) int {
	switch v := any(value).(type) {
	case int64:
		return int(v >> bitsToShift)
	case float64:
		return int(int64(v*100) >> bitsToShift)
	}
	return 0
}

type valueEntry[V FieldNumberValue] struct {
	value V
	ids   *roaring.Bitmap
}

// ValueBucket holds one posting list per distinct value inside a coarse
// bucket. Entries stay sorted ascending so range scans can break early,
// merged is the union of all entries for whole-bucket unions.
type ValueBucket[V FieldNumberValue] struct {
	entries []valueEntry[V]
	merged  *roaring.Bitmap
}

func NewValueBucket[V FieldNumberValue]() *ValueBucket[V] {
	return &ValueBucket[V]{
		merged: roaring.New(),
	}
}

func (b *ValueBucket[V]) find(value V) (int, bool) {
	return slices.BinarySearchFunc(b.entries, value, func(e valueEntry[V], v V) int {
		if e.value < v {
			return -1
		}
		if e.value > v {
			return 1
		}
		return 0
	})
}

func (b *ValueBucket[V]) AddValue(value V, id uint32) {
	idx, ok := b.find(value)
	if !ok {
		b.entries = slices.Insert(b.entries, idx, valueEntry[V]{value: value, ids: roaring.New()})
	}
	b.entries[idx].ids.Add(id)
	b.merged.Add(id)
}

func (b *ValueBucket[V]) RemoveValue(value V, id uint32) {
	idx, ok := b.find(value)
	if !ok {
		return
	}
	b.entries[idx].ids.Remove(id)
	b.merged.Remove(id)
	if b.entries[idx].ids.IsEmpty() {
		b.entries = slices.Delete(b.entries, idx, idx+1)
	}
}

// RangeUnion ors every posting list with value in [minValue, maxValue]
// into acc.
func (b *ValueBucket[V]) RangeUnion(minValue V, maxValue V, acc *roaring.Bitmap) {
	for _, e := range b.entries {
		if e.value > maxValue {
			break
		}
		if e.value >= minValue {
			acc.Or(e.ids)
		}
	}
}

func (b *ValueBucket[V]) Cardinality() uint64 {
	return b.merged.GetCardinality()
}
