package sorting

import (
	"fmt"
	"testing"

	"github.com/stenmark/stone-finder/pkg/types"
)

/*
Benchmark goals:

1. Measure the cost of GetSort (building + sorting the slice) for various collection sizes.
2. Cover both descending (default) and ascending (isReversed=true) variants.
3. Keep scoring trivial (price-based) so the comparator dominates the timing.

Item ingestion happens outside the timed section; only GetSort is inside the
benchmark loop.
*/

func prepareSorter(n int, reversed bool) Sorter {
	sorter := NewBaseSorter("price", func(it types.Item) float64 {
		return float64(it.GetPrice())
	}, reversed)

	for i := 0; i < n; i++ {
		// The price pattern repeats to exercise the tie-break path.
		price := (i * 37) % 1000
		sorter.ProcessItem(&types.MockItem{Id: types.ItemId(i), Price: price, Stock: 1})
	}
	return sorter
}

var benchmarkSizes = []int{
	100,
	1_000,
	10_000,
	50_000,
}

func BenchmarkBaseSorterGetSortDescending(b *testing.B) {
	for _, size := range benchmarkSizes {
		b.Run(fmt.Sprintf("N=%d", size), func(b *testing.B) {
			sorter := prepareSorter(size, false)
			_ = sorter.GetSort()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = sorter.GetSort()
			}
		})
	}
}

func BenchmarkBaseSorterGetSortAscending(b *testing.B) {
	for _, size := range benchmarkSizes {
		b.Run(fmt.Sprintf("N=%d", size), func(b *testing.B) {
			sorter := prepareSorter(size, true)
			_ = sorter.GetSort()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = sorter.GetSort()
			}
		})
	}
}

func BenchmarkCollectPopularity(b *testing.B) {
	rules := DefaultPopularityRules()
	item := sortStone(1, 120000, 1.3, 2, 14, map[types.Flag]bool{types.FlagHasCertification: true})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = CollectPopularity(item, rules...)
	}
}
