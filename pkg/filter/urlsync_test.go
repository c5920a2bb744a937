package filter

import (
	"testing"
	"time"

	"github.com/stenmark/stone-finder/pkg/types"
)

func TestUrlSyncCollapsesBursts(t *testing.T) {
	writes := make([]string, 0)
	sync := NewUrlSync(func(qs string) {
		writes = append(writes, qs)
	}, time.Hour)

	sync.Schedule(types.NewFilters().WithTerm(types.DimColor, "blue"))
	sync.Schedule(types.NewFilters().WithTerm(types.DimColor, "red"))
	sync.Schedule(types.NewFilters().WithTerm(types.DimColor, "green"))
	sync.Flush()

	if len(writes) != 1 {
		t.Fatalf("Expected one collapsed write, got %d", len(writes))
	}
	if writes[0] != "color=green" {
		t.Errorf("Expected the last scheduled state to win, got %q", writes[0])
	}
	sync.Stop()
}

func TestUrlSyncFiresAfterDelay(t *testing.T) {
	written := make(chan string, 1)
	sync := NewUrlSync(func(qs string) {
		written <- qs
	}, 10*time.Millisecond)

	sync.Schedule(types.NewFilters().WithFlag(types.FlagInStock))

	select {
	case qs := <-written:
		if qs != "inStock=true" {
			t.Errorf("Expected flag encoding, got %q", qs)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Expected a debounced write, got none")
	}
}

func TestUrlSyncKeepsLastGoodOnEncodeFailure(t *testing.T) {
	writes := 0
	sync := NewUrlSync(func(string) {
		writes++
	}, time.Hour)

	sync.Schedule(types.NewFilters().WithTerm(types.DimOrigin, "Brazil"))
	sync.Flush()
	if sync.Current() != "origin=Brazil" || writes != 1 {
		t.Fatalf("Expected a good first write, got %q after %d writes", sync.Current(), writes)
	}

	sync.Schedule(&types.Filters{Price: &types.PriceRange{Min: 10, Max: 1}})
	sync.Flush()

	if writes != 1 {
		t.Errorf("Expected failed encode not to write, got %d writes", writes)
	}
	if sync.Current() != "origin=Brazil" {
		t.Errorf("Expected last good value to survive, got %q", sync.Current())
	}
}

func TestUrlSyncStopDropsPending(t *testing.T) {
	writes := 0
	sync := NewUrlSync(func(string) {
		writes++
	}, time.Hour)

	sync.Schedule(types.NewFilters().WithQuery("opal"))
	sync.Stop()
	sync.Flush()

	if writes != 0 {
		t.Errorf("Expected stop to drop the pending write, got %d", writes)
	}
}
