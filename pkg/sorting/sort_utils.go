package sorting

import (
	"fmt"
	"slices"
	"strings"

	"github.com/stenmark/stone-finder/pkg/types"
)

func ToMap(f types.ByValue) map[types.ItemId]float64 {
	m := make(map[types.ItemId]float64, len(f))
	for _, item := range f {
		m[item.Id] = item.Value
	}
	return m
}

func toSortIndex(f types.ByValue) types.SortIndex {
	sortIndex := make(types.SortIndex, len(f))
	for idx, item := range f {
		sortIndex[idx] = item.Id
	}
	return sortIndex
}

func cloneReversed(idx types.SortIndex) types.SortIndex {
	n := make(types.SortIndex, len(idx))
	copy(n, idx)
	slices.Reverse(n)
	return n
}

// StaticPositions pins stones to fixed slots in a sort, kept in redis as a
// "position:id," string like the score overrides.
type StaticPositions map[int]types.ItemId

func (s *StaticPositions) Set(position int, id types.ItemId) {
	(*s)[position] = id
}

func (s *StaticPositions) ToString() string {
	ret := ""
	for position, id := range *s {
		ret += fmt.Sprintf("%d:%d,", position, id)
	}
	return ret
}

func (s *StaticPositions) FromString(data string) error {
	var position int
	var id uint
	for item := range strings.SplitSeq(data, ",") {
		_, err := fmt.Sscanf(item, "%d:%d", &position, &id)
		if err != nil {
			if err.Error() == "EOF" {
				return nil
			}
			return err
		}
		s.Set(position, types.ItemId(id))
	}
	return nil
}

// Apply moves the pinned ids to their slots, pushing the organic order down.
// Pinned ids missing from the index are ignored, positions past the end pin
// to the tail.
func (s StaticPositions) Apply(idx types.SortIndex) types.SortIndex {
	if len(s) == 0 {
		return idx
	}
	pinned := make(map[types.ItemId]bool, len(s))
	for _, id := range s {
		pinned[id] = true
	}
	out := make(types.SortIndex, 0, len(idx))
	for _, id := range idx {
		if !pinned[id] {
			out = append(out, id)
		}
	}
	positions := make([]int, 0, len(s))
	for position := range s {
		if slices.Contains(idx, s[position]) {
			positions = append(positions, position)
		}
	}
	slices.Sort(positions)
	for _, position := range positions {
		at := min(position, len(out))
		out = slices.Insert(out, at, s[position])
	}
	return out
}
