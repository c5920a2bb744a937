package types

import (
	"fmt"
	"slices"
	"strings"
)

// SortOverride carries manually boosted (or buried) scores per item, kept in
// redis as a "id:score," string so the merchandising side can edit it.
type SortOverride map[ItemId]float64

func (s *SortOverride) Set(id ItemId, value float64) {
	(*s)[id] = value
}

func (s *SortOverride) ToString() string {
	ret := ""
	for key, value := range *s {
		ret += fmt.Sprintf("%d:%f,", key, value)
	}
	return ret
}

func (s *SortOverride) FromString(data string) error {
	var key uint
	var value float64
	for item := range strings.SplitSeq(data, ",") {
		_, err := fmt.Sscanf(item, "%d:%f", &key, &value)
		if err != nil {
			if err.Error() == "EOF" {
				return nil
			}
			return err
		}
		s.Set(ItemId(key), value)
	}
	return nil
}

func (s *SortOverride) ToSortedLookup() ByValue {
	return slices.SortedFunc(func(yield func(lookup Lookup) bool) {
		for id, value := range *s {
			if !yield(Lookup{Id: id, Value: value}) {
				break
			}
		}
	}, LookUpReversed)
}

// SortOverrideUpdate is the payload broadcast when a merchandising override
// changes. Key names the sort it applies to.
type SortOverrideUpdate struct {
	Key  string       `json:"key"`
	Data SortOverride `json:"data"`
}
