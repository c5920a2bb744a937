package types

// SortIndex is a precomputed item order, best first. Paged results are cut
// by walking the order and picking the ids present in the match set, so
// sorting a filtered page never touches items outside the result.
type SortIndex []ItemId

func (s *SortIndex) Add(id ItemId) {
	*s = append(*s, id)
}

func (s *SortIndex) Remove(id ItemId) {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return
		}
	}
}

// PickFrom walks the order and collects ids contained in list, skipping the
// first skip matches and returning at most take ids.
func (s SortIndex) PickFrom(list *ItemList, skip int, take int) []ItemId {
	if take <= 0 {
		return []ItemId{}
	}
	picked := make([]ItemId, 0, take)
	for _, id := range s {
		if !list.Contains(id) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		picked = append(picked, id)
		if len(picked) >= take {
			break
		}
	}
	return picked
}

type Lookup struct {
	Id    ItemId
	Value float64
}

// ByValue is a scored id list, sortable ascending via sort.Sort.
type ByValue []Lookup

func (a ByValue) Len() int           { return len(a) }
func (a ByValue) Less(i, j int) bool { return a[i].Value < a[j].Value }
func (a ByValue) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }

// LookUpReversed orders lookups by descending value, ties by ascending id.
func LookUpReversed(a, b Lookup) int {
	if a.Value > b.Value {
		return -1
	}
	if a.Value < b.Value {
		return 1
	}
	if a.Id < b.Id {
		return -1
	}
	if a.Id > b.Id {
		return 1
	}
	return 0
}
