package facet

import (
	"cmp"
	"slices"
	"strings"

	"github.com/stenmark/stone-finder/pkg/types"
)

// ValueCount is one selectable facet value with the number of hits
// selecting it would yield on top of the other active filters.
type ValueCount struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected,omitempty"`
}

type DimensionResult struct {
	Dimension types.Dimension `json:"id"`
	Values    []ValueCount    `json:"values"`
}

type RangeResult[V FieldNumberValue] struct {
	NumberRange[V]
	Count    int  `json:"count"`
	Selected bool `json:"selected,omitempty"`
}

type FlagResult struct {
	Flag     types.Flag `json:"id"`
	Count    int        `json:"count"`
	Selected bool       `json:"selected,omitempty"`
}

// Result is the aggregated facet response for one filter state.
type Result struct {
	Facets    []*DimensionResult    `json:"facets"`
	Price     *RangeResult[int64]   `json:"price,omitempty"`
	Weight    *RangeResult[float64] `json:"weight,omitempty"`
	Flags     []*FlagResult         `json:"flags"`
	TotalHits int                   `json:"totalHits"`
}

// SortValues orders facet values for display. Clarity grades use their
// quality ordinal, every other dimension sorts by label.
func SortValues(dim types.Dimension, values []ValueCount) {
	if dim == types.DimClarity {
		slices.SortFunc(values, func(a, b ValueCount) int {
			if c := cmp.Compare(types.ClarityOrdinal(a.Value), types.ClarityOrdinal(b.Value)); c != 0 {
				return c
			}
			return strings.Compare(a.Value, b.Value)
		})
		return
	}
	slices.SortFunc(values, func(a, b ValueCount) int {
		return strings.Compare(a.Value, b.Value)
	})
}
