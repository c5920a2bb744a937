package sorting

import (
	"time"

	"github.com/stenmark/stone-finder/pkg/types"
)

type ItemPopularityRule interface {
	GetValue(item types.Item) float64
}

func CollectPopularity(item types.Item, rules ...ItemPopularityRule) float64 {
	var sum float64
	for _, rule := range rules {
		sum += rule.GetValue(item)
	}
	return sum
}

type StockRule struct {
	ValueIfInStock float64 `json:"valueIfInStock"`
	NoStockValue   float64 `json:"noStockValue"`
}

func (r *StockRule) GetValue(item types.Item) float64 {
	if item.HasStock() {
		return r.ValueIfInStock
	}
	return r.NoStockValue
}

type FlagRule struct {
	Flag       types.Flag `json:"flag"`
	ValueIfSet float64    `json:"valueIfSet"`
}

func (r *FlagRule) GetValue(item types.Item) float64 {
	if item.GetFlag(r.Flag) {
		return r.ValueIfSet
	}
	return 0
}

// FreshnessRule scores newly listed stones higher, fading by DayPenalty per
// day since creation until the bonus runs out.
type FreshnessRule struct {
	MaxValue   float64 `json:"maxValue"`
	DayPenalty float64 `json:"dayPenalty"`
}

func (r *FreshnessRule) GetValue(item types.Item) float64 {
	created := item.GetCreated()
	if created <= 0 {
		return 0
	}
	ageDays := float64((time.Now().UnixMilli() - created) / 86_400_000)
	value := r.MaxValue - ageDays*r.DayPenalty
	if value < 0 {
		return 0
	}
	return value
}

// PriceSpanRule penalizes prices outside the span the storefront sells well
// in, pushing bargain-bin and trophy pieces off the first page.
type PriceSpanRule struct {
	Min          int     `json:"min"`
	Max          int     `json:"max"`
	ValueOutside float64 `json:"valueOutside"`
}

func (r *PriceSpanRule) GetValue(item types.Item) float64 {
	price := item.GetPrice()
	if price < r.Min || price > r.Max {
		return r.ValueOutside
	}
	return 0
}

func DefaultPopularityRules() []ItemPopularityRule {
	return []ItemPopularityRule{
		&StockRule{ValueIfInStock: 5000, NoStockValue: -2000},
		&FlagRule{Flag: types.FlagHasCertification, ValueIfSet: 3000},
		&FlagRule{Flag: types.FlagHasImages, ValueIfSet: 1500},
		&FlagRule{Flag: types.FlagHasAnalysis, ValueIfSet: 500},
		&FreshnessRule{MaxValue: 2500, DayPenalty: 25},
		&PriceSpanRule{Min: 10_000, Max: 100_000_000, ValueOutside: -800},
	}
}
