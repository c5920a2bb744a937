package related

import (
	"context"
	"slices"

	"go.opentelemetry.io/otel"

	"github.com/stenmark/stone-finder/pkg/types"
)

var tracer = otel.Tracer("stone-finder-related")

const (
	DefaultCount     = 8
	DefaultBandRatio = 0.5
)

// Source is the store side of the recommender, answered by the item index.
type Source interface {
	Candidates(ctx context.Context, q types.CandidateQuery, limit int) ([]types.Item, error)
}

// RankedCandidate is one recommendation with the score and the cascade
// tier that produced it.
type RankedCandidate struct {
	Item  types.Item `json:"item"`
	Score int        `json:"score"`
	Tier  int        `json:"tier"`
}

// Recommender finds items related to a reference item with a cascade of
// store queries: same type within a price band, then same color within the
// band, then same type at any price. Tiers run only while the result is
// still short of Count. Candidates are re-ranked by attribute affinity,
// ties keep discovery order, so identical store content yields identical
// output.
//
// The price band is a percentage band, reference price times
// [1-BandRatio, 1+BandRatio].
type Recommender struct {
	Source    Source
	Count     int
	BandRatio float64
}

func NewRecommender(src Source) *Recommender {
	return &Recommender{
		Source:    src,
		Count:     DefaultCount,
		BandRatio: DefaultBandRatio,
	}
}

type tierQuery struct {
	ordinal int
	query   types.CandidateQuery
}

func (r *Recommender) bandFor(ref types.Item) *types.PriceRange {
	ratio := r.BandRatio
	if ratio <= 0 {
		ratio = DefaultBandRatio
	}
	price := float64(ref.GetPrice())
	return &types.PriceRange{
		Min: int64(price * (1 - ratio)),
		Max: int64(price * (1 + ratio)),
	}
}

// tiersFor builds the cascade for one reference item. Tiers whose anchor
// attribute the item lacks are left out, their ordinals are kept.
func (r *Recommender) tiersFor(ref types.Item, band *types.PriceRange) []tierQuery {
	refType, _ := ref.GetStringField(types.DimType)
	refColor, _ := ref.GetStringField(types.DimColor)

	tiers := make([]tierQuery, 0, 3)
	if refType != "" {
		tiers = append(tiers, tierQuery{1, types.CandidateQuery{StoneType: refType, Price: band, InStock: true}})
	}
	if refColor != "" {
		tiers = append(tiers, tierQuery{2, types.CandidateQuery{Color: refColor, Price: band, InStock: true}})
	}
	if refType != "" {
		tiers = append(tiers, tierQuery{3, types.CandidateQuery{StoneType: refType, InStock: true}})
	}
	return tiers
}

// RankedTo returns up to Count items related to ref, most relevant first.
// A store error at any tier aborts the whole call, an exhausted cascade
// with fewer than Count hits does not.
func (r *Recommender) RankedTo(ctx context.Context, ref types.Item) ([]RankedCandidate, error) {
	ctx, span := tracer.Start(ctx, "related.RankedTo")
	defer span.End()

	count := r.Count
	if count <= 0 {
		count = DefaultCount
	}
	band := r.bandFor(ref)
	refType, _ := ref.GetStringField(types.DimType)
	refColor, _ := ref.GetStringField(types.DimColor)

	seen := map[types.ItemId]struct{}{ref.GetId(): {}}
	picked := make([]RankedCandidate, 0, count)
	for _, tier := range r.tiersFor(ref, band) {
		if len(picked) >= count {
			break
		}
		items, err := r.Source.Candidates(ctx, tier.query, 0)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if len(picked) >= count {
				break
			}
			id := item.GetId()
			if _, dup := seen[id]; dup {
				continue
			}
			// The queries already ask for stock, the guard holds when the
			// store answer drifted.
			if !item.HasStock() {
				continue
			}
			seen[id] = struct{}{}
			picked = append(picked, RankedCandidate{
				Item:  item,
				Score: scoreAgainst(item, refType, refColor, band),
				Tier:  tier.ordinal,
			})
		}
	}

	slices.SortStableFunc(picked, func(a, b RankedCandidate) int {
		return b.Score - a.Score
	})
	return picked, nil
}

// RelatedTo is RankedTo without the annotations.
func (r *Recommender) RelatedTo(ctx context.Context, ref types.Item) ([]types.Item, error) {
	ranked, err := r.RankedTo(ctx, ref)
	if err != nil {
		return nil, err
	}
	items := make([]types.Item, 0, len(ranked))
	for _, c := range ranked {
		items = append(items, c.Item)
	}
	return items, nil
}

// scoreAgainst weighs shared attributes: type 3, color 2 and price band
// membership 1. Price affinity is band membership, not distance.
func scoreAgainst(item types.Item, refType, refColor string, band *types.PriceRange) int {
	score := 0
	if t, ok := item.GetStringField(types.DimType); ok && t != "" && t == refType {
		score += 3
	}
	if c, ok := item.GetStringField(types.DimColor); ok && c != "" && c == refColor {
		score += 2
	}
	if band != nil {
		if p := int64(item.GetPrice()); p >= band.Min && p <= band.Max {
			score++
		}
	}
	return score
}
