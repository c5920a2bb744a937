package types

// Page is one fetched slice of a filtered, sorted catalog listing. Page
// numbering is 1-based; an out-of-range page has no items and More false.
type Page struct {
	Items     []Item `json:"items"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
	TotalHits int    `json:"totalHits"`
	More      bool   `json:"more"`
}

// CandidateQuery is the flat predicate the recommender asks the catalog
// with: equality on type and color (empty means any), an optional price
// band and an in-stock gate.
type CandidateQuery struct {
	StoneType string
	Color     string
	Price     *PriceRange
	InStock   bool
}
