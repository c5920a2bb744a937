package server

import (
	"github.com/stenmark/stone-finder/pkg/facet"
)

// SearchResponse is the footer line of a streamed search result, written
// after the item lines. Duration is the server side time in milliseconds.
type SearchResponse struct {
	Duration  float64       `json:"duration"`
	Page      int           `json:"page"`
	PageSize  int           `json:"pageSize"`
	TotalHits int           `json:"totalHits"`
	Sort      string        `json:"sort"`
	More      bool          `json:"more"`
	Facets    *facet.Result `json:"facets,omitempty"`
}

// SuggestResult is one completion line in the suggest stream. Other holds
// the words before the completed one so the client can assemble the query.
type SuggestResult struct {
	Word  string   `json:"match"`
	Hits  int      `json:"hits"`
	Other []string `json:"other,omitempty"`
}

// PriceWatchRequest is the body of a price watch subscription.
type PriceWatchRequest struct {
	Token string `json:"token"`
}
