package tracking

import (
	"net/http"

	"github.com/stenmark/stone-finder/pkg/types"
)

// NoopTracking is wired when no broker is configured so handlers never
// have to care whether events go anywhere.
type NoopTracking struct{}

func (NoopTracking) TrackSession(sessionId string, r *http.Request) {}

func (NoopTracking) TrackSearch(sessionId string, filters *types.Filters, hits int, page int, r *http.Request) {
}

func (NoopTracking) TrackClick(sessionId string, id types.ItemId, position float32, r *http.Request) {
}

func (NoopTracking) TrackRelated(sessionId string, id types.ItemId, hits int, r *http.Request) {}

func (NoopTracking) TrackBrowse(sessionId string, browseId string, page int, r *http.Request) {}

func (NoopTracking) Close() error { return nil }
