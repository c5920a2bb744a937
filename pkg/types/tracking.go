package types

import (
	"net/http"
)

type Tracking interface {
	TrackSession(sessionId string, r *http.Request)
	TrackSearch(sessionId string, filters *Filters, hits int, page int, r *http.Request)
	TrackClick(sessionId string, id ItemId, position float32, r *http.Request)
	TrackRelated(sessionId string, id ItemId, hits int, r *http.Request)
	TrackBrowse(sessionId string, browseId string, page int, r *http.Request)
	Close() error
}
