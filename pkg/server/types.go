package server

import (
	"github.com/redis/go-redis/v9"

	"github.com/stenmark/stone-finder/pkg/browse"
	"github.com/stenmark/stone-finder/pkg/index"
	"github.com/stenmark/stone-finder/pkg/notify"
	"github.com/stenmark/stone-finder/pkg/related"
	"github.com/stenmark/stone-finder/pkg/types"
)

// WebServer bundles the item index with the services around it. Storage,
// Tracking, Watches, Cache and Redis are optional, a nil field disables
// that concern and the handlers answer without it.
type WebServer struct {
	Index       *index.ItemIndex
	Storage     types.StorageProvider
	Tracking    types.Tracking
	Recommender *related.Recommender
	Browse      *browse.Registry
	Watches     *notify.PriceWatcher
	Cache       *Cache
	Redis       *redis.Client
}

func NewWebServer(idx *index.ItemIndex) *WebServer {
	return &WebServer{
		Index:       idx,
		Recommender: related.NewRecommender(idx),
		Browse:      browse.NewRegistry(browse.DefaultSessionTTL),
	}
}
