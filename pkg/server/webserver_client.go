package server

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stenmark/stone-finder/pkg/common"
	"github.com/stenmark/stone-finder/pkg/facet"
	"github.com/stenmark/stone-finder/pkg/filter"
	"github.com/stenmark/stone-finder/pkg/sorting"
	"github.com/stenmark/stone-finder/pkg/types"
)

var (
	noSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_searches_total",
		Help: "The total number of processed searches",
	})
	noSuggests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_suggest_total",
		Help: "The total number of processed suggestions",
	})
	noFacetSearches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_facets_total",
		Help: "The total number of processed facet aggregations",
	})
	noRelated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stonefinder_related_total",
		Help: "The total number of processed related lookups",
	})
)

// facetsCacheTtl matches the cache writer duration so the footer path and
// the facets endpoint age their shared entries together.
const (
	suggestItemCap  = 10
	facetsCacheTtl  = 5 * time.Minute
	relatedCacheTtl = 5 * time.Minute
)

// SearchStreamed answers a listing request as one item per line followed by
// a footer line with the paging totals. Facets are folded into the footer
// when the request asks for them.
func (ws *WebServer) SearchStreamed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sr, err := filter.FromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	go noSearches.Inc()

	page, err := ws.Index.FetchPage(r.Context(), sr.Filters, sr.Page, sr.PageSize, sr.Sort)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sessionId := common.HandleSessionCookie(ws.Tracking, w, r)
	if ws.Tracking != nil {
		go ws.Tracking.TrackSearch(sessionId, sr.Filters, page.TotalHits, page.Page, r)
	}

	defaultHeaders(w, r, false, "600")
	w.WriteHeader(http.StatusOK)

	enc := sonic.ConfigDefault.NewEncoder(w)
	for _, item := range page.Items {
		enc.Encode(item)
	}

	footer := &SearchResponse{
		Duration:  float64(time.Since(start).Microseconds()) / 1000.0,
		Page:      page.Page,
		PageSize:  page.PageSize,
		TotalHits: page.TotalHits,
		Sort:      sr.Sort,
		More:      page.More,
	}
	if r.URL.Query().Get("facets") == "true" {
		facets, err := ws.cachedFacets(r.Context(), sr.Filters)
		if err != nil {
			log.Printf("Error getting facets for stream: %v", err)
		} else {
			footer.Facets = facets
		}
	}
	enc.Encode(footer)
}

func (ws *WebServer) cachedFacets(ctx context.Context, f *types.Filters) (*facet.Result, error) {
	go noFacetSearches.Inc()
	return CacheResult(ws.Cache, ctx, "facets:"+f.Key(), facetsCacheTtl, func() (*facet.Result, error) {
		return ws.Index.Facets(ctx, f)
	})
}

// GetFacets renders the facet counts for the query string filters. The
// rendered body is cached under the canonical filter key, a hit answers
// straight from the cached bytes.
func (ws *WebServer) GetFacets(w http.ResponseWriter, r *http.Request) {
	f := filter.Decode(r.URL.Query())
	if err := f.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	go noFacetSearches.Inc()

	key := "facets:" + f.Key()
	if data, ok := ws.Cache.GetRaw(r.Context(), key); ok {
		defaultHeaders(w, r, true, "60")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	facets, err := ws.Index.Facets(r.Context(), f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	defaultHeaders(w, r, true, "60")
	w.WriteHeader(http.StatusOK)
	writer, cw := MakeCacheWriter(w, key, ws.Cache.SetRaw)
	if err := sonic.ConfigDefault.NewEncoder(writer).Encode(facets); err != nil {
		log.Printf("Error encoding facets: %v", err)
		return
	}
	cw.Store(r.Context())
}

// Suggest streams completions for the last word of the query, a blank line,
// then the top items matching any completion.
func (ws *WebServer) Suggest(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "Missing query", http.StatusBadRequest)
		return
	}
	go noSuggests.Inc()

	matches := ws.Index.Search.Suggest(query)
	words := strings.Fields(query)
	other := words[:len(words)-1]

	defaultHeaders(w, r, false, "360")
	w.WriteHeader(http.StatusOK)

	enc := sonic.ConfigDefault.NewEncoder(w)
	results := types.NewItemList()
	sitem := &SuggestResult{Other: other}
	for _, m := range matches {
		sitem.Word = m.Word
		sitem.Hits = int(m.Items.GetCardinality())
		enc.Encode(sitem)
		results.Merge(types.FromBitmap(m.Items))
	}

	w.Write([]byte("\n"))

	ids := ws.Index.Sorting.SortedIds(results, sorting.PopularSort, 0, suggestItemCap)
	for _, item := range ws.Index.GetItems(ids) {
		enc.Encode(item)
	}
}

func (ws *WebServer) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, ok := ws.Index.GetItem(types.ItemId(id))
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	publicHeaders(w, r, true, "120")
	w.WriteHeader(http.StatusOK)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(item); err != nil {
		log.Printf("Error encoding item: %v", err)
	}
}

func (ws *WebServer) GetItemBySku(w http.ResponseWriter, r *http.Request) {
	item, ok := ws.Index.GetItemBySku(r.PathValue("sku"))
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	publicHeaders(w, r, true, "120")
	w.WriteHeader(http.StatusOK)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(item); err != nil {
		log.Printf("Error encoding item: %v", err)
	}
}

// GetItems answers a batch lookup, the body is a JSON array of ids. Unknown
// ids are skipped, the answer keeps the requested order.
func (ws *WebServer) GetItems(w http.ResponseWriter, r *http.Request) {
	ids := make([]types.ItemId, 0)
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defaultHeaders(w, r, true, "600")
	w.WriteHeader(http.StatusOK)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(ws.Index.GetItems(ids)); err != nil {
		log.Printf("Error encoding items: %v", err)
	}
}

// Related answers the recommendations for one item as a JSON array, empty
// when the cascade finds nothing. The ranked id order is cached, the items
// themselves are always rendered fresh so prices and stock stay current.
func (ws *WebServer) Related(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, ok := ws.Index.GetItem(types.ItemId(id))
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	if ws.Recommender == nil {
		http.Error(w, "Related not enabled", http.StatusNotImplemented)
		return
	}
	go noRelated.Inc()

	key := "related:" + strconv.Itoa(id)
	ids, err := CacheResult(ws.Cache, r.Context(), key, relatedCacheTtl, func() ([]types.ItemId, error) {
		ranked, err := ws.Recommender.RelatedTo(r.Context(), item)
		if err != nil {
			return nil, err
		}
		ids := make([]types.ItemId, 0, len(ranked))
		for _, it := range ranked {
			ids = append(ids, it.GetId())
		}
		return ids, nil
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	items := ws.Index.GetItems(ids)

	sessionId := common.HandleSessionCookie(ws.Tracking, w, r)
	if ws.Tracking != nil {
		go ws.Tracking.TrackRelated(sessionId, item.GetId(), len(items), r)
	}

	publicHeaders(w, r, true, "600")
	w.WriteHeader(http.StatusOK)
	if err := sonic.ConfigDefault.NewEncoder(w).Encode(items); err != nil {
		log.Printf("Error encoding related items: %v", err)
	}
}

// WatchPriceChange subscribes a push token to price drops of one item.
func (ws *WebServer) WatchPriceChange(w http.ResponseWriter, r *http.Request) {
	defaultHeaders(w, r, true, "0")
	if ws.Watches == nil {
		http.Error(w, "Price watch not enabled", http.StatusNotImplemented)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, ok := ws.Index.GetItem(types.ItemId(id))
	if !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	var watchRequest PriceWatchRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&watchRequest); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if watchRequest.Token == "" {
		http.Error(w, "Subscription token is required", http.StatusBadRequest)
		return
	}

	if err := ws.Watches.Watch(r.Context(), item.GetId(), watchRequest.Token); err != nil {
		log.Printf("Error saving price watch: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	sonic.ConfigDefault.NewEncoder(w).Encode(map[string]string{
		"status": "success",
		"itemId": strconv.Itoa(id),
	})
}

func (ws *WebServer) TrackClick(w http.ResponseWriter, r *http.Request) {
	sessionId := common.HandleSessionCookie(ws.Tracking, w, r)
	itemId, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	position, _ := strconv.Atoi(r.URL.Query().Get("pos"))

	if ws.Tracking != nil {
		go ws.Tracking.TrackClick(sessionId, types.ItemId(itemId), float32(position)/100.0, r)
	}
	genericHeaders(w, r, true)
	w.WriteHeader(http.StatusAccepted)
}

// ClientHandler is the storefront surface. Every route carries its method
// so the OPTIONS catch-all can answer preflight for all of them.
func (ws *WebServer) ClientHandler() *http.ServeMux {
	srv := http.NewServeMux()

	srv.HandleFunc("OPTIONS /", common.RespondToOptions)
	srv.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		defaultHeaders(w, r, false, "0")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv.HandleFunc("GET /stream", ws.SearchStreamed)
	srv.HandleFunc("POST /stream", ws.SearchStreamed)
	srv.HandleFunc("GET /facets", ws.GetFacets)
	srv.HandleFunc("GET /suggest", ws.Suggest)
	srv.HandleFunc("GET /related/{id}", ws.Related)
	srv.HandleFunc("GET /get/{id}", ws.GetItem)
	srv.HandleFunc("POST /get", ws.GetItems)
	srv.HandleFunc("GET /by-sku/{sku}", ws.GetItemBySku)
	srv.HandleFunc("POST /watch/{id}", ws.WatchPriceChange)
	srv.HandleFunc("GET /track/click", ws.TrackClick)
	srv.HandleFunc("POST /track/click", ws.TrackClick)

	srv.HandleFunc("POST /browse", common.JsonHandler(ws.Tracking, ws.CreateBrowse))
	srv.HandleFunc("GET /browse/{id}", common.JsonHandler(ws.Tracking, ws.GetBrowse))
	srv.HandleFunc("POST /browse/{id}/filters", common.JsonHandler(ws.Tracking, ws.UpdateBrowse))
	srv.HandleFunc("POST /browse/{id}/more", common.JsonHandler(ws.Tracking, ws.MoreBrowse))
	srv.HandleFunc("DELETE /browse/{id}", common.JsonHandler(ws.Tracking, ws.DeleteBrowse))

	return srv
}
