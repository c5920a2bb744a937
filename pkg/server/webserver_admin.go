package server

import (
	"net/http"
	"net/http/pprof"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stenmark/stone-finder/pkg/sorting"
	"github.com/stenmark/stone-finder/pkg/types"
)

// UpdatePopularOverride replaces the merchandising boost of the popular
// sort. With redis the override is published and every node applies it
// through its subscription, without redis it lands on this node only.
func (ws *WebServer) UpdatePopularOverride(w http.ResponseWriter, r *http.Request) {
	override := types.SortOverride{}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&override); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ws.Redis != nil {
		if err := sorting.PublishPopularOverride(ws.Redis, &override); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		ws.Index.Sorting.HandleSortOverrideUpdate(types.SortOverrideUpdate{
			Key:  sorting.PopularSort,
			Data: override,
		})
	}
	w.WriteHeader(http.StatusOK)
	sonic.ConfigDefault.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (ws *WebServer) GetPopularOverride(w http.ResponseWriter, r *http.Request) {
	override, ok := ws.Index.Sorting.GetOverride(sorting.PopularSort)
	if !ok {
		override = types.SortOverride{}
	}
	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	sonic.ConfigDefault.NewEncoder(w).Encode(override)
}

func (ws *WebServer) UpdateStaticPositions(w http.ResponseWriter, r *http.Request) {
	statics := sorting.StaticPositions{}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&statics); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ws.Redis != nil {
		if err := sorting.PublishStaticPositions(ws.Redis, &statics); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	} else {
		ws.Index.Sorting.SetStaticPositions(statics)
	}
	w.WriteHeader(http.StatusOK)
	sonic.ConfigDefault.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Save writes the current catalog snapshot to storage on demand.
func (ws *WebServer) Save(w http.ResponseWriter, r *http.Request) {
	if ws.Storage == nil {
		http.Error(w, "Storage not enabled", http.StatusNotImplemented)
		return
	}
	if err := ws.Storage.SaveItems(ws.Index.GetAllItems()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	sonic.ConfigDefault.NewEncoder(w).Encode(map[string]string{"status": "saved"})
}

func (ws *WebServer) AdminHandler() *http.ServeMux {
	srv := http.NewServeMux()

	srv.HandleFunc("GET /sort/popular", ws.GetPopularOverride)
	srv.HandleFunc("POST /sort/popular", ws.UpdatePopularOverride)
	srv.HandleFunc("POST /sort/static", ws.UpdateStaticPositions)
	srv.HandleFunc("POST /save", ws.Save)

	return srv
}

// DebugHandler serves the operational surface, meant for a separate listener
// that is not reachable from the storefront.
func DebugHandler() *http.ServeMux {
	srv := http.NewServeMux()

	srv.Handle("/metrics", promhttp.Handler())
	srv.HandleFunc("/debug/pprof/", pprof.Index)
	srv.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	srv.HandleFunc("/debug/pprof/profile", pprof.Profile)
	srv.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	srv.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return srv
}
