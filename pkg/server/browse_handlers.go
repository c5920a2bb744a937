package server

import (
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/stenmark/stone-finder/pkg/browse"
	"github.com/stenmark/stone-finder/pkg/types"
)

// BrowseRequest is the body of the browse create and update calls. Absent
// fields leave the session's current value untouched.
type BrowseRequest struct {
	Filters  *types.Filters `json:"filters,omitempty"`
	Sort     string         `json:"sort,omitempty"`
	PageSize int            `json:"pageSize,omitempty"`
}

// BrowseMoreResponse answers a load-more call. Started false means another
// fetch was already running and State is what that fetch will update.
type BrowseMoreResponse struct {
	Started bool         `json:"started"`
	State   browse.State `json:"state"`
}

// decodeBrowseRequest tolerates an empty body, every field is optional.
func decodeBrowseRequest(r *http.Request) (*BrowseRequest, error) {
	req := &BrowseRequest{}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(req); err != nil && err != io.EOF {
		return nil, err
	}
	return req, nil
}

// CreateBrowse opens a browse session and answers its state with the first
// page already loaded. Invalid initial filters reject the request and no
// session is kept.
func (ws *WebServer) CreateBrowse(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error {
	req, err := decodeBrowseRequest(r)
	if err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	ctx := r.Context()
	session := ws.Browse.Create(ws.Index, req.PageSize)
	if req.Sort != "" {
		session.SetSort(ctx, req.Sort)
	}
	if req.Filters != nil {
		if changed, err := session.SetFilters(ctx, req.Filters.Canonicalize()); err != nil && !changed {
			ws.Browse.Delete(session.State().Id)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil
		}
	}
	state := session.State()
	if state.Page == 0 && state.Error == "" {
		session.LoadMore(ctx)
		state = session.State()
	}

	if ws.Tracking != nil {
		go ws.Tracking.TrackBrowse(sessionId, state.Id, state.Page, r)
	}

	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(state)
}

func (ws *WebServer) GetBrowse(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error {
	session, ok := ws.Browse.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Browse session not found", http.StatusNotFound)
		return nil
	}
	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.State())
}

// UpdateBrowse replaces the session's sort or filters. A rejected filter
// state answers 400 and leaves the session as it was, a failed refetch
// answers the state with its error field set.
func (ws *WebServer) UpdateBrowse(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error {
	session, ok := ws.Browse.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Browse session not found", http.StatusNotFound)
		return nil
	}
	req, err := decodeBrowseRequest(r)
	if err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return nil
	}
	ctx := r.Context()
	if req.Sort != "" {
		session.SetSort(ctx, req.Sort)
	}
	if req.Filters != nil {
		if changed, err := session.SetFilters(ctx, req.Filters.Canonicalize()); err != nil && !changed {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return nil
		}
	}
	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(session.State())
}

func (ws *WebServer) MoreBrowse(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error {
	session, ok := ws.Browse.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "Browse session not found", http.StatusNotFound)
		return nil
	}
	started, _ := session.LoadMore(r.Context())
	state := session.State()

	if ws.Tracking != nil {
		go ws.Tracking.TrackBrowse(sessionId, state.Id, state.Page, r)
	}

	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(&BrowseMoreResponse{Started: started, State: state})
}

func (ws *WebServer) DeleteBrowse(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error {
	id := r.PathValue("id")
	if _, ok := ws.Browse.Get(id); !ok {
		http.Error(w, "Browse session not found", http.StatusNotFound)
		return nil
	}
	ws.Browse.Delete(id)
	defaultHeaders(w, r, true, "0")
	w.WriteHeader(http.StatusOK)
	return enc.Encode(map[string]string{"status": "deleted"})
}
