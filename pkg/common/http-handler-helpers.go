package common

import (
	"log"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/stenmark/stone-finder/pkg/types"
)

// JsonHandler wraps a storefront handler with the shared plumbing: OPTIONS
// preflight, session cookie and a JSON encoder on the response. Handlers
// write their own 4xx answers and return nil; a returned error is a server
// fault and answers 500.
func JsonHandler(trk types.Tracking, fn func(w http.ResponseWriter, r *http.Request, sessionId string, enc sonic.Encoder) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "OPTIONS" {
			RespondToOptions(w, r)
			return
		}
		sessionId := HandleSessionCookie(trk, w, r)

		err := fn(w, r, sessionId, sonic.ConfigDefault.NewEncoder(w))
		if err != nil {
			log.Printf("Error handling request: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
}

func RespondToOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
	w.WriteHeader(http.StatusAccepted)
}
