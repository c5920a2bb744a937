package common

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stenmark/stone-finder/pkg/types"
)

func generateSessionId() string {
	return uuid.New().String()
}

func setSessionCookie(w http.ResponseWriter, r *http.Request, sessionId string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "sid",
		Value:    sessionId,
		Domain:   strings.TrimPrefix(r.Host, "."),
		SameSite: http.SameSiteNoneMode,
		HttpOnly: true,
		MaxAge:   2592000,
		Path:     "/",
	})
}

// HandleSessionCookie returns the visitor's session id, minting a new one
// and tracking the fresh session when the sid cookie is absent or mangled.
func HandleSessionCookie(tracking types.Tracking, w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie("sid")
	if err == nil {
		if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
			return c.Value
		}
	}
	sessionId := generateSessionId()
	if tracking != nil {
		go tracking.TrackSession(sessionId, r)
	}
	setSessionCookie(w, r, sessionId)
	return sessionId
}
