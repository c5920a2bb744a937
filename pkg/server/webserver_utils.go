package server

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"time"
)

func defaultHeaders(w http.ResponseWriter, r *http.Request, isJson bool, cacheTime string) {
	w.Header().Set("Cache-Control", "private, stale-while-revalidate="+cacheTime)
	genericHeaders(w, r, isJson)
}

func genericHeaders(w http.ResponseWriter, r *http.Request, isJson bool) {
	if isJson {
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	} else {
		w.Header().Set("Content-Type", "application/jsonl+json; charset=UTF-8")
	}
	origin := r.Header.Get("Origin")
	if origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
	w.Header().Set("Age", "0")
}

func publicHeaders(w http.ResponseWriter, r *http.Request, isJson bool, cacheTime string) {
	w.Header().Set("Cache-Control", "public, max-age="+cacheTime)
	genericHeaders(w, r, isJson)
}

type cacheWriter struct {
	key      string
	duration time.Duration
	buf      bytes.Buffer
	store    func(context.Context, string, []byte, time.Duration) error
}

func (cw *cacheWriter) Write(p []byte) (n int, err error) {
	return cw.buf.Write(p)
}

// Store persists everything written so far under the key. Write only
// collects, so a response abandoned halfway never reaches the cache.
func (cw *cacheWriter) Store(ctx context.Context) {
	if cw.buf.Len() == 0 {
		return
	}
	if err := cw.store(ctx, cw.key, cw.buf.Bytes(), cw.duration); err != nil {
		log.Printf("Error caching response for %s: %v", cw.key, err)
	}
}

// MakeCacheWriter tees the response into a buffer that Store hands to the
// cache once the body is complete.
func MakeCacheWriter(w io.Writer, key string, setRaw func(context.Context, string, []byte, time.Duration) error) (io.Writer, *cacheWriter) {
	cw := &cacheWriter{
		key:      key,
		duration: time.Second * (60 * 5),
		store:    setRaw,
	}
	return io.MultiWriter(w, cw), cw
}
