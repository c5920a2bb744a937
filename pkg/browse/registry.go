package browse

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "stonefinder_browse_sessions",
	Help: "Browse sessions currently held in memory",
})

const DefaultSessionTTL = 30 * time.Minute

// Registry holds the live browse sessions. Sessions nobody touched within
// the TTL are swept out.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	r := &Registry{
		sessions: map[string]*Session{},
		ttl:      ttl,
	}
	go r.sweepLoop()
	return r
}

func (r *Registry) Create(src Source, pageSize int) *Session {
	s := NewSession(src, pageSize)
	r.mu.Lock()
	r.sessions[s.Id] = s
	r.mu.Unlock()
	activeSessions.Inc()
	return s
}

// Get returns the session and marks it used.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch(time.Now())
	}
	return s, ok
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		activeSessions.Dec()
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) sweepLoop() {
	interval := r.ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if n := r.sweepExpired(time.Now()); n > 0 {
			log.Printf("Expired %d browse sessions", n)
		}
	}
}

// sweepExpired removes sessions idle past the TTL and reports how many.
func (r *Registry) sweepExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastTouched()) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	activeSessions.Sub(float64(n))
	return n
}
