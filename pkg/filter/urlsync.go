package filter

import (
	"log"
	"sync"
	"time"

	"github.com/stenmark/stone-finder/pkg/types"
)

const DefaultSyncDelay = 100 * time.Millisecond

// UrlSync mirrors filter state into a single string sink (the address bar),
// debounced on the trailing edge so a burst of toggles collapses into one
// write carrying the final state. It is one-way: navigation and fetching do
// not go through it, and a state that fails to encode keeps the previous
// good value in place.
type UrlSync struct {
	mu      sync.Mutex
	write   func(string)
	delay   time.Duration
	timer   *time.Timer
	pending *types.Filters
	current string
}

func NewUrlSync(write func(string), delay time.Duration) *UrlSync {
	if delay <= 0 {
		delay = DefaultSyncDelay
	}
	return &UrlSync{
		write: write,
		delay: delay,
	}
}

// Schedule records the latest state and restarts the delay. Only the state
// present when the delay finally elapses is written.
func (s *UrlSync) Schedule(f *types.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = f
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.Flush)
}

// Flush writes any pending state immediately.
func (s *UrlSync) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return
	}
	encoded, err := Encode(s.pending)
	s.pending = nil
	if err != nil {
		log.Printf("Url sync kept %q, state not encodable: %v", s.current, err)
		return
	}
	s.current = encoded
	s.write(encoded)
}

// Stop drops any pending write.
func (s *UrlSync) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = nil
}

// Current returns the last value written.
func (s *UrlSync) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}
