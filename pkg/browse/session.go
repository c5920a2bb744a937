package browse

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stenmark/stone-finder/pkg/types"
)

const DefaultPageSize = 24

// Phase is the externally visible state of a browse session.
type Phase string

const (
	Idle       Phase = "idle"
	Fetching   Phase = "fetching"
	Refetching Phase = "refetching"
)

// Source is the store side of a browse session, answered by the item index.
type Source interface {
	FetchPage(ctx context.Context, f *types.Filters, page int, pageSize int, sort string) (*types.Page, error)
}

// State is a snapshot of one session, safe to render after the session
// moves on.
type State struct {
	Id        string         `json:"id"`
	Phase     Phase          `json:"phase"`
	Filters   *types.Filters `json:"filters"`
	Sort      string         `json:"sort,omitempty"`
	Items     []types.Item   `json:"items"`
	Page      int            `json:"page"`
	TotalHits int            `json:"totalHits"`
	HasMore   bool           `json:"hasMore"`
	Error     string         `json:"error,omitempty"`
}

// Session accumulates pages for one storefront list view. Filter and sort
// changes restart the accumulation at page one, load-more appends. At most
// one store fetch is outstanding per session, concurrent load-more calls
// are dropped rather than queued, and a fetch that a filter change
// overtook is discarded wholesale.
type Session struct {
	Id string

	src      Source
	pageSize int

	// fetchMu is the in-flight lock. Load-more only tries it, filter and
	// sort changes wait on it so their page-one fetch runs after the
	// superseded one resolves.
	fetchMu sync.Mutex

	stateMu  sync.Mutex
	phase    Phase
	filters  *types.Filters
	sort     string
	items    []types.Item
	seen     map[types.ItemId]struct{}
	page     int
	total    int
	hasMore  bool
	err      error
	gen      uint64
	lastUsed time.Time
}

func NewSession(src Source, pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Session{
		Id:       uuid.New().String(),
		src:      src,
		pageSize: pageSize,
		phase:    Idle,
		filters:  types.NewFilters(),
		seen:     map[types.ItemId]struct{}{},
		hasMore:  true,
		lastUsed: time.Now(),
	}
}

// LoadMore fetches the next page and appends it. It reports false without
// fetching when a fetch is already in flight, a filter change is pending
// or the store has no further pages.
func (s *Session) LoadMore(ctx context.Context) (bool, error) {
	if !s.fetchMu.TryLock() {
		return false, nil
	}
	defer s.fetchMu.Unlock()

	s.stateMu.Lock()
	if s.phase != Idle || !s.hasMore {
		s.stateMu.Unlock()
		return false, nil
	}
	s.phase = Fetching
	next := s.page + 1
	s.stateMu.Unlock()

	return true, s.fetch(ctx, next)
}

// SetFilters replaces the filter state. Structurally equal filters are a
// no-op. A real change clears the accumulated items and total before the
// page-one fetch resolves, so a stale view is never shown merged with the
// new one.
func (s *Session) SetFilters(ctx context.Context, f *types.Filters) (bool, error) {
	if f == nil {
		f = types.NewFilters()
	}
	if err := f.Validate(); err != nil {
		return false, err
	}
	s.stateMu.Lock()
	if f.Equal(s.filters) {
		s.stateMu.Unlock()
		return false, nil
	}
	s.resetLocked()
	s.filters = f
	s.stateMu.Unlock()

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	return true, s.fetch(ctx, 1)
}

// SetSort behaves as a filter change: the accumulation restarts at page one.
func (s *Session) SetSort(ctx context.Context, sort string) (bool, error) {
	s.stateMu.Lock()
	if sort == s.sort {
		s.stateMu.Unlock()
		return false, nil
	}
	s.resetLocked()
	s.sort = sort
	s.stateMu.Unlock()

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()
	return true, s.fetch(ctx, 1)
}

// resetLocked starts a new generation. Results of fetches captured under
// an older generation no longer apply. Callers hold stateMu.
func (s *Session) resetLocked() {
	s.gen++
	s.items = nil
	s.seen = map[types.ItemId]struct{}{}
	s.page = 0
	s.total = 0
	s.hasMore = true
	s.err = nil
	s.phase = Refetching
}

func (s *Session) fetch(ctx context.Context, page int) error {
	s.stateMu.Lock()
	gen := s.gen
	f := s.filters
	sort := s.sort
	s.stateMu.Unlock()

	res, err := s.src.FetchPage(ctx, f, page, s.pageSize, sort)

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if gen != s.gen {
		// A filter change overtook this fetch, its view no longer exists.
		return nil
	}
	s.phase = Idle
	if err != nil {
		// Accumulated items and the page cursor stay, a retry resumes
		// from the same page.
		s.err = err
		return err
	}
	s.err = nil
	if page == 1 {
		s.items = nil
		s.seen = make(map[types.ItemId]struct{}, len(res.Items))
		s.total = res.TotalHits
	}
	for _, item := range res.Items {
		id := item.GetId()
		if _, dup := s.seen[id]; dup {
			continue
		}
		s.seen[id] = struct{}{}
		s.items = append(s.items, item)
	}
	s.page = page
	s.hasMore = res.More
	return nil
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	items := make([]types.Item, len(s.items))
	copy(items, s.items)
	st := State{
		Id:        s.Id,
		Phase:     s.phase,
		Filters:   s.filters,
		Sort:      s.sort,
		Items:     items,
		Page:      s.page,
		TotalHits: s.total,
		HasMore:   s.hasMore,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}
	return st
}

func (s *Session) touch(now time.Time) {
	s.stateMu.Lock()
	s.lastUsed = now
	s.stateMu.Unlock()
}

func (s *Session) lastTouched() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastUsed
}
