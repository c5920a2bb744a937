package search

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/stenmark/stone-finder/pkg/types"
)

var totalItems = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "stonefinder_items_total",
	Help: "The total number of stones in the search index",
})

// FreeTextItemHandler indexes stone titles and attribute words for free
// text queries. The first term of each item feeds the suggestion trie.
type FreeTextItemHandler struct {
	mu           sync.RWMutex
	tokenizer    *Tokenizer
	Trie         *Trie
	TokenMap     map[Token]*roaring.Bitmap
	WordMappings map[Token]Token
	All          *types.ItemList
}

type FreeTextItemHandlerOptions struct {
	Tokenizer    *Tokenizer
	WordMappings map[Token]Token
}

func DefaultFreeTextHandlerOptions() FreeTextItemHandlerOptions {
	return FreeTextItemHandlerOptions{
		Tokenizer: &Tokenizer{MaxTokens: 128},
	}
}

func NewFreeTextItemHandler(opts FreeTextItemHandlerOptions) *FreeTextItemHandler {
	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tokenizer = &Tokenizer{MaxTokens: 128}
	}
	mappings := opts.WordMappings
	if mappings == nil {
		mappings = make(map[Token]Token)
	}
	return &FreeTextItemHandler{
		tokenizer:    tokenizer,
		Trie:         NewTrie(),
		TokenMap:     make(map[Token]*roaring.Bitmap),
		WordMappings: mappings,
		All:          types.NewItemList(),
	}
}

func (h *FreeTextItemHandler) HandleItem(item types.Item) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := item.GetId()
	exists := h.All.Contains(id)
	if item.IsDeleted() {
		if exists {
			h.removeDocument(id)
			h.All.RemoveId(id)
		}
	} else {
		if exists {
			h.removeDocument(id)
		} else {
			h.All.AddId(id)
		}
		h.CreateDocumentUnsafe(id, item.GetTerms()...)
	}
	totalItems.Set(float64(h.All.Len()))
	return nil
}

func (h *FreeTextItemHandler) HandleItems(items []types.Item) error {
	for _, item := range items {
		if err := h.HandleItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (h *FreeTextItemHandler) DeleteItem(id types.ItemId) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.All.Contains(id) {
		h.removeDocument(id)
		h.All.RemoveId(id)
	}
	totalItems.Set(float64(h.All.Len()))
	return nil
}

// removeDocument unlinks an id from every token. There is no per-document
// token list, the scan over TokenMap is the price of the simpler index.
func (h *FreeTextItemHandler) removeDocument(itemId types.ItemId) {
	id := uint32(itemId)
	tokensToDelete := make([]Token, 0)
	for token, ids := range h.TokenMap {
		if ids.Contains(id) {
			ids.Remove(id)
			h.Trie.Remove(token, id)
			if ids.IsEmpty() {
				tokensToDelete = append(tokensToDelete, token)
			}
		}
	}
	for _, token := range tokensToDelete {
		delete(h.TokenMap, token)
	}
}

// CreateDocumentUnsafe indexes the given terms for an id. The caller must
// hold the write lock.
func (h *FreeTextItemHandler) CreateDocumentUnsafe(id types.ItemId, text ...string) {
	for j, property := range text {
		var prev Token
		var hasPrev bool
		h.tokenizer.Tokenize(property, func(token Token, original string, _ int, last bool) bool {
			if j == 0 {
				h.Trie.Insert(token, original, uint32(id))
				if hasPrev {
					h.Trie.AddTransition(prev, token)
				}
				prev = token
				hasPrev = true
			}
			l, ok := h.TokenMap[token]
			if !ok {
				l = roaring.New()
				h.TokenMap[token] = l
			}
			l.Add(uint32(id))
			return true
		})
	}
}

// MatchQuery feeds the query constraint into the merger. An empty query is
// no restriction, "*" matches everything indexed.
func (h *FreeTextItemHandler) MatchQuery(query string, qm *types.QueryMerger) {
	if query == "" {
		return
	}
	if query == "*" {
		qm.Add(func() *types.ItemList {
			h.mu.RLock()
			defer h.mu.RUnlock()
			return h.All.Clone()
		})
	} else {
		qm.Add(func() *types.ItemList {
			return h.Search(query)
		})
	}
}

// Search intersects the posting lists of all query tokens. Tokens without
// an exact hit fall back to prefix completions, then to fuzzy matches.
func (h *FreeTextItemHandler) Search(query string) *types.ItemList {
	res := roaring.New()
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.tokenizer.Tokenize(query, func(token Token, original string, count int, last bool) bool {
		ids := h.lookup(token)
		if ids == nil {
			candidates := roaring.New()
			for _, match := range h.Trie.FindMatches(token) {
				candidates.Or(match.Items)
			}
			if candidates.IsEmpty() {
				for _, fuzzy := range h.getBestFuzzyMatch(token, 3) {
					if fuzzyIds, ok := h.TokenMap[fuzzy]; ok {
						candidates.Or(fuzzyIds)
					}
				}
			}
			ids = candidates
		}
		if count == 0 {
			res.Or(ids)
		} else {
			res.And(ids)
		}
		return !res.IsEmpty()
	})

	return types.FromBitmap(res)
}

func (h *FreeTextItemHandler) lookup(token Token) *roaring.Bitmap {
	if ids, ok := h.TokenMap[token]; ok && !ids.IsEmpty() {
		return ids
	}
	if mapped, ok := h.WordMappings[token]; ok {
		if ids, ok := h.TokenMap[mapped]; ok && !ids.IsEmpty() {
			return ids
		}
	}
	return nil
}

type tokenScore struct {
	token Token
	score float64
}

func absDiffInt(a int, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// getBestFuzzyMatch scores every known token by shared characters against
// token and returns up to max candidates that score above zero.
func (h *FreeTextItemHandler) getBestFuzzyMatch(token Token, max int) []Token {
	matching := make([]tokenScore, max)
	for j := range max {
		matching[j] = tokenScore{score: -99999999.0, token: token}
	}
	tl := len(token)

	score := 0.0
	for candidate := range h.TokenMap {
		cl := len(candidate)
		if cl < tl {
			continue
		}
		score = 0.0
		found := false
		for _, chr := range token {
			found = false
			for _, cchr := range candidate {
				if chr == cchr {
					score += 4.0
					found = true
					break
				}
			}
			if !found {
				score -= float64(tl)
			}
		}
		score -= float64(absDiffInt(cl, tl))
		for j := range max {
			if matching[j].score < score {
				matching[j].score = score
				matching[j].token = candidate
				break
			}
		}
	}
	ret := make([]Token, 0, max)
	for j := range max {
		if matching[j].score < 0 {
			break
		}
		ret = append(ret, matching[j].token)
	}
	return ret
}

// Suggest completes the last word of query, using the word before it to
// rank candidates.
func (h *FreeTextItemHandler) Suggest(query string) []Match {
	var words []string
	SplitWords(query, func(word string, count int, last bool) bool {
		words = append(words, word)
		return true
	})
	if len(words) == 0 {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	prefix := NormalizeWord(words[len(words)-1])
	if len(prefix) == 0 {
		return nil
	}
	if len(words) > 1 {
		if prev := NormalizeWord(words[len(words)-2]); len(prev) > 0 {
			return h.Trie.FindMatchesWithPrev(prefix, prev)
		}
	}
	return h.Trie.FindMatches(prefix)
}
