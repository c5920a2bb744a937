package search

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Match is one completion candidate for a prefix.
type Match struct {
	Token Token
	Word  string
	Items *roaring.Bitmap
}

type node struct {
	children map[rune]*node
	word     string
	items    *roaring.Bitmap
}

func newNode() *node {
	return &node{
		children: make(map[rune]*node),
	}
}

// Trie indexes tokens by prefix for suggestions, keeping the original
// casing and the ids carrying each token. Transition counts between
// consecutive tokens rank suggestions by what usually follows the
// previous word.
type Trie struct {
	root        *node
	transitions map[Token]map[Token]int
}

func NewTrie() *Trie {
	return &Trie{
		root:        newNode(),
		transitions: make(map[Token]map[Token]int),
	}
}

func (t *Trie) Insert(token Token, original string, id uint32) {
	n := t.root
	for _, r := range token {
		child, ok := n.children[r]
		if !ok {
			child = newNode()
			n.children[r] = child
		}
		n = child
	}
	if n.items == nil {
		n.items = roaring.New()
	}
	n.word = original
	n.items.Add(id)
}

// Remove unlinks an id from a token. Empty leaves stay in place, they are
// skipped when collecting matches.
func (t *Trie) Remove(token Token, id uint32) {
	n := t.find(token)
	if n == nil || n.items == nil {
		return
	}
	n.items.Remove(id)
}

func (t *Trie) find(token Token) *node {
	n := t.root
	for _, r := range token {
		child, ok := n.children[r]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func (t *Trie) Search(token Token) bool {
	n := t.find(token)
	return n != nil && n.items != nil && !n.items.IsEmpty()
}

// AddTransition records that next followed prev in an indexed text.
func (t *Trie) AddTransition(prev Token, next Token) {
	m, ok := t.transitions[prev]
	if !ok {
		m = make(map[Token]int)
		t.transitions[prev] = m
	}
	m[next]++
}

// FindMatches returns every completion of prefix, most popular first.
func (t *Trie) FindMatches(prefix Token) []Match {
	n := t.find(prefix)
	if n == nil {
		return nil
	}
	matches := collectMatches(n, prefix, nil)
	slices.SortFunc(matches, func(a, b Match) int {
		return int(b.Items.GetCardinality()) - int(a.Items.GetCardinality())
	})
	return matches
}

// FindMatchesWithPrev returns the completions of prefix ranked by how often
// they follow prev, falling back to popularity when prev says nothing.
func (t *Trie) FindMatchesWithPrev(prefix Token, prev Token) []Match {
	n := t.find(prefix)
	if n == nil {
		return nil
	}
	matches := collectMatches(n, prefix, nil)
	following := t.transitions[prev]
	slices.SortFunc(matches, func(a, b Match) int {
		if c := following[b.Token] - following[a.Token]; c != 0 {
			return c
		}
		return int(b.Items.GetCardinality()) - int(a.Items.GetCardinality())
	})
	return matches
}

func collectMatches(n *node, prefix Token, matches []Match) []Match {
	if n.items != nil && !n.items.IsEmpty() {
		matches = append(matches, Match{
			Token: prefix,
			Word:  n.word,
			Items: n.items,
		})
	}
	for r, child := range n.children {
		matches = collectMatches(child, prefix+Token(r), matches)
	}
	return matches
}
