package search

import (
	"strings"
	"unicode"
)

type Token string

// Tokenizer splits free text into normalized tokens. Splits lists compound
// words that emit their parts as extra tokens, so "rosecut" also indexes
// under "rose" and "cut".
type Tokenizer struct {
	MaxTokens int
	Splits    []string
}

var commonIssues = map[rune]rune{
	'ö': 'o',
	'ä': 'a',
	'å': 'a',
	'é': 'e',
	'è': 'e',
	'ê': 'e',
	'ë': 'e',
	'ï': 'i',
	'î': 'i',
	'ô': 'o',
	'ü': 'u',
	'û': 'u',
	'ÿ': 'y',
	'ç': 'c',
	'ñ': 'n',
	'ß': 's',
	'æ': 'a',
	'ø': 'o',
	'Ø': 'o',
}

// NormalizeWord lowercases, folds common diacritics and strips everything
// that is not a letter or digit.
func NormalizeWord(text string) Token {
	ret := make([]rune, 0, len(text))
	var l rune
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			l = unicode.ToLower(r)
			if replacement, ok := commonIssues[l]; ok {
				l = replacement
			}
			ret = append(ret, l)
		}
	}
	return Token(ret)
}

func isDelimiter(chr rune) bool {
	switch chr {
	case ' ', '\n', '\t', ',', ':', '.', '!', '?', ';', '(', ')', '[', ']', '{', '}', '"', '\'', '/':
		return true
	}
	return false
}

// SplitWords walks the raw words of text, calling onWord until it returns
// false.
func SplitWords(text string, onWord func(word string, count int, last bool) bool) {
	count := 0
	lastSplit := 0

	for idx, chr := range text {
		if isDelimiter(chr) {
			if idx > lastSplit {
				if !onWord(text[lastSplit:idx], count, false) {
					return
				}
				count++
			}
			lastSplit = idx + 1
		}
	}
	if lastSplit < len(text) {
		onWord(text[lastSplit:], count, true)
	}
}

// Tokenize emits each distinct normalized token of text. Compound words
// listed in Splits additionally emit their split part.
func (t *Tokenizer) Tokenize(text string, onToken func(token Token, original string, count int, last bool) bool) {
	tokenNumber := 0
	found := map[Token]struct{}{}

	emit := func(word string, last bool) bool {
		normalized := NormalizeWord(word)
		if len(normalized) == 0 {
			return true
		}
		if _, hasToken := found[normalized]; hasToken {
			return true
		}
		found[normalized] = struct{}{}
		ok := onToken(normalized, word, tokenNumber, last)
		tokenNumber++
		return ok
	}

	SplitWords(text, func(word string, count int, last bool) bool {
		for _, split := range t.Splits {
			if len(split) < len(word) && strings.Contains(word, split) {
				if !emit(split, false) {
					return false
				}
			}
		}
		if !emit(word, last) {
			return false
		}
		return count < t.MaxTokens
	})
}
