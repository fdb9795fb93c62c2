package search

import (
	"strings"
	"unicode/utf8"
)

const (
	// SnippetLead is how many characters of context precede the match.
	SnippetLead = 60
	// SnippetLength bounds a search snippet.
	SnippetLength = 160
	// PreviewLength bounds a recent-feed snippet.
	PreviewLength = 140
)

// Snippet returns up to SnippetLength characters of text starting
// SnippetLead characters before the first verbatim occurrence of q, clamped
// to the start of text. When q does not occur the snippet starts at the
// beginning. Offsets count runes.
func Snippet(text, q string) string {
	k := 0
	if i := strings.Index(text, q); q != "" && i >= 0 {
		k = utf8.RuneCountInString(text[:i])
	}
	return window(text, k)
}

// FullTextSnippet is Snippet for natural-language hits, which stores match
// case-insensitively: without a verbatim occurrence it anchors on the first
// case-folded one.
func FullTextSnippet(text, q string) string {
	if q == "" || strings.Contains(text, q) {
		return Snippet(text, q)
	}
	k, ok := foldIndex([]rune(text), []rune(q))
	if !ok {
		k = 0
	}
	return window(text, k)
}

// foldIndex is the rune offset of the first case-insensitive occurrence of q.
func foldIndex(text, q []rune) (int, bool) {
	if len(q) == 0 {
		return 0, false
	}
	for i := 0; i+len(q) <= len(text); i++ {
		if strings.EqualFold(string(text[i:i+len(q)]), string(q)) {
			return i, true
		}
	}
	return 0, false
}

func window(text string, k int) string {
	runes := []rune(text)
	start := k - SnippetLead
	if start < 0 {
		start = 0
	}
	end := start + SnippetLength
	if end > len(runes) {
		end = len(runes)
	}
	return flatten(string(runes[start:end]))
}

// Preview returns the first PreviewLength characters of text.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) > PreviewLength {
		runes = runes[:PreviewLength]
	}
	return flatten(string(runes))
}

// MatchCount is the number of non-overlapping occurrences of q in text.
// It equals (len(text) - len(text without q)) / len(q) and is advisory only.
func MatchCount(text, q string) int {
	if q == "" {
		return 0
	}
	return strings.Count(text, q)
}

func flatten(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
