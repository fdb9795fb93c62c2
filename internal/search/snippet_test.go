package search

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSnippetWindow(t *testing.T) {
	text := strings.Repeat("a", 100) + "NEEDLE" + strings.Repeat("b", 300)
	s := Snippet(text, "NEEDLE")
	assert.Equal(t, SnippetLength, utf8.RuneCountInString(s))
	assert.Equal(t, SnippetLead, strings.Index(s, "NEEDLE"))
}

func TestSnippetClampsAtStart(t *testing.T) {
	text := "short prefix NEEDLE " + strings.Repeat("c", 300)
	s := Snippet(text, "NEEDLE")
	assert.True(t, strings.HasPrefix(s, "short prefix"))
	assert.Equal(t, SnippetLength, len(s))
}

func TestSnippetShortTextAndMissingMatch(t *testing.T) {
	assert.Equal(t, "tiny", Snippet("tiny", "tiny"))
	assert.Equal(t, "stemmed invoices", Snippet("stemmed invoices", "invoice s"))
	assert.Equal(t, "", Snippet("", "x"))
}

func TestSnippetNoNewlines(t *testing.T) {
	s := Snippet("line one\nline two\r\nNEEDLE\rthree", "NEEDLE")
	assert.NotContains(t, s, "\n")
	assert.NotContains(t, s, "\r")
	assert.Equal(t, "line one line two NEEDLE three", s)
}

func TestSnippetCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 100) + "NEEDLE" + strings.Repeat("ü", 300)
	s := Snippet(text, "NEEDLE")
	assert.True(t, utf8.ValidString(s))
	assert.Equal(t, SnippetLength, utf8.RuneCountInString(s))
	assert.True(t, strings.HasPrefix(s, strings.Repeat("é", 60)+"NEEDLE"))
}

func TestMatchCount(t *testing.T) {
	assert.Equal(t, 0, MatchCount("abc", ""))
	assert.Equal(t, 0, MatchCount("abc", "x"))
	assert.Equal(t, 3, MatchCount("ab ab ab", "ab"))
	text, q := "the cat sat on the mat with the hat", "the"
	want := (len(text) - len(strings.ReplaceAll(text, q, ""))) / len(q)
	assert.Equal(t, want, MatchCount(text, q))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "a b", Preview("a\nb"))
	assert.Equal(t, PreviewLength, utf8.RuneCountInString(Preview(strings.Repeat("ж", 500))))
}

func TestFullTextSnippetAnchorsOnFoldedMatch(t *testing.T) {
	text := strings.Repeat("lorem ipsum ", 30) + "Invoice total due"

	s := FullTextSnippet(text, "invoice")
	assert.Contains(t, s, "Invoice total due")
	assert.Equal(t, SnippetLead, strings.Index(s, "Invoice"))

	// substring hits are verbatim, so the plain snippet stays case-sensitive
	assert.NotContains(t, Snippet(text, "invoice"), "Invoice")
}

func TestFullTextSnippetPrefersVerbatimMatch(t *testing.T) {
	text := "INVOICE header " + strings.Repeat("x", 200) + " invoice body"
	s := FullTextSnippet(text, "invoice")
	assert.Contains(t, s, "invoice body")
	assert.Equal(t, "stemmed forms", FullTextSnippet("stemmed forms", "nothing"))
}
