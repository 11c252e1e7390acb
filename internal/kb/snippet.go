// File path: internal/kb/snippet.go
package kb

import (
	"sort"
	"strings"

	"github.com/helpmate-bot/helpmate/internal/nlp"
)

// SnippetOptions controls the excerpt window around the first query-token
// occurrence.
type SnippetOptions struct {
	Before int
	After  int
}

func DefaultSnippetOptions() SnippetOptions {
	return SnippetOptions{Before: 150, After: 350}
}

// Snippet extracts a window of content around the first occurrence of any
// query token and wraps every token occurrence in ** markers. When no token
// occurs in the content the head of the document is returned unhighlighted.
func Snippet(content string, tokens []string, opts SnippetOptions) string {
	if opts.Before <= 0 && opts.After <= 0 {
		opts = DefaultSnippetOptions()
	}
	runes := []rune(content)
	lower := []rune(strings.ToLower(content))
	anchor := -1
	for _, token := range tokens {
		if pos := indexRunes(lower, []rune(token)); pos >= 0 && (anchor < 0 || pos < anchor) {
			anchor = pos
		}
	}
	if anchor < 0 {
		head := opts.Before + opts.After
		if len(runes) <= head {
			return strings.TrimSpace(content)
		}
		return strings.TrimSpace(string(runes[:head]))
	}
	start := anchor - opts.Before
	if start < 0 {
		start = 0
	}
	end := anchor + opts.After
	if end > len(runes) {
		end = len(runes)
	}
	window := string(runes[start:end])
	return strings.TrimSpace(highlight(window, tokens))
}

// highlight wraps each occurrence of each token in **, case-insensitively.
// All tokens are matched against the raw window first and overlapping matches
// keep the longest span, so markers never nest when one token occurs inside
// another.
func highlight(window string, tokens []string) string {
	runes := []rune(window)
	spans := matchSpans(runes, tokens)
	if len(spans) == 0 {
		return window
	}
	var b strings.Builder
	next := 0
	for _, sp := range spans {
		b.WriteString(string(runes[next:sp.start]))
		b.WriteString("**")
		b.WriteString(string(runes[sp.start:sp.end]))
		b.WriteString("**")
		next = sp.end
	}
	b.WriteString(string(runes[next:]))
	return b.String()
}

type matchSpan struct {
	start, end int
}

// matchSpans collects every token occurrence, orders them longest-first per
// position, and drops spans overlapping an already kept one.
func matchSpans(runes []rune, tokens []string) []matchSpan {
	var all []matchSpan
	for _, token := range tokens {
		tok := []rune(token)
		if len(tok) == 0 {
			continue
		}
		for i := 0; i+len(tok) <= len(runes); i++ {
			if matchesAt(runes, i, tok) {
				all = append(all, matchSpan{start: i, end: i + len(tok)})
			}
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})
	kept := make([]matchSpan, 0, len(all))
	covered := 0
	for _, sp := range all {
		if sp.start < covered {
			continue
		}
		kept = append(kept, sp)
		covered = sp.end
	}
	return kept
}

func matchesAt(runes []rune, pos int, token []rune) bool {
	if pos+len(token) > len(runes) {
		return false
	}
	for k, r := range token {
		if nlp.FoldRune(lowerRune(runes[pos+k])) != r {
			return false
		}
	}
	return true
}

func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		found := true
		for k := range needle {
			if nlp.FoldRune(haystack[i+k]) != needle[k] {
				found = false
				break
			}
		}
		if found {
			return i
		}
	}
	return -1
}

func lowerRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	if r >= 'А' && r <= 'Я' {
		return r + ('а' - 'А')
	}
	if r == 'Ё' {
		return 'ё'
	}
	return r
}
