// File path: internal/kb/snippet_test.go
package kb

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSnippetHighlightsAllOccurrences(t *testing.T) {
	content := "Оплата картой доступна всем. Повторная оплата проходит мгновенно."
	got := Snippet(content, []string{"оплата"}, SnippetOptions{Before: 150, After: 350})
	if strings.Count(got, "**") != 4 {
		t.Fatalf("expected both occurrences wrapped, got %q", got)
	}
	if !strings.Contains(got, "**Оплата**") || !strings.Contains(got, "**оплата**") {
		t.Fatalf("case-insensitive highlight missing: %q", got)
	}
}

func TestSnippetWindowsAroundFirstMatch(t *testing.T) {
	content := strings.Repeat("а", 500) + " доставка " + strings.Repeat("б", 500)
	got := Snippet(content, []string{"доставка"}, SnippetOptions{Before: 20, After: 40})
	if !strings.Contains(got, "**доставка**") {
		t.Fatalf("match not highlighted: %q", got)
	}
	if utf8.RuneCountInString(got) > 20+40+4 {
		t.Fatalf("window too wide: %d runes", utf8.RuneCountInString(got))
	}
}

func TestSnippetNestedTokensDoNotNestMarkers(t *testing.T) {
	content := "Оплата проходит через платежный сервис."
	got := Snippet(content, []string{"оплата", "плат"}, SnippetOptions{Before: 150, After: 350})
	if !strings.Contains(got, "**Оплата**") {
		t.Fatalf("longest token must win the overlap: %q", got)
	}
	if !strings.Contains(got, "**плат**ежный") {
		t.Fatalf("standalone occurrence must still highlight: %q", got)
	}
	if strings.Count(got, "**") != 4 {
		t.Fatalf("expected exactly two highlights, got %q", got)
	}
	if !strings.Contains(content, strings.ReplaceAll(got, "**", "")) {
		t.Fatalf("unmarked snippet text must be a substring of the source: %q", got)
	}
}

func TestSnippetFallsBackToHead(t *testing.T) {
	content := strings.Repeat("в", 600)
	got := Snippet(content, []string{"оплата"}, SnippetOptions{Before: 100, After: 200})
	if strings.Contains(got, "**") {
		t.Fatalf("fallback snippet must not highlight: %q", got)
	}
	if utf8.RuneCountInString(got) != 300 {
		t.Fatalf("expected 300-rune head, got %d", utf8.RuneCountInString(got))
	}
}

func TestSnippetClipsAtContentStart(t *testing.T) {
	content := "Доставка занимает три дня."
	got := Snippet(content, []string{"доставка"}, SnippetOptions{Before: 150, After: 350})
	if !strings.HasPrefix(got, "**Доставка**") {
		t.Fatalf("window should clip to content start: %q", got)
	}
}
