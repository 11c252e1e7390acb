// File path: internal/faq/fuzzy_test.go
package faq

import (
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, pairsJSON string) *Store {
	t.Helper()
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "faq.json")
	if err := os.WriteFile(jsonPath, []byte(pairsJSON), 0o644); err != nil {
		t.Fatalf("write faq.json: %v", err)
	}
	return NewStore(jsonPath, "")
}

func TestFindFuzzyMatchesParaphrase(t *testing.T) {
	store := testStore(t, `[
  {"id": "greeting", "q": "Как тебя зовут?", "a": "Я бот поддержки."},
  {"id": "skills", "q": "Что ты умеешь?", "a": "Отвечаю на вопросы."}
]`)
	matcher := NewMatcher(store, 0)
	hit, ok := matcher.FindFuzzy("что ты умеешь делать")
	if !ok {
		t.Fatalf("expected fuzzy hit")
	}
	if hit.Pair.ID != "skills" {
		t.Fatalf("expected skills, got %s", hit.Pair.ID)
	}
	if hit.Score > DefaultFuzzyThreshold {
		t.Fatalf("score %.3f above threshold", hit.Score)
	}
}

func TestFindFuzzyIdenticalScoresZero(t *testing.T) {
	store := testStore(t, `[{"id": "greeting", "q": "Как тебя зовут?", "a": "Я бот."}]`)
	matcher := NewMatcher(store, 0)
	hit, ok := matcher.FindFuzzy("зовут тебя как")
	if !ok {
		t.Fatalf("expected hit for reordered tokens")
	}
	if hit.Score != 0 {
		t.Fatalf("expected score 0, got %.3f", hit.Score)
	}
}

func TestFindFuzzyRejectsUnrelated(t *testing.T) {
	store := testStore(t, `[
  {"id": "greeting", "q": "Как тебя зовут?", "a": "Я бот."},
  {"id": "skills", "q": "Что ты умеешь?", "a": "Отвечаю на вопросы."}
]`)
	matcher := NewMatcher(store, 0)
	if hit, ok := matcher.FindFuzzy("прогноз погоды завтра"); ok {
		t.Fatalf("unexpected hit %+v", hit)
	}
}

func TestFindFuzzyAcceptsScoreAtThreshold(t *testing.T) {
	store := testStore(t, `[{"id": "ship", "q": "Доставка", "a": "Курьером."}]`)
	matcher := NewMatcher(store, 0)
	// One matched token (0) and one fully unmatched token (1) average to
	// exactly the threshold.
	hit, ok := matcher.FindFuzzy("доставка qqq")
	if !ok {
		t.Fatalf("score at the threshold must be accepted")
	}
	if hit.Score != DefaultFuzzyThreshold {
		t.Fatalf("expected score %.2f, got %.4f", DefaultFuzzyThreshold, hit.Score)
	}
}

func TestFindFuzzyRejectsJustAboveThreshold(t *testing.T) {
	store := testStore(t, `[{"id": "ship", "q": "Доставка", "a": "Курьером."}]`)
	matcher := NewMatcher(store, 0)
	// "доставкб" is one edit from the question (1/8) and "qqq" matches
	// nothing, so the score lands at 0.5625.
	if hit, ok := matcher.FindFuzzy("доставкб qqq"); ok {
		t.Fatalf("score above threshold must be rejected, got %+v", hit)
	}
}

func TestFindFuzzyTieKeepsFirstLoaded(t *testing.T) {
	store := testStore(t, `[
  {"id": "card", "q": "Оплата картой", "a": "Картой можно."},
  {"id": "invoice", "q": "Оплата счетом", "a": "Счетом тоже."}
]`)
	matcher := NewMatcher(store, 0)
	hit, ok := matcher.FindFuzzy("оплата")
	if !ok {
		t.Fatalf("expected hit")
	}
	if hit.Pair.ID != "card" {
		t.Fatalf("tie should keep first-loaded pair, got %s", hit.Pair.ID)
	}
}

func TestFindFuzzyEmptyQuery(t *testing.T) {
	store := testStore(t, `[{"id": "greeting", "q": "Как тебя зовут?", "a": "Я бот."}]`)
	matcher := NewMatcher(store, 0)
	if _, ok := matcher.FindFuzzy("?!"); ok {
		t.Fatalf("expected no hit for token-free query")
	}
}
