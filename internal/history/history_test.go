// File path: internal/history/history_test.go
package history

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLogRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	log, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()
	entries := []Entry{
		{Question: "Как оплатить?", Answer: "Картой.", Confidence: 0.9, Lang: "ru"},
		{Question: "Где заказ?", Answer: "Свяжитесь с оператором.", Confidence: 0.3, Escalate: true, Lang: "ru"},
	}
	for _, e := range entries {
		if err := log.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recent, err := log.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Question != "Где заказ?" {
		t.Fatalf("expected newest first, got %q", recent[0].Question)
	}
	if !recent[0].Escalate || recent[0].Confidence != 0.3 {
		t.Fatalf("entry fields lost: %+v", recent[0])
	}
}

func TestLogRecentLimit(t *testing.T) {
	ctx := context.Background()
	log, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()
	for i := 0; i < 5; i++ {
		if err := log.Record(ctx, Entry{Question: "q", Answer: "a", Lang: "ru"}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recent, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(recent))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
