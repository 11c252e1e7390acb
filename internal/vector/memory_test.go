// File path: internal/vector/memory_test.go
package vector

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/helpmate-bot/helpmate/internal/kb"
)

func unit(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1
	return v
}

func TestMemoryStoreSearchOrdersByCosine(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	chunks := []kb.Chunk{
		{ID: "a", Text: "про оплату"},
		{ID: "b", Text: "про доставку"},
		{ID: "c", Text: "про возврат"},
	}
	embeddings := [][]float32{
		{1, 0, 0, 0},
		{0.9, 0.1, 0, 0},
		{0, 0, 1, 0},
	}
	if err := store.Upsert(ctx, chunks, embeddings); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Chunk.ID != "a" || matches[1].Chunk.ID != "b" {
		t.Fatalf("wrong order: %s, %s", matches[0].Chunk.ID, matches[1].Chunk.ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %.3f, %.3f", matches[0].Score, matches[1].Score)
	}
}

func TestMemoryStoreRejectsMixedDimensions(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore("")
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	if err := store.EnsureSchema(ctx, 4); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	err = store.Upsert(ctx, []kb.Chunk{{ID: "a", Text: "x"}}, [][]float32{{1, 0}})
	if err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
	if err := store.EnsureSchema(ctx, 8); err == nil {
		t.Fatalf("expected schema dimension conflict error")
	}
}

func TestMemoryStorePersistsJSONL(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	store, err := NewMemoryStore(path)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	chunks := []kb.Chunk{
		{ID: "a", Text: "оплата картой", Title: "Оплата"},
		{ID: "b", Text: "доставка курьером", Title: "Доставка"},
	}
	if err := store.Upsert(ctx, chunks, [][]float32{unit(4, 0), unit(4, 1)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	reopened, err := NewMemoryStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	matches, err := reopened.Search(ctx, unit(4, 1), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.ID != "b" {
		t.Fatalf("expected chunk b from reopened store, got %+v", matches)
	}
	if matches[0].Chunk.Title != "Доставка" {
		t.Fatalf("chunk metadata lost on reload: %+v", matches[0].Chunk)
	}
}

func TestMemoryStoreUpsertReplacesById(t *testing.T) {
	ctx := context.Background()
	store, _ := NewMemoryStore("")
	if err := store.Upsert(ctx, []kb.Chunk{{ID: "a", Text: "старый текст"}}, [][]float32{unit(4, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, []kb.Chunk{{ID: "a", Text: "новый текст"}}, [][]float32{unit(4, 0)}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	matches, err := store.Search(ctx, unit(4, 0), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Chunk.Text != "новый текст" {
		t.Fatalf("expected single replaced chunk, got %+v", matches)
	}
}
