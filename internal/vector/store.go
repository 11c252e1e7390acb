// File path: internal/vector/store.go
package vector

import (
	"context"

	"github.com/helpmate-bot/helpmate/internal/kb"
)

// Match is one retrieved chunk with its similarity score in (0,1], higher
// is closer.
type Match struct {
	Chunk kb.Chunk
	Score float64
}

// Store persists embedded chunks and answers nearest-neighbor queries.
type Store interface {
	EnsureSchema(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []kb.Chunk, embeddings [][]float32) error
	Search(ctx context.Context, embedding []float32, limit int) ([]Match, error)
}
