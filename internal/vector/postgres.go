// File path: internal/vector/postgres.go
package vector

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
	"github.com/helpmate-bot/helpmate/internal/kb"
)

// PostgresStore keeps chunks and their embeddings in a pgvector-enabled
// Postgres instance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgresPool dials Postgres with pgx defaults.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the chunk table for the given embedding dimension.
// The dimension is baked into the column type, so mixing dimensions in one
// deployment is a schema error by construction.
func (s *PostgresStore) EnsureSchema(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS support_chunks (
			id TEXT PRIMARY KEY,
			title TEXT,
			heading TEXT,
			content TEXT NOT NULL,
			start_offset INT NOT NULL,
			end_offset INT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_support_chunks_embedding ON support_chunks USING ivfflat (embedding vector_l2_ops)",
		"CREATE INDEX IF NOT EXISTS idx_support_chunks_title ON support_chunks(title)",
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}
	return nil
}

// Upsert writes chunks with their embeddings, replacing rows with the same id.
func (s *PostgresStore) Upsert(ctx context.Context, chunks []kb.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	for i, chunk := range chunks {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO support_chunks (id, title, heading, content, start_offset, end_offset, embedding, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				heading = EXCLUDED.heading,
				content = EXCLUDED.content,
				start_offset = EXCLUDED.start_offset,
				end_offset = EXCLUDED.end_offset,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`, chunk.ID, chunk.Title, chunk.Heading, chunk.Text, chunk.Start, chunk.End, pgvector.NewVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("upsert chunk %s: %w", chunk.ID, err)
		}
	}
	common.Logger().Info("vector: chunks upserted", "count", len(chunks))
	return nil
}

// Search orders chunks by L2 distance to the query embedding and converts
// distance to a similarity score 1/(1+distance).
func (s *PostgresStore) Search(ctx context.Context, embedding []float32, limit int) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}
	started := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, heading, content, start_offset, end_offset,
			(embedding <-> $1::vector) AS distance
		FROM support_chunks
		ORDER BY embedding <-> $1::vector
		LIMIT $2
	`, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()
	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		var distance float64
		if err := rows.Scan(&m.Chunk.ID, &m.Chunk.Title, &m.Chunk.Heading, &m.Chunk.Text,
			&m.Chunk.Start, &m.Chunk.End, &distance); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		m.Score = 1 / (1 + distance)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	telemetry.RecordVectorSearch(time.Since(started))
	return matches, nil
}

var _ Store = (*PostgresStore)(nil)
