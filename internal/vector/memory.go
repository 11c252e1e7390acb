// File path: internal/vector/memory.go
package vector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
	"github.com/helpmate-bot/helpmate/internal/kb"
)

// MemoryStore is an in-process chunk store with cosine-similarity search and
// optional JSONL persistence. It backs tests and deployments too small to
// warrant Postgres.
type MemoryStore struct {
	path string

	mu        sync.RWMutex
	dimension int
	records   map[string]memoryRecord
}

type memoryRecord struct {
	Chunk     kb.Chunk  `json:"chunk"`
	Embedding []float32 `json:"embedding"`
}

// NewMemoryStore creates a store; path may be empty for a purely in-memory
// store, otherwise existing records are loaded from the JSONL file.
func NewMemoryStore(path string) (*MemoryStore, error) {
	store := &MemoryStore{path: path, records: make(map[string]memoryRecord)}
	if path == "" {
		return store, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec memoryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("parse vector store line: %w", err)
		}
		store.records[rec.Chunk.ID] = rec
		if store.dimension == 0 {
			store.dimension = len(rec.Embedding)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vector store: %w", err)
	}
	common.Logger().Info("vector: memory store loaded", "path", path, "chunks", len(store.records))
	return store, nil
}

// EnsureSchema pins the store to one embedding dimension.
func (s *MemoryStore) EnsureSchema(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension != 0 && s.dimension != dimension {
		return fmt.Errorf("store already holds %d-dimensional vectors, requested %d", s.dimension, dimension)
	}
	s.dimension = dimension
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, chunks []kb.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}
	s.mu.Lock()
	for i, chunk := range chunks {
		if s.dimension != 0 && len(embeddings[i]) != s.dimension {
			s.mu.Unlock()
			return fmt.Errorf("embedding for chunk %s has dimension %d, store holds %d", chunk.ID, len(embeddings[i]), s.dimension)
		}
		if s.dimension == 0 {
			s.dimension = len(embeddings[i])
		}
		s.records[chunk.ID] = memoryRecord{Chunk: chunk, Embedding: embeddings[i]}
	}
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *MemoryStore) Search(_ context.Context, embedding []float32, limit int) ([]Match, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if limit <= 0 {
		limit = 5
	}
	started := time.Now()
	s.mu.RLock()
	matches := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if len(rec.Embedding) != len(embedding) {
			continue
		}
		matches = append(matches, Match{Chunk: rec.Chunk, Score: cosine(embedding, rec.Embedding)})
	}
	s.mu.RUnlock()
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Chunk.ID < matches[j].Chunk.ID
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	telemetry.RecordVectorSearch(time.Since(started))
	return matches, nil
}

// save rewrites the JSONL file atomically via a temp file rename.
func (s *MemoryStore) save(_ context.Context) error {
	if s.path == "" {
		return nil
	}
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	tmp := s.path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		s.mu.RUnlock()
		return fmt.Errorf("create vector store: %w", err)
	}
	writer := bufio.NewWriter(file)
	encoder := json.NewEncoder(writer)
	for _, id := range ids {
		if err := encoder.Encode(s.records[id]); err != nil {
			s.mu.RUnlock()
			file.Close()
			return fmt.Errorf("encode vector record: %w", err)
		}
	}
	s.mu.RUnlock()
	if err := writer.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("flush vector store: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("close vector store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace vector store: %w", err)
	}
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Store = (*MemoryStore)(nil)
