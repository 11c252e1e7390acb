// File path: cmd/kbindex/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/embed"
	"github.com/helpmate-bot/helpmate/internal/kb"
	"github.com/helpmate-bot/helpmate/internal/vector"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("kbindex: .env file not loaded", "error", err)
	}

	kbDir := flag.String("kb-dir", filepath.Join("data", "kb"), "directory with knowledge base markdown files")
	vectorPath := flag.String("vector-store", filepath.Join("data", "chunks.jsonl"), "path to the jsonl chunk store (used without postgres)")
	postgresDSN := flag.String("postgres-dsn", strings.TrimSpace(os.Getenv("DATABASE_URL")), "postgres dsn for the pgvector chunk store")
	chunkSize := flag.Int("chunk-size", 1200, "chunk window size in characters")
	chunkOverlap := flag.Int("chunk-overlap", 200, "overlap between adjacent chunks")
	useStub := flag.Bool("stub-embedder", false, "use the deterministic embedder instead of OpenAI")
	flag.Parse()

	ctx := context.Background()

	docs, err := kb.LoadDir(*kbDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load kb:", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "no documents found in", *kbDir)
		os.Exit(1)
	}

	var embedder embed.Embedder
	if *useStub {
		embedder = embed.NewStubEmbedder(64)
	} else {
		apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "OPENAI_API_KEY required (or pass -stub-embedder)")
			os.Exit(1)
		}
		embedder = embed.NewOpenAIEmbedder(apiKey, "")
	}

	var store vector.Store
	if strings.TrimSpace(*postgresDSN) != "" {
		pool, err := vector.NewPostgresPool(ctx, *postgresDSN)
		if err != nil {
			fmt.Fprintln(os.Stderr, "postgres:", err)
			os.Exit(1)
		}
		defer pool.Close()
		store = vector.NewPostgresStore(pool)
	} else {
		store, err = vector.NewMemoryStore(*vectorPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "vector store:", err)
			os.Exit(1)
		}
	}

	if err := store.EnsureSchema(ctx, embedder.Dimension()); err != nil {
		fmt.Fprintln(os.Stderr, "schema:", err)
		os.Exit(1)
	}

	total := 0
	for _, doc := range docs {
		chunks := kb.SplitChunks(doc.Content, kb.ChunkOptions{
			Size:    *chunkSize,
			Overlap: *chunkOverlap,
			Title:   doc.Title,
			Tags:    doc.Tags,
		})
		if len(chunks) == 0 {
			continue
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}
		embeddings, err := embedder.Embed(ctx, texts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "embed:", err)
			os.Exit(1)
		}
		if err := store.Upsert(ctx, chunks, embeddings); err != nil {
			fmt.Fprintln(os.Stderr, "upsert:", err)
			os.Exit(1)
		}
		logger.Info("kbindex: document indexed", "doc", doc.Slug, "chunks", len(chunks))
		total += len(chunks)
	}
	fmt.Printf("indexed %d documents, %d chunks\n", len(docs), total)
}
