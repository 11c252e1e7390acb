// File path: internal/retriever/retriever.go
package retriever

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/helpmate-bot/helpmate/internal/common"
	"github.com/helpmate-bot/helpmate/internal/common/telemetry"
	"github.com/helpmate-bot/helpmate/internal/embed"
	"github.com/helpmate-bot/helpmate/internal/vector"
)

const (
	// DefaultTopK bounds the similarity search fan-out.
	DefaultTopK = 6
	// defaultContextBudget caps the concatenated context handed to the LLM.
	defaultContextBudget = 9000
	// maxChunksPerSource keeps one document from monopolizing the context.
	maxChunksPerSource = 2
	// citationSnippetLen is the excerpt length carried per citation.
	citationSnippetLen = 200
)

// Options tunes one retrieval call. Zero values take the defaults; Diversify
// defaults to on and is disabled through NoDiversify.
type Options struct {
	TopK          int
	NoDiversify   bool
	ContextBudget int
}

// Citation points a numbered context reference back at its source chunk.
type Citation struct {
	Key      int    `json:"key"`
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}

// Result is the assembled retrieval context for one query.
type Result struct {
	ContextText string
	Citations   []Citation
	Items       []vector.Match
}

// Retriever embeds queries and assembles budgeted, diversified context from
// the chunk store.
type Retriever struct {
	embedder embed.Embedder
	store    vector.Store
}

func New(embedder embed.Embedder, store vector.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve runs embed → search → diversify → budget. Embedding and search
// errors propagate; an empty store yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (Result, error) {
	ctx, done := telemetry.StartSpan(ctx, "retriever.retrieve")
	defer done()
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	budget := opts.ContextBudget
	if budget <= 0 {
		budget = defaultContextBudget
	}
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return Result{}, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return Result{}, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}
	matches, err := r.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return Result{}, fmt.Errorf("search chunks: %w", err)
	}
	if !opts.NoDiversify {
		matches = diversify(matches)
	}
	result := assemble(matches, budget)
	common.Logger().Debug("retriever: context assembled",
		"matches", len(matches), "used", len(result.Items),
		"chars", utf8.RuneCountInString(result.ContextText),
		"dur", telemetry.SpanDuration(ctx))
	return result, nil
}

// diversify caps chunks per source title, preserving rank order.
func diversify(matches []vector.Match) []vector.Match {
	perSource := make(map[string]int)
	kept := make([]vector.Match, 0, len(matches))
	for _, m := range matches {
		source := m.Chunk.Title
		if perSource[source] >= maxChunksPerSource {
			continue
		}
		perSource[source]++
		kept = append(kept, m)
	}
	return kept
}

// assemble concatenates whole chunk texts until the next chunk would blow the
// budget, numbering a citation per included chunk. The budget counts
// characters, not bytes, so multi-byte text does not shrink it.
func assemble(matches []vector.Match, budget int) Result {
	var b strings.Builder
	var result Result
	used := 0
	for _, m := range matches {
		addition := utf8.RuneCountInString(m.Chunk.Text)
		if used > 0 {
			addition += 2
		}
		if used+addition > budget {
			break
		}
		if used > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Chunk.Text)
		used += addition
		result.Items = append(result.Items, m)
		result.Citations = append(result.Citations, Citation{
			Key:      len(result.Citations) + 1,
			SourceID: m.Chunk.ID,
			Title:    m.Chunk.Title,
			Snippet:  clip(m.Chunk.Text, citationSnippetLen),
		})
	}
	result.ContextText = b.String()
	return result
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
