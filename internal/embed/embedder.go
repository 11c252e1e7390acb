// File path: internal/embed/embedder.go
package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/helpmate-bot/helpmate/internal/common"
)

// Embedder turns texts into dense vectors. Implementations must return one
// vector per input text, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

const openAIEmbeddingDimension = 1536

// OpenAIEmbedder embeds texts through the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel) *OpenAIEmbedder {
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{client: openai.NewClient(apiKey), model: model}
}

// NewOpenAIEmbedderWithClient is the injection point for tests and custom
// transports.
func NewOpenAIEmbedderWithClient(client *openai.Client, model openai.EmbeddingModel) *OpenAIEmbedder {
	if model == "" {
		model = openai.SmallEmbedding3
	}
	return &OpenAIEmbedder{client: client, model: model}
}

// Embed requests embeddings for all texts in one call. Provider failures are
// wrapped and returned; callers must not treat a failed embedding as empty.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding creation failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding creation failed: expected %d vectors, got %d", len(texts), len(resp.Data))
	}
	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vectors[i] = item.Embedding
	}
	common.Logger().Debug("embed: batch complete", "texts", len(texts), "model", string(e.model))
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return openAIEmbeddingDimension
}
