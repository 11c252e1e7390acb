// File path: internal/embed/stub.go
package embed

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
)

// StubEmbedder produces deterministic pseudo-random unit vectors derived from
// the text content. Equal texts embed identically across runs, which makes
// retrieval tests reproducible without a network dependency.
type StubEmbedder struct {
	dim int
}

func NewStubEmbedder(dim int) *StubEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &StubEmbedder{dim: dim}
}

func (s *StubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.vector(text)
	}
	return vectors, nil
}

func (s *StubEmbedder) Dimension() int {
	return s.dim
}

func (s *StubEmbedder) vector(text string) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	vec := make([]float32, s.dim)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
