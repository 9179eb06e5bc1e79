package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/berea-ai/berea/embedder"
)

// mockEmbedder produces deterministic unit vectors by summing a sine wave per
// token. Texts sharing tokens share summands, so they end up closer in cosine
// space than texts with no overlap, which is enough signal for ranking tests.
type mockEmbedder struct {
	dims int
}

func (e *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	acc := make([]float64, e.dims)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{text}
	}

	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		seed := float64(h.Sum32())

		for i := range acc {
			acc[i] += math.Sin(seed + float64(i))
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	vec := make([]float32, e.dims)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}

	return vec, nil
}

func (e *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func NewEmbedder(dims int) embedder.Embedder {
	if dims <= 0 {
		dims = 64
	}
	return &mockEmbedder{dims: dims}
}
