package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/berea-ai/berea/embedder"
)

// EmbedMissing fills in embeddings for documents that lack one, calling the
// embedder in fixed-size batches. Documents arriving with an embedding are
// left untouched.
func EmbedMissing(ctx context.Context, e embedder.Embedder, docs []Document) error {
	var pending []int
	for i, doc := range docs {
		if len(doc.Embedding) == 0 {
			pending = append(pending, i)
		}
	}

	for start := 0; start < len(pending); start += EmbedBatchSize {
		end := min(start+EmbedBatchSize, len(pending))

		texts := make([]string, 0, end-start)
		for _, idx := range pending[start:end] {
			texts = append(texts, docs[idx].Content)
		}

		vecs, err := e.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed batch: %w", err)
		}

		for j, idx := range pending[start:end] {
			docs[idx].Embedding = vecs[j]
		}
	}

	return nil
}

// Chunk splits ids into slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		return [][]T{items}
	}

	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}

	return chunks
}

// MatchesFilter reports whether every filter key has an equal value in the
// document metadata. Values are compared by their string form since metadata
// is an open map.
func MatchesFilter(meta map[string]any, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := meta[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance is 1 - cosine similarity, so lower means closer.
func CosineDistance(a, b []float32) float64 {
	return 1.0 - CosineSimilarity(a, b)
}
