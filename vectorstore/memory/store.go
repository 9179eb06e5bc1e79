package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/berea-ai/berea/vectorstore"
)

type memoryStore struct {
	options vectorstore.Options
	docs    map[string]vectorstore.Document
	mtx     sync.RWMutex
}

func (s *memoryStore) AddDocuments(ctx context.Context, docs []vectorstore.Document, opts ...vectorstore.AddOption) error {
	options := vectorstore.NewAddOptions(opts...)

	if s.options.Embedder == nil {
		return fmt.Errorf("memory store has no embedder")
	}

	if err := vectorstore.EmbedMissing(ctx, s.options.Embedder, docs); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, doc := range docs {
		if len(doc.Id) == 0 {
			return fmt.Errorf("document id is required")
		}
		if _, exists := s.docs[doc.Id]; exists && !options.Overwrite {
			continue
		}

		cpy := doc
		cpy.Embedding = append([]float32(nil), doc.Embedding...)
		if doc.Metadata != nil {
			cpy.Metadata = maps.Clone(doc.Metadata)
		}

		s.docs[doc.Id] = cpy
	}

	return nil
}

func (s *memoryStore) DeleteDocuments(ctx context.Context, ids []string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, id := range ids {
		delete(s.docs, id)
	}

	return nil
}

func (s *memoryStore) SearchDocuments(ctx context.Context, query string, opts ...vectorstore.SearchOption) ([]vectorstore.DocumentWithScore, error) {
	options := vectorstore.NewSearchOptions(opts...)

	if options.Limit < 1 {
		return nil, nil
	}

	vec, err := s.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mtx.RLock()

	candidates := make([]vectorstore.DocumentWithScore, 0, len(s.docs))
	for _, doc := range s.docs {
		candidates = append(candidates, vectorstore.DocumentWithScore{
			Document: doc,
			Distance: float32(vectorstore.CosineDistance(vec, doc.Embedding)),
			Metric:   vectorstore.MetricCosine,
		})
	}

	s.mtx.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if len(candidates) > options.Limit {
		candidates = candidates[:options.Limit]
	}

	// Metadata filtering happens after the nearest-K cut, so fewer than
	// limit results is expected when the filter removes candidates.
	var results []vectorstore.DocumentWithScore
	for _, cand := range candidates {
		if len(options.Filter) > 0 && !vectorstore.MatchesFilter(cand.Metadata, options.Filter) {
			continue
		}

		if !options.WithEmbedding {
			cand.Embedding = nil
		}
		if !options.WithMetadata {
			cand.Metadata = nil
		}

		results = append(results, cand)
	}

	return results, nil
}

func (s *memoryStore) GetDocuments(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var docs []vectorstore.Document
	for _, id := range ids {
		if doc, exists := s.docs[id]; exists {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	s := &memoryStore{
		options: options,
		docs:    map[string]vectorstore.Document{},
		mtx:     sync.RWMutex{},
	}

	return s
}
