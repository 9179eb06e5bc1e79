package chromem

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/berea-ai/berea/vectorstore"
	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "documents"

// chromemStore is an embedded, pure-Go vector store. Useful when running the
// engine without external infrastructure.
type chromemStore struct {
	options    vectorstore.Options
	db         *chromem.DB
	collection *chromem.Collection
}

func (s *chromemStore) AddDocuments(ctx context.Context, docs []vectorstore.Document, opts ...vectorstore.AddOption) error {
	options := vectorstore.NewAddOptions(opts...)

	if err := vectorstore.EmbedMissing(ctx, s.options.Embedder, docs); err != nil {
		return err
	}

	converted := make([]chromem.Document, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Id) == 0 {
			return fmt.Errorf("document id is required")
		}

		if !options.Overwrite {
			if _, err := s.collection.GetByID(ctx, doc.Id); err == nil {
				continue
			}
		}

		converted = append(converted, chromem.Document{
			ID:        doc.Id,
			Content:   doc.Content,
			Embedding: doc.Embedding,
			Metadata:  flattenMetadata(doc.Metadata),
		})
	}

	if len(converted) == 0 {
		return nil
	}

	return s.collection.AddDocuments(ctx, converted, 1)
}

func (s *chromemStore) DeleteDocuments(ctx context.Context, ids []string) error {
	for _, batch := range vectorstore.Chunk(ids, vectorstore.WriteBatchSize) {
		if err := s.collection.Delete(ctx, nil, nil, batch...); err != nil {
			return err
		}
	}

	return nil
}

func (s *chromemStore) SearchDocuments(ctx context.Context, query string, opts ...vectorstore.SearchOption) ([]vectorstore.DocumentWithScore, error) {
	options := vectorstore.NewSearchOptions(opts...)

	if options.Limit < 1 {
		return nil, nil
	}

	vec, err := s.options.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	limit := min(options.Limit, s.collection.Count())
	if limit == 0 {
		return nil, nil
	}

	hits, err := s.collection.QueryEmbedding(ctx, vec, limit, nil, nil)
	if err != nil {
		return nil, err
	}

	var results []vectorstore.DocumentWithScore
	for _, hit := range hits {
		meta := expandMetadata(hit.Metadata)

		if len(options.Filter) > 0 && !vectorstore.MatchesFilter(meta, options.Filter) {
			continue
		}

		doc := vectorstore.DocumentWithScore{
			Document: vectorstore.Document{
				Id:      hit.ID,
				Content: hit.Content,
			},
			Distance: 1 - hit.Similarity,
			Metric:   vectorstore.MetricCosine,
		}

		if options.WithEmbedding {
			doc.Embedding = hit.Embedding
		}
		if options.WithMetadata {
			doc.Metadata = meta
		}

		results = append(results, doc)
	}

	return results, nil
}

func (s *chromemStore) GetDocuments(ctx context.Context, ids []string) ([]vectorstore.Document, error) {
	var docs []vectorstore.Document

	for _, id := range ids {
		stored, err := s.collection.GetByID(ctx, id)
		if err != nil {
			continue
		}

		docs = append(docs, vectorstore.Document{
			Id:        stored.ID,
			Content:   stored.Content,
			Metadata:  expandMetadata(stored.Metadata),
			Embedding: stored.Embedding,
		})
	}

	return docs, nil
}

func flattenMetadata(meta map[string]any) map[string]string {
	if len(meta) == 0 {
		return nil
	}

	flat := make(map[string]string, len(meta))
	for k, v := range meta {
		flat[k] = fmt.Sprint(v)
	}

	return flat
}

func expandMetadata(meta map[string]string) map[string]any {
	expanded := make(map[string]any, len(meta))
	for k, v := range meta {
		expanded[k] = v
	}

	return expanded
}

func NewStore(opts ...vectorstore.Option) vectorstore.Store {
	options := vectorstore.NewOptions(opts...)

	db := chromem.NewDB()
	if len(options.Location) > 0 {
		var err error
		db, err = chromem.NewPersistentDB(options.Location, false)
		if err != nil {
			detail := "failed to open chromem db"
			slog.ErrorContext(context.Background(), detail, "error", err)
			panic(detail)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		detail := "failed to create chromem collection"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	return &chromemStore{
		options:    options,
		db:         db,
		collection: collection,
	}
}
