package vectorstore

import "context"

type Store interface {
	AddDocuments(ctx context.Context, docs []Document, opts ...AddOption) error
	DeleteDocuments(ctx context.Context, ids []string) error
	SearchDocuments(ctx context.Context, query string, opts ...SearchOption) ([]DocumentWithScore, error)
	GetDocuments(ctx context.Context, ids []string) ([]Document, error)
}

const (
	// EmbedBatchSize is how many documents are embedded per embedder call.
	EmbedBatchSize = 25
	// WriteBatchSize caps rows per insert or delete statement.
	WriteBatchSize = 100
)
