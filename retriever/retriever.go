package retriever

import (
	"context"

	"github.com/berea-ai/berea/vectorstore"
)

type Retriever interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
	Retrieve(ctx context.Context, query string) ([]*MemoryRecord, error)
}
