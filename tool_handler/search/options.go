package search

import (
	"context"

	toolhandler "github.com/berea-ai/berea/tool_handler"
	"github.com/berea-ai/berea/vectorstore"
)

type storeKey struct{}

func WithStore(s vectorstore.Store) toolhandler.Option {
	return func(o *toolhandler.Options) {
		o.Context = context.WithValue(o.Context, storeKey{}, s)
	}
}

func StoreFrom(ctx context.Context) (vectorstore.Store, bool) {
	s, ok := ctx.Value(storeKey{}).(vectorstore.Store)
	return s, ok
}
