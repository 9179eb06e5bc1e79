package highlight

import (
	"context"

	"github.com/berea-ai/berea/internal/store"
	toolhandler "github.com/berea-ai/berea/tool_handler"
)

type storeKey struct{}

func WithStore(s store.Store) toolhandler.Option {
	return func(o *toolhandler.Options) {
		o.Context = context.WithValue(o.Context, storeKey{}, s)
	}
}

func StoreFrom(ctx context.Context) (store.Store, bool) {
	s, ok := ctx.Value(storeKey{}).(store.Store)
	return s, ok
}
