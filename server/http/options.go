package http

import (
	"context"
	"net/http"

	"github.com/berea-ai/berea/internal/service/chat"
	"github.com/berea-ai/berea/internal/store"
	"github.com/berea-ai/berea/vectorstore"
)

type Option func(*Options)

type Options struct {
	Address    string
	Chat       ChatService
	Documents  vectorstore.Store
	Store      store.Store
	Identity   IdentityProvider
	Middleware []func(h http.Handler) http.Handler
	Context    context.Context
}

// ChatService is the slice of the chat service the transport needs.
type ChatService interface {
	Submit(ctx context.Context, req *chat.TurnRequest, sink *chat.Sink) (*chat.TurnResult, error)
	ConfirmTool(ctx context.Context, req *chat.ConfirmRequest) (*store.ToolInvocation, error)
	ListChats(ctx context.Context, userId string) ([]*store.Chat, error)
	History(ctx context.Context, userId string, chatId string) ([]*store.Message, error)
	Rename(ctx context.Context, userId string, chatId string, name string) (*store.Chat, error)
}

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithChat(c ChatService) Option {
	return func(o *Options) {
		o.Chat = c
	}
}

func WithDocuments(s vectorstore.Store) Option {
	return func(o *Options) {
		o.Documents = s
	}
}

func WithStore(s store.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

func WithIdentity(p IdentityProvider) Option {
	return func(o *Options) {
		o.Identity = p
	}
}

func WithMiddleware(ms ...func(h http.Handler) http.Handler) Option {
	return func(o *Options) {
		o.Middleware = append(o.Middleware, ms...)
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Address: ":8080",
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
