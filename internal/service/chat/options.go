package chat

import (
	"context"

	"github.com/berea-ai/berea/chain/knowledge"
	"github.com/berea-ai/berea/chain/router"
	"github.com/berea-ai/berea/generator"
	"github.com/berea-ai/berea/internal/ledger"
	"github.com/berea-ai/berea/internal/store"
	"github.com/berea-ai/berea/retriever"
)

type Option func(*Options)

type Options struct {
	Store        store.Store
	Ledger       ledger.Ledger
	Router       router.Router
	Knowledge    knowledge.Chain
	Generator    generator.Generator
	Namer        generator.Generator
	Memory       func() retriever.Retriever
	Catalog      *Catalog
	Models       map[string]ModelSpec
	DefaultModel string
	PremiumRole  string
	Context      context.Context
}

func WithStore(s store.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

func WithLedger(l ledger.Ledger) Option {
	return func(o *Options) {
		o.Ledger = l
	}
}

func WithRouter(r router.Router) Option {
	return func(o *Options) {
		o.Router = r
	}
}

func WithKnowledge(k knowledge.Chain) Option {
	return func(o *Options) {
		o.Knowledge = k
	}
}

func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

// WithNamer sets the generator used for fire-and-forget chat naming. Without
// one, chats keep their default name.
func WithNamer(g generator.Generator) Option {
	return func(o *Options) {
		o.Namer = g
	}
}

// WithMemory sets the factory for per-turn conversational memory. Each
// chat-history turn gets a fresh retriever over the chat's full message log,
// so salient messages beyond the context window can still be recalled.
// Without one, history turns answer from the trimmed transcript alone.
func WithMemory(factory func() retriever.Retriever) Option {
	return func(o *Options) {
		o.Memory = factory
	}
}

func WithCatalog(c *Catalog) Option {
	return func(o *Options) {
		o.Catalog = c
	}
}

func WithModels(models map[string]ModelSpec) Option {
	return func(o *Options) {
		o.Models = models
	}
}

func WithDefaultModel(id string) Option {
	return func(o *Options) {
		o.DefaultModel = id
	}
}

func WithPremiumRole(role string) Option {
	return func(o *Options) {
		o.PremiumRole = role
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Catalog:     NewCatalog(),
		PremiumRole: "premium",
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
