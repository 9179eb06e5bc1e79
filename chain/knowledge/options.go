package knowledge

import (
	"context"

	"github.com/berea-ai/berea/generator"
	"github.com/berea-ai/berea/vectorstore"
)

type Option func(*Options)

type Options struct {
	Generator  generator.Generator
	Store      vectorstore.Store
	Expansions int
	Limit      int
	Compress   bool
	Filter     map[string]any
	Tools      []generator.Tool
	Context    context.Context
}

func WithGenerator(g generator.Generator) Option {
	return func(o *Options) {
		o.Generator = g
	}
}

func WithStore(s vectorstore.Store) Option {
	return func(o *Options) {
		o.Store = s
	}
}

func WithExpansions(n int) Option {
	return func(o *Options) {
		o.Expansions = n
	}
}

func WithLimit(limit int) Option {
	return func(o *Options) {
		o.Limit = limit
	}
}

func WithCompression() Option {
	return func(o *Options) {
		o.Compress = true
	}
}

func WithFilter(filter map[string]any) Option {
	return func(o *Options) {
		o.Filter = filter
	}
}

func WithTools(tools []generator.Tool) Option {
	return func(o *Options) {
		o.Tools = tools
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Expansions: 3,
		Limit:      4,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
