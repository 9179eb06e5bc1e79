package vectorstore

import (
	"context"

	"github.com/berea-ai/berea/embedder"
)

type Option func(*Options)

type Options struct {
	Location   string
	Embedder   embedder.Embedder
	Dimensions int
	Context    context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithEmbedder(embedder embedder.Embedder) Option {
	return func(o *Options) {
		o.Embedder = embedder
	}
}

func WithDimensions(dims int) Option {
	return func(o *Options) {
		o.Dimensions = dims
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Dimensions: 1536,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type AddOption func(*AddOptions)

type AddOptions struct {
	Overwrite bool
	Context   context.Context
}

func WithOverwrite() AddOption {
	return func(o *AddOptions) {
		o.Overwrite = true
	}
}

func NewAddOptions(opts ...AddOption) AddOptions {
	options := AddOptions{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type SearchOption func(*SearchOptions)

type SearchOptions struct {
	Filter        map[string]any
	Limit         int
	WithEmbedding bool
	WithMetadata  bool
	Context       context.Context
}

func WithFilter(filter map[string]any) SearchOption {
	return func(o *SearchOptions) {
		o.Filter = filter
	}
}

func WithLimit(limit int) SearchOption {
	return func(o *SearchOptions) {
		o.Limit = limit
	}
}

func WithEmbedding() SearchOption {
	return func(o *SearchOptions) {
		o.WithEmbedding = true
	}
}

func WithMetadata() SearchOption {
	return func(o *SearchOptions) {
		o.WithMetadata = true
	}
}

func NewSearchOptions(opts ...SearchOption) SearchOptions {
	options := SearchOptions{
		Limit:        4,
		WithMetadata: true,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
