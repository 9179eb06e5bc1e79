package retriever

import (
	"context"
	"time"

	"github.com/berea-ai/berea/vectorstore"
)

type Option func(*Options)

type Options struct {
	Store           vectorstore.Store
	K               int
	DecayRate       float64
	DefaultSalience float64
	OtherScoreKeys  []string
	Now             func() time.Time
	Context         context.Context
}

func WithStore(store vectorstore.Store) Option {
	return func(o *Options) {
		o.Store = store
	}
}

func WithK(k int) Option {
	return func(o *Options) {
		o.K = k
	}
}

func WithDecayRate(rate float64) Option {
	return func(o *Options) {
		o.DecayRate = rate
	}
}

func WithDefaultSalience(salience float64) Option {
	return func(o *Options) {
		o.DefaultSalience = salience
	}
}

func WithOtherScoreKeys(keys ...string) Option {
	return func(o *Options) {
		o.OtherScoreKeys = keys
	}
}

func WithNow(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		K:               4,
		DecayRate:       0.01, // per hour
		DefaultSalience: 1.0,
		Now:             func() time.Time { return time.Now().UTC() },
		Context:         context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
