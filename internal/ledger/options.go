package ledger

import "context"

type Option func(*Options)

type Options struct {
	Location       string
	InitialCredits int64
	Context        context.Context
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

// WithInitialCredits seeds a user's balance the first time a credit kind is
// touched, so deployments without an external grant flow can serve turns out
// of the box.
func WithInitialCredits(amount int64) Option {
	return func(o *Options) {
		o.InitialCredits = amount
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
