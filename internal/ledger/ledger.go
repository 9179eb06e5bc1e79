package ledger

import "context"

// Ledger tracks per-user credit balances by kind. Consume and Restore form a
// compensating pair around generation, not a transaction.
type Ledger interface {
	Grant(ctx context.Context, userId string, kind string, amount int64) error
	Balance(ctx context.Context, userId string, kind string) (int64, error)
	// Consume takes one credit and reports whether one was available.
	Consume(ctx context.Context, userId string, kind string) (bool, error)
	// Restore gives back one credit taken by Consume.
	Restore(ctx context.Context, userId string, kind string) error
}
