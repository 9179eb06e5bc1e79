package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/berea-ai/berea/internal/ledger"
)

type memoryLedger struct {
	options  ledger.Options
	balances map[string]int64
	seen     map[string]bool
	mtx      sync.Mutex
}

func key(userId, kind string) string {
	return fmt.Sprintf("%s:%s", userId, kind)
}

// seed credits a balance on first sight. Must be called with the mutex held.
func (l *memoryLedger) seed(k string) {
	if l.seen[k] {
		return
	}
	l.seen[k] = true
	l.balances[k] = l.options.InitialCredits
}

func (l *memoryLedger) Grant(ctx context.Context, userId string, kind string, amount int64) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	k := key(userId, kind)
	l.seed(k)
	l.balances[k] += amount

	return nil
}

func (l *memoryLedger) Balance(ctx context.Context, userId string, kind string) (int64, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	k := key(userId, kind)
	l.seed(k)

	return l.balances[k], nil
}

func (l *memoryLedger) Consume(ctx context.Context, userId string, kind string) (bool, error) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	k := key(userId, kind)
	l.seed(k)

	if l.balances[k] <= 0 {
		return false, nil
	}

	l.balances[k]--

	return true, nil
}

func (l *memoryLedger) Restore(ctx context.Context, userId string, kind string) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	k := key(userId, kind)
	l.seed(k)
	l.balances[k]++

	return nil
}

func NewLedger(opts ...ledger.Option) ledger.Ledger {
	options := ledger.NewOptions(opts...)

	return &memoryLedger{
		options:  options,
		balances: map[string]int64{},
		seen:     map[string]bool{},
	}
}
