package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/berea-ai/berea/internal/ledger"
	"github.com/redis/go-redis/v9"
)

type redisLedger struct {
	options ledger.Options
	client  *redis.Client
}

func key(userId, kind string) string {
	return fmt.Sprintf("credits:%s:%s", userId, kind)
}

func (l *redisLedger) Grant(ctx context.Context, userId string, kind string, amount int64) error {
	return l.client.IncrBy(ctx, key(userId, kind), amount).Err()
}

func (l *redisLedger) Balance(ctx context.Context, userId string, kind string) (int64, error) {
	balance, err := l.client.Get(ctx, key(userId, kind)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (l *redisLedger) Consume(ctx context.Context, userId string, kind string) (bool, error) {
	k := key(userId, kind)

	remaining, err := l.client.Decr(ctx, k).Result()
	if err != nil {
		return false, err
	}

	// went below zero: give it back and report exhaustion
	if remaining < 0 {
		if err := l.client.Incr(ctx, k).Err(); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

func (l *redisLedger) Restore(ctx context.Context, userId string, kind string) error {
	return l.client.Incr(ctx, key(userId, kind)).Err()
}

func NewLedger(opts ...ledger.Option) ledger.Ledger {
	options := ledger.NewOptions(opts...)

	l := &redisLedger{
		options: options,
	}

	client := redis.NewClient(&redis.Options{
		Addr: options.Location,
	})

	if err := client.Ping(options.Context).Err(); err != nil {
		detail := "failed to ping redis ledger"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	l.client = client

	return l
}
