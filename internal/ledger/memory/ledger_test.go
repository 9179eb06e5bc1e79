package memory

import (
	"context"
	"testing"

	"github.com/berea-ai/berea/internal/ledger"
)

func TestConsumeWithoutCredits(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	ok, err := l.Consume(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if ok {
		t.Fatal("expected consume with no credits to fail")
	}

	balance, err := l.Balance(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 0 {
		t.Fatalf("expected balance 0, got %d", balance)
	}
}

func TestInitialCreditsSeedNewUsers(t *testing.T) {
	l := NewLedger(ledger.WithInitialCredits(2))
	ctx := context.Background()

	balance, err := l.Balance(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 2 {
		t.Fatalf("expected seeded balance 2, got %d", balance)
	}

	for i := 0; i < 2; i++ {
		ok, err := l.Consume(ctx, "u1", "basic")
		if err != nil {
			t.Fatalf("Consume %d failed: %v", i, err)
		}
		if !ok {
			t.Fatalf("expected consume %d to succeed", i)
		}
	}

	ok, err := l.Consume(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if ok {
		t.Fatal("expected consume after exhausting the seed to fail")
	}
}

func TestInitialCreditsSeedOnlyOnce(t *testing.T) {
	l := NewLedger(ledger.WithInitialCredits(1))
	ctx := context.Background()

	ok, err := l.Consume(ctx, "u1", "basic")
	if err != nil || !ok {
		t.Fatalf("expected seeded consume to succeed, got ok=%v err=%v", ok, err)
	}

	// exhausting the seed must not trigger a second seed
	ok, err = l.Consume(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if ok {
		t.Fatal("expected balance to stay exhausted")
	}
}

func TestGrantAddsOnTopOfSeed(t *testing.T) {
	l := NewLedger(ledger.WithInitialCredits(2))
	ctx := context.Background()

	if err := l.Grant(ctx, "u1", "basic", 3); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	balance, err := l.Balance(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 5 {
		t.Fatalf("expected balance 5, got %d", balance)
	}
}

func TestConsumeAndRestore(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()

	if err := l.Grant(ctx, "u1", "basic", 1); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	ok, err := l.Consume(ctx, "u1", "basic")
	if err != nil || !ok {
		t.Fatalf("expected consume to succeed, got ok=%v err=%v", ok, err)
	}

	if err := l.Restore(ctx, "u1", "basic"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	balance, err := l.Balance(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 1 {
		t.Fatalf("expected balance 1, got %d", balance)
	}
}

func TestKindsAreIndependent(t *testing.T) {
	l := NewLedger(ledger.WithInitialCredits(1))
	ctx := context.Background()

	ok, err := l.Consume(ctx, "u1", "basic")
	if err != nil || !ok {
		t.Fatalf("expected basic consume to succeed, got ok=%v err=%v", ok, err)
	}

	// premium gets its own seed, untouched by the basic draw
	balance, err := l.Balance(ctx, "u1", "premium")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 1 {
		t.Fatalf("expected premium balance 1, got %d", balance)
	}
}
