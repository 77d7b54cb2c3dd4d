package challenge

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/errs"
)

func newTestEngine(t *testing.T) (*Engine, *repository.MemoryRepository, *config.Config) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	cfg := config.New()
	return NewEngine(repo, cfg), repo, cfg
}

func TestCreate_GeneratesTransactionIDAndValue(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()

	c, err := eng.Create(ctx, "U2F00000001", "u2f", "", "sess", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.TransactionID == "" {
		t.Error("transaction id should be generated when absent")
	}
	if c.Session != "sess" {
		t.Errorf("session = %q, want sess", c.Session)
	}
	if len(c.Value) != 64 {
		t.Errorf("challenge value length = %d, want 64 hex chars", len(c.Value))
	}
	raw, err := hex.DecodeString(c.Value)
	if err != nil {
		t.Fatalf("value is not hex: %v", err)
	}
	if len(raw) != 32 {
		t.Errorf("decoded value length = %d, want 32", len(raw))
	}
}

func TestCreate_CallerTransactionIDKept(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	c, err := eng.Create(context.Background(), "TOTP0001", "totp", "tx-42", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.TransactionID != "tx-42" {
		t.Errorf("transaction id = %q, want tx-42", c.TransactionID)
	}
}

func TestCreate_ValidityFromConfig(t *testing.T) {
	eng, _, cfg := newTestEngine(t)
	cfg.Set("FooChallengeValidityTime", 30)

	c, err := eng.Create(context.Background(), "FOO1", "foo", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := c.ExpiresAt.Sub(c.CreatedAt); got != 30*time.Second {
		t.Errorf("validity = %v, want 30s", got)
	}

	// Unconfigured types fall back to the 120s default.
	c2, err := eng.Create(context.Background(), "BAR1", "bar", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := c2.ExpiresAt.Sub(c2.CreatedAt); got != 120*time.Second {
		t.Errorf("default validity = %v, want 120s", got)
	}
}

func TestVerify_ConsumesExactlyOnce(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c, err := eng.Create(ctx, "OATH0001", "hotp", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok := func(*domain.Challenge) bool { return true }
	if err := eng.Verify(ctx, c.TransactionID, "OATH0001", ok); err != nil {
		t.Fatalf("first Verify: %v", err)
	}
	if err := eng.Verify(ctx, c.TransactionID, "OATH0001", ok); !errors.Is(err, errs.ErrChallengeFailed) {
		t.Errorf("second Verify = %v, want ErrChallengeFailed", err)
	}
}

func TestVerify_WrongSerialFails(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c, _ := eng.Create(ctx, "OATH0001", "hotp", "", "", "")
	err := eng.Verify(ctx, c.TransactionID, "OATH0002", func(*domain.Challenge) bool { return true })
	if !errors.Is(err, errs.ErrChallengeFailed) {
		t.Errorf("Verify = %v, want ErrChallengeFailed", err)
	}
}

func TestVerify_ExpiredFailsEvenWithCorrectResponse(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c, err := eng.Create(ctx, "U2F0001", "u2f", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	eng.nowF = func() time.Time { return c.ExpiresAt.Add(time.Second) }
	err = eng.Verify(ctx, c.TransactionID, "U2F0001", func(*domain.Challenge) bool { return true })
	if !errors.Is(err, errs.ErrChallengeFailed) {
		t.Errorf("Verify after deadline = %v, want ErrChallengeFailed", err)
	}
}

func TestVerify_ConcurrentAttempts_OneWinner(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c, err := eng.Create(ctx, "OATH0001", "hotp", "", "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = eng.Verify(ctx, c.TransactionID, "OATH0001", func(*domain.Challenge) bool { return true })
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, errs.ErrChallengeFailed) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("successful verifications = %d, want exactly 1", wins)
	}
}

func TestVerify_MismatchDoesNotConsume(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c, _ := eng.Create(ctx, "TOTP0001", "totp", "", "", "")

	err := eng.Verify(ctx, c.TransactionID, "TOTP0001", func(*domain.Challenge) bool { return false })
	if !errors.Is(err, errs.ErrChallengeFailed) {
		t.Fatalf("Verify with wrong response = %v, want ErrChallengeFailed", err)
	}
	// The challenge survives a failed attempt and can still be answered.
	if err := eng.Verify(ctx, c.TransactionID, "TOTP0001", func(*domain.Challenge) bool { return true }); err != nil {
		t.Errorf("Verify after failed attempt: %v", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	eng, repo, _ := newTestEngine(t)
	ctx := context.Background()
	c1, _ := eng.Create(ctx, "A1", "hotp", "", "", "")
	c2, _ := eng.Create(ctx, "A2", "hotp", "", "", "")

	eng.nowF = func() time.Time { return c1.ExpiresAt.Add(time.Minute) }
	n, err := eng.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("removed = %d, want 2", n)
	}
	got, err := repo.GetByTransaction(ctx, c2.TransactionID)
	if err != nil {
		t.Fatalf("GetByTransaction: %v", err)
	}
	if got != nil {
		t.Error("expired challenge should be gone after cleanup")
	}
}

func TestOutstanding_ExcludesExpiredAndConsumed(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	ctx := context.Background()
	c1, _ := eng.Create(ctx, "S1", "hotp", "", "", "")
	if _, err := eng.Create(ctx, "S1", "hotp", "", "", ""); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := eng.Verify(ctx, c1.TransactionID, "S1", func(*domain.Challenge) bool { return true }); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	out, err := eng.Outstanding(ctx, "S1")
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("outstanding = %d, want 1", len(out))
	}
}
