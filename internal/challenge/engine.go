// Package challenge implements the challenge-response engine: creation of
// time-bounded challenges, verification with a consume-once guarantee, and the
// advisory cleanup sweep.
package challenge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
)

// challengeValueBytes is the size of the random challenge value before hex
// encoding (32 bytes, 64 hex characters).
const challengeValueBytes = 32

// ValidityConfig resolves the challenge lifetime for a token type. Implemented
// by config.Config.
type ValidityConfig interface {
	ChallengeValidity(tokenType string) time.Duration
}

// Engine creates, verifies and sweeps challenges. Token classes own the
// type-specific response check; the engine owns the state machine:
// created → consumed, or created → expired, both terminal.
type Engine struct {
	repo repository.Repository
	cfg  ValidityConfig
	nowF func() time.Time
}

// NewEngine returns an Engine over the given repository and validity config.
func NewEngine(repo repository.Repository, cfg ValidityConfig) *Engine {
	return &Engine{repo: repo, cfg: cfg, nowF: func() time.Time { return time.Now().UTC() }}
}

// Create issues a new challenge for the token with the given serial and type.
// If transactionID is empty a fresh one is generated. data and session are
// stored opaque and returned unchanged on retrieval. The challenge value is
// always generated from the secure random source.
func (e *Engine) Create(ctx context.Context, serial, tokenType, transactionID, session, data string) (*domain.Challenge, error) {
	value, err := security.RandomHex(challengeValueBytes)
	if err != nil {
		return nil, err
	}
	if transactionID == "" {
		transactionID = uuid.New().String()
	}
	now := e.nowF()
	c := &domain.Challenge{
		TransactionID: transactionID,
		Serial:        serial,
		Value:         value,
		Data:          data,
		Session:       session,
		ExpiresAt:     now.Add(e.cfg.ChallengeValidity(tokenType)),
		CreatedAt:     now,
	}
	if err := e.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Verify checks a response against the outstanding challenge for the
// transaction id and serial. check is the type-specific verification over the
// stored challenge; it must not mutate state. On a correct response the
// challenge is consumed through the repository's conditional update, so of N
// concurrent verifiers exactly one succeeds. Absent, expired, consumed and
// mismatching responses all fail with errs.ErrChallengeFailed.
func (e *Engine) Verify(ctx context.Context, transactionID, serial string, check func(*domain.Challenge) bool) error {
	c, err := e.repo.GetByTransaction(ctx, transactionID)
	if err != nil {
		return err
	}
	now := e.nowF()
	if c == nil || c.Serial != serial || !c.Outstanding(now) {
		return errs.ErrChallengeFailed
	}
	if !check(c) {
		return errs.ErrChallengeFailed
	}
	won, err := e.repo.Consume(ctx, transactionID, now)
	if err != nil {
		return err
	}
	if !won {
		return errs.ErrChallengeFailed
	}
	// Consumed challenges are dead; remove eagerly. The sweep would get them
	// eventually, verification does not depend on it.
	_ = e.repo.Delete(ctx, transactionID)
	return nil
}

// Get returns the challenge for a transaction id, or nil when none exists.
func (e *Engine) Get(ctx context.Context, transactionID string) (*domain.Challenge, error) {
	return e.repo.GetByTransaction(ctx, transactionID)
}

// Outstanding returns the unconsumed, unexpired challenges for a token serial.
func (e *Engine) Outstanding(ctx context.Context, serial string) ([]*domain.Challenge, error) {
	return e.repo.ListOutstanding(ctx, serial, e.nowF())
}

// Delete removes a challenge by transaction id, e.g. when out-of-band
// delivery of its secret failed and nobody could ever answer it.
func (e *Engine) Delete(ctx context.Context, transactionID string) error {
	return e.repo.Delete(ctx, transactionID)
}

// CleanupExpired removes expired and orphaned challenges and returns the count.
func (e *Engine) CleanupExpired(ctx context.Context) (int64, error) {
	return e.repo.DeleteExpired(ctx, e.nowF())
}
