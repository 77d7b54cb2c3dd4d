// Package token defines the polymorphic token class contract, the class
// registry and the shared base behavior of all token types. Concrete types
// (hotp, totp, u2f, passkey, sms) live in subpackages and are registered at
// startup.
package token

import (
	"context"

	"tokenforge/engine/internal/token/domain"
)

// ChallengeResult is what a token class returns when it issued a challenge.
// Attributes carry only the public parameters needed to solicit a response;
// secret material never appears here.
type ChallengeResult struct {
	OK            bool
	Message       string
	TransactionID string
	Attributes    map[string]any
}

// Response is the payload presented to answer a challenge. Keys are
// type-specific (e.g. "otp" for code types; "clientData", "signatureData" for
// U2F).
type Response map[string]string

// Class is the contract every token type implements. Implementations are
// stateless with respect to individual tokens: all per-token state lives on
// the domain.Token record they are handed.
type Class interface {
	// Type returns the stable type identifier (e.g. "u2f").
	Type() string
	// Prefix returns the serial prefix for new tokens of this type.
	Prefix() string
	// Info returns the static class schema: the full schema for key "", the
	// named subsection when present, def otherwise.
	Info(key string, def any) any
	// Update applies one enrollment step to the token. It must be safe to
	// retry and must only move the rollout state forward. On a malformed
	// input it fails without committing any secret material.
	Update(ctx context.Context, tok *domain.Token, in domain.EnrollInput) error
	// InitDetail returns the data the enrolling party needs at the token's
	// current enrollment step. Never includes the secret material.
	InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error)
	// IsChallengeRequest decides whether an authentication attempt should
	// start a challenge instead of being evaluated as a direct response.
	IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool
	// CheckOTP verifies a single-shot code directly. Challenge-only types
	// always return false.
	CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error)
	// CreateChallenge issues a challenge for the token, persisting it via the
	// challenge engine. An empty transactionID requests a generated one.
	CreateChallenge(ctx context.Context, tok *domain.Token, transactionID string, opts map[string]string) (*ChallengeResult, error)
	// CheckChallengeResponse verifies the response for the transaction and
	// consumes the challenge exactly once on success. Any failure is
	// errs.ErrChallengeFailed.
	CheckChallengeResponse(ctx context.Context, tok *domain.Token, transactionID string, resp Response) error
}
