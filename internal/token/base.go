package token

import (
	"context"

	"tokenforge/engine/internal/challenge"
	chdomain "tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token/domain"
)

// Base carries the collaborators every token class needs and implements the
// behavior shared across types. Concrete classes embed it.
type Base struct {
	Hasher *security.Hasher
	Engine *challenge.Engine
}

// NewBase returns a Base over the given hasher and challenge engine.
func NewBase(hasher *security.Hasher, engine *challenge.Engine) Base {
	return Base{Hasher: hasher, Engine: engine}
}

// CheckPIN verifies the knowledge-factor precondition. A token without a PIN
// matches only the empty string.
func (b *Base) CheckPIN(tok *domain.Token, passw string) bool {
	if tok.PINHash == "" {
		return passw == ""
	}
	return b.Hasher.Compare(tok.PINHash, []byte(passw)) == nil
}

// ApplyCommon applies the type-independent parts of an enrollment step:
// description and PIN. Safe to call repeatedly.
func (b *Base) ApplyCommon(tok *domain.Token, in domain.EnrollInput) error {
	if in.Description != "" {
		tok.Description = in.Description
	}
	if in.PIN != "" {
		hash, err := b.Hasher.Hash([]byte(in.PIN))
		if err != nil {
			return err
		}
		tok.PINHash = hash
	}
	return nil
}

// CreateOTPChallenge issues the generic "enter the OTP" challenge used by the
// code-based types. data is stored opaque on the challenge.
func (b *Base) CreateOTPChallenge(ctx context.Context, tok *domain.Token, transactionID, message, data string, opts map[string]string) (*ChallengeResult, error) {
	c, err := b.Engine.Create(ctx, tok.Serial, tok.Type, transactionID, opts["session"], data)
	if err != nil {
		return nil, err
	}
	return &ChallengeResult{
		OK:            true,
		Message:       message,
		TransactionID: c.TransactionID,
		Attributes:    map[string]any{"serial": tok.Serial},
	}, nil
}

// VerifyOTPResponse answers an outstanding OTP challenge by delegating the
// code check to checkOTP. Used by the code-based types.
func (b *Base) VerifyOTPResponse(ctx context.Context, tok *domain.Token, transactionID string, resp Response,
	checkOTP func(ctx context.Context, tok *domain.Token, value string) (bool, error)) error {
	value, ok := resp["otp"]
	if !ok {
		return errs.Parameter("missing otp in challenge response")
	}
	return b.Engine.Verify(ctx, transactionID, tok.Serial, func(_ *chdomain.Challenge) bool {
		match, err := checkOTP(ctx, tok, value)
		return err == nil && match
	})
}
