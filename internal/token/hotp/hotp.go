// Package hotp implements the counter-based OTP token type (OATH HOTP).
package hotp

import (
	"context"
	"encoding/base32"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

const (
	// defaultKeyBytes is the size of a generated shared secret (SHA-1 block).
	defaultKeyBytes = 20
	// lookAheadWindow is how many counter values past the stored one are
	// accepted, to absorb presses that never reached the server.
	lookAheadWindow = 10
)

// Class implements the hotp token type.
type Class struct {
	token.Base
}

// New returns the hotp token class.
func New(base token.Base) *Class {
	return &Class{Base: base}
}

func (c *Class) Type() string   { return "hotp" }
func (c *Class) Prefix() string { return "OATH" }

// Info returns the static class schema.
func (c *Class) Info(key string, def any) any {
	res := map[string]any{
		"type":        "hotp",
		"title":       "HOTP Event Token",
		"description": "HOTP: Counter-based one-time passwords.",
		"init":        map[string]any{},
		"config":      map[string]any{},
		"user":        []string{"enroll"},
		"ui_enroll":   []string{"admin", "user"},
		"policy": map[string]any{
			"challenge_response": "hotp tokens may answer their code as a challenge response",
		},
	}
	if key == "" {
		return res
	}
	if v, ok := res[key]; ok {
		return v
	}
	return def
}

// Update enrolls the token in a single step: the shared secret is taken from
// the input or generated, and the token becomes usable immediately.
func (c *Class) Update(ctx context.Context, tok *domain.Token, in domain.EnrollInput) error {
	key := in.OTPKey
	if len(key) == 0 && in.GenKey {
		var err error
		key, err = security.RandomBytes(defaultKeyBytes)
		if err != nil {
			return err
		}
	}
	if len(key) == 0 && len(tok.OTPKey) == 0 {
		return errs.Parameter("hotp enrollment requires otpkey or genkey")
	}
	if err := c.ApplyCommon(tok, in); err != nil {
		return err
	}
	if len(key) > 0 {
		tok.OTPKey = key
	}
	tok.Active = true
	return tok.Advance(domain.RolloutEnrolled)
}

// InitDetail echoes the enrollment outcome. The secret itself is only handed
// out as an otpauth seed before the first authentication.
func (c *Class) InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error) {
	return map[string]any{
		"serial":      tok.Serial,
		"type":        tok.Type,
		"description": tok.Description,
	}, nil
}

// IsChallengeRequest triggers a challenge when the PIN matches and the caller
// asked for challenge-response mode. Plain code authentication stays direct.
func (c *Class) IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool {
	if opts["trigger_challenge"] != "1" {
		return false
	}
	return c.CheckPIN(tok, passw)
}

// CheckOTP validates a code against the stored counter with a look-ahead
// window. On success the counter jumps past the matched value, so a code can
// never validate twice.
func (c *Class) CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(tok.OTPKey)
	opts := hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}
	for i := int64(0); i <= lookAheadWindow; i++ {
		ok, err := hotp.ValidateCustom(value, uint64(tok.Counter+i), secret, opts)
		if err != nil {
			return false, err
		}
		if ok {
			tok.Counter += i + 1
			return true, nil
		}
	}
	return false, nil
}

// CreateChallenge issues the generic OTP prompt.
func (c *Class) CreateChallenge(ctx context.Context, tok *domain.Token, transactionID string, opts map[string]string) (*token.ChallengeResult, error) {
	return c.CreateOTPChallenge(ctx, tok, transactionID, "please enter the OTP", "", opts)
}

// CheckChallengeResponse answers the challenge with the presented code.
func (c *Class) CheckChallengeResponse(ctx context.Context, tok *domain.Token, transactionID string, resp token.Response) error {
	return c.VerifyOTPResponse(ctx, tok, transactionID, resp, c.CheckOTP)
}
