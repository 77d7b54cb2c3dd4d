// Package totp implements the time-based OTP token type (OATH TOTP).
package totp

import (
	"context"
	"encoding/base32"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"

	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

const (
	defaultKeyBytes = 20
	// period is the TOTP time step in seconds; skew allows one step of clock
	// drift in either direction.
	period = 30
	skew   = 1
)

// Class implements the totp token type.
type Class struct {
	token.Base
	nowF func() time.Time
}

// New returns the totp token class.
func New(base token.Base) *Class {
	return &Class{Base: base, nowF: time.Now}
}

func (c *Class) Type() string   { return "totp" }
func (c *Class) Prefix() string { return "TOTP" }

// Info returns the static class schema.
func (c *Class) Info(key string, def any) any {
	res := map[string]any{
		"type":        "totp",
		"title":       "TOTP Time Token",
		"description": "TOTP: Time-based one-time passwords.",
		"init":        map[string]any{},
		"config":      map[string]any{},
		"user":        []string{"enroll"},
		"ui_enroll":   []string{"admin", "user"},
		"policy": map[string]any{
			"challenge_response": "totp tokens may answer their code as a challenge response",
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

// Update enrolls the token in a single step, like hotp.
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
		return errs.Parameter("totp enrollment requires otpkey or genkey")
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

// InitDetail echoes the enrollment outcome.
func (c *Class) InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error) {
	return map[string]any{
		"serial":      tok.Serial,
		"type":        tok.Type,
		"description": tok.Description,
	}, nil
}

// IsChallengeRequest triggers a challenge when the PIN matches and the caller
// asked for challenge-response mode.
func (c *Class) IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool {
	if opts["trigger_challenge"] != "1" {
		return false
	}
	return c.CheckPIN(tok, passw)
}

// CheckOTP validates a code for the current time window, allowing one step of
// clock skew. The matched time step is recorded on the counter; a code at or
// before the last matched step never validates again, so a correct code
// cannot be replayed within its window.
func (c *Class) CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(tok.OTPKey)
	opts := hotp.ValidateOpts{Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1}
	step := c.nowF().Unix() / period
	for offset := int64(-skew); offset <= skew; offset++ {
		candidate := step + offset
		if candidate < 0 {
			continue
		}
		ok, err := hotp.ValidateCustom(value, uint64(candidate), secret, opts)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if tok.Counter > 0 && candidate <= tok.Counter {
			return false, nil
		}
		tok.Counter = candidate
		return true, nil
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
