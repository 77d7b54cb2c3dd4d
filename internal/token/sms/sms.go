// Package sms implements the SMS token type: a challenge generates a fresh
// numeric one-time code delivered out of band; only its hash is stored, on the
// challenge itself.
package sms

import (
	"context"

	chdomain "tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

// otpDigits is the length of the delivered one-time code.
const otpDigits = 6

// infoPhone is the token info key holding the delivery phone number.
const infoPhone = "phone"

// Class implements the sms token type.
type Class struct {
	token.Base
	gateway Gateway
}

// New returns the sms token class. gateway may be nil, in which case challenge
// creation fails; wire a gateway in any deployment that enrolls sms tokens.
func New(base token.Base, gateway Gateway) *Class {
	return &Class{Base: base, gateway: gateway}
}

func (c *Class) Type() string   { return "sms" }
func (c *Class) Prefix() string { return "PISM" }

// Info returns the static class schema.
func (c *Class) Info(key string, def any) any {
	res := map[string]any{
		"type":        "sms",
		"title":       "SMS Token",
		"description": "SMS: Send a one-time code via SMS.",
		"init":        map[string]any{},
		"config":      map[string]any{},
		"user":        []string{"enroll"},
		"ui_enroll":   []string{"admin", "user"},
		"policy":      map[string]any{},
	}
	if key == "" {
		return res
	}
	if v, ok := res[key]; ok {
		return v
	}
	return def
}

// Update enrolls the token in a single step; the phone number is the only
// required input.
func (c *Class) Update(ctx context.Context, tok *domain.Token, in domain.EnrollInput) error {
	if in.Phone == "" && tok.GetInfo(infoPhone) == "" {
		return errs.Parameter("sms enrollment requires a phone number")
	}
	if err := c.ApplyCommon(tok, in); err != nil {
		return err
	}
	if in.Phone != "" {
		tok.SetInfo(infoPhone, in.Phone)
	}
	tok.Active = true
	return tok.Advance(domain.RolloutEnrolled)
}

// InitDetail echoes the enrollment outcome. The phone number is considered
// non-secret here; the code itself never appears.
func (c *Class) InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error) {
	return map[string]any{
		"serial": tok.Serial,
		"type":   tok.Type,
		"phone":  tok.GetInfo(infoPhone),
	}, nil
}

// IsChallengeRequest: sms is challenge-only, so every request with a matching
// PIN starts a challenge.
func (c *Class) IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool {
	return c.CheckPIN(tok, passw)
}

// CheckOTP always fails: the code only exists relative to a challenge.
func (c *Class) CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error) {
	return false, nil
}

// CreateChallenge generates a fresh code, stores only its hash on the
// challenge and delivers the code through the gateway.
func (c *Class) CreateChallenge(ctx context.Context, tok *domain.Token, transactionID string, opts map[string]string) (*token.ChallengeResult, error) {
	if c.gateway == nil {
		return nil, errs.Integrity("sms token has no gateway configured")
	}
	phone := tok.GetInfo(infoPhone)
	if phone == "" {
		return nil, errs.Integrity("sms token " + tok.Serial + " has no phone number")
	}
	otp, err := security.RandomDigits(otpDigits)
	if err != nil {
		return nil, err
	}
	ch, err := c.Engine.Create(ctx, tok.Serial, tok.Type, transactionID, opts["session"], security.HashOTP(otp))
	if err != nil {
		return nil, err
	}
	if err := c.gateway.SendOTP(phone, otp); err != nil {
		// A challenge nobody can answer is useless; drop it.
		_ = c.Engine.Delete(ctx, ch.TransactionID)
		return nil, err
	}
	return &token.ChallengeResult{
		OK:            true,
		Message:       "Enter the one-time code sent via SMS",
		TransactionID: ch.TransactionID,
		Attributes:    map[string]any{"serial": tok.Serial},
	}, nil
}

// CheckChallengeResponse compares the presented code's hash against the hash
// stored on the challenge, in constant time.
func (c *Class) CheckChallengeResponse(ctx context.Context, tok *domain.Token, transactionID string, resp token.Response) error {
	value, ok := resp["otp"]
	if !ok {
		return errs.Parameter("missing otp in challenge response")
	}
	return c.Engine.Verify(ctx, transactionID, tok.Serial, func(ch *chdomain.Challenge) bool {
		return security.OTPHashEqual(value, ch.Data)
	})
}
