// Package u2f implements the U2F hardware token type: two-step enrollment
// parsing the device's registration blob, and challenge-response
// authentication verifying the device's ECDSA sign response.
package u2f

import (
	"context"
	"encoding/base64"
	"encoding/hex"

	chdomain "tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

// Version is the U2F protocol version presented in register and sign requests.
const Version = "U2F_V2"

// infoPubKey is the token info key holding the registered public key (hex).
const infoPubKey = "pub_key"

// Class implements the u2f token type.
type Class struct {
	token.Base
	// appID is the application identity (origin) this server presents.
	appID string
}

// New returns the u2f token class for the given application identity.
func New(base token.Base, appID string) *Class {
	return &Class{Base: base, appID: appID}
}

func (c *Class) Type() string   { return "u2f" }
func (c *Class) Prefix() string { return "U2F" }

// Info returns the static class schema.
func (c *Class) Info(key string, def any) any {
	res := map[string]any{
		"type":        "u2f",
		"title":       "U2F Token",
		"description": "U2F: Enroll a U2F token.",
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

// Update applies one enrollment step. Without registration data this is the
// first step: the token stays unusable and waits for the device's response.
// With registration data the blob is parsed; the key handle becomes the secret
// material, the public key is kept for sign verification and the description
// is taken from the attestation certificate subject. A parse failure commits
// nothing.
func (c *Class) Update(ctx context.Context, tok *domain.Token, in domain.EnrollInput) error {
	if err := c.ApplyCommon(tok, in); err != nil {
		return err
	}
	if in.RegistrationData == "" {
		return tok.Advance(domain.RolloutAwaitingConfirmation)
	}
	reg, err := ParseRegistration(in.RegistrationData)
	if err != nil {
		return err
	}
	if err := tok.Advance(domain.RolloutEnrolled); err != nil {
		return err
	}
	tok.OTPKey = reg.KeyHandle
	tok.SetInfo(infoPubKey, hex.EncodeToString(reg.PubKey))
	if cn := reg.Cert.Subject.CommonName; cn != "" {
		tok.Description = cn
	}
	tok.Active = true
	return nil
}

// InitDetail returns the registration request while enrollment is pending and
// the confirmation echo once the device registered.
func (c *Class) InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error) {
	if tok.Enrolled() {
		return map[string]any{
			"serial":              tok.Serial,
			"u2fRegisterResponse": map[string]any{"subject": tok.Description},
		}, nil
	}
	nonce, err := security.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"serial": tok.Serial,
		"u2fRegisterRequest": map[string]any{
			"version":   Version,
			"challenge": base64.RawURLEncoding.EncodeToString(nonce),
			"appId":     c.appID,
			"origin":    c.appID,
		},
	}, nil
}

// IsChallengeRequest reports whether the attempt should start a challenge.
// U2F is always a challenge-response token: every request with a matching PIN
// starts a challenge. No policy hook can turn this into a direct check.
func (c *Class) IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool {
	return c.CheckPIN(tok, passw)
}

// CheckOTP always fails: a U2F token has no single-shot code.
func (c *Class) CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error) {
	return false, nil
}

// CreateChallenge issues a sign request for the device. The attributes carry
// only public parameters: application identity, challenge value and the
// non-secret key handle reference.
func (c *Class) CreateChallenge(ctx context.Context, tok *domain.Token, transactionID string, opts map[string]string) (*token.ChallengeResult, error) {
	ch, err := c.Engine.Create(ctx, tok.Serial, tok.Type, transactionID, opts["session"], "")
	if err != nil {
		return nil, err
	}
	return &token.ChallengeResult{
		OK:            true,
		Message:       "Please confirm with your U2F token",
		TransactionID: ch.TransactionID,
		Attributes: map[string]any{
			"u2fSignRequest": map[string]any{
				"appId":     c.appID,
				"version":   Version,
				"challenge": ch.Value,
				"keyHandle": hex.EncodeToString(tok.OTPKey),
			},
		},
	}, nil
}

// CheckChallengeResponse verifies the device's sign response against the
// stored challenge and consumes it on success.
func (c *Class) CheckChallengeResponse(ctx context.Context, tok *domain.Token, transactionID string, resp token.Response) error {
	clientDataB64, ok := resp["clientData"]
	if !ok {
		return errs.Parameter("missing clientData in sign response")
	}
	signatureDataB64, ok := resp["signatureData"]
	if !ok {
		return errs.Parameter("missing signatureData in sign response")
	}
	pubKey, err := hex.DecodeString(tok.GetInfo(infoPubKey))
	if err != nil || len(pubKey) == 0 {
		return errs.Integrity("token " + tok.Serial + " has no registered public key")
	}
	return c.Engine.Verify(ctx, transactionID, tok.Serial, func(ch *chdomain.Challenge) bool {
		return VerifySignResponse(pubKey, c.appID, ch.Value, clientDataB64, signatureDataB64)
	})
}
