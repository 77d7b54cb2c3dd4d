// Package passkey implements the FIDO2 passkey token type: a discoverable
// credential stored on the device and unlocked there, e.g. with biometrics.
// Enrollment issues a registration challenge whose response must answer that
// exact challenge; authentication verifies the authenticator's assertion with
// user verification required.
package passkey

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	chdomain "tokenforge/engine/internal/challenge/domain"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

// Token info keys written during enrollment.
const (
	infoPubKey    = "public_key"
	infoSignCount = "sign_count"
	// infoCredIDHash lets a credential id reported by a device be matched to
	// its token without decrypting secret material.
	infoCredIDHash = "credential_id_hash"
	infoRPID       = "relying_party_id"
	infoRPName     = "relying_party_name"
)

// Class implements the passkey token type.
type Class struct {
	token.Base
	rpID   string
	rpName string
}

// New returns the passkey token class for the given relying party.
func New(base token.Base, rpID, rpName string) *Class {
	return &Class{Base: base, rpID: rpID, rpName: rpName}
}

func (c *Class) Type() string   { return "passkey" }
func (c *Class) Prefix() string { return "PIPK" }

// Info returns the static class schema.
func (c *Class) Info(key string, def any) any {
	res := map[string]any{
		"type":        "passkey",
		"title":       "Passkey",
		"description": "Passkey: A secret stored on a device, unlocked with biometrics.",
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
// first step: the token waits for the device. With registration data the
// response is verified against the enrollment challenge referenced by the
// transaction id; on success the credential id becomes the secret material
// and the public key and signature counter are kept for assertions. The
// enrollment challenge is consumed exactly once, so a registration response
// cannot be replayed onto a second record.
func (c *Class) Update(ctx context.Context, tok *domain.Token, in domain.EnrollInput) error {
	if err := c.ApplyCommon(tok, in); err != nil {
		return err
	}
	if in.RegistrationData == "" {
		return tok.Advance(domain.RolloutAwaitingConfirmation)
	}
	if in.TransactionID == "" {
		return errs.Parameter("passkey registration requires the enrollment transaction id")
	}

	var (
		reg      *Registration
		parseErr error
	)
	err := c.Engine.Verify(ctx, in.TransactionID, tok.Serial, func(ch *chdomain.Challenge) bool {
		reg, parseErr = ParseRegistration(in.RegistrationData, ch.Value, c.rpID)
		return parseErr == nil
	})
	if parseErr != nil {
		return parseErr
	}
	if err != nil {
		return err
	}

	if err := tok.Advance(domain.RolloutEnrolled); err != nil {
		return err
	}
	tok.OTPKey = reg.CredentialID
	credHash := sha256.Sum256(reg.CredentialID)
	tok.SetInfo(infoPubKey, hex.EncodeToString(reg.PubKey))
	tok.SetInfo(infoSignCount, strconv.FormatUint(uint64(reg.SignCount), 10))
	tok.SetInfo(infoCredIDHash, hex.EncodeToString(credHash[:]))
	tok.SetInfo(infoRPID, c.rpID)
	tok.SetInfo(infoRPName, c.rpName)
	tok.Active = true
	return nil
}

// InitDetail returns the registration options while enrollment is pending,
// creating the enrollment challenge the device's response must answer. Once
// enrolled it only echoes the outcome.
func (c *Class) InitDetail(ctx context.Context, tok *domain.Token, user string) (map[string]any, error) {
	if tok.Enrolled() {
		return map[string]any{
			"serial": tok.Serial,
			"type":   tok.Type,
		}, nil
	}
	ch, err := c.Engine.Create(ctx, tok.Serial, tok.Type, "", "", "")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"serial":        tok.Serial,
		"transactionId": ch.TransactionID,
		"passkeyRegistration": map[string]any{
			"rp":        map[string]any{"id": c.rpID, "name": c.rpName},
			"user":      map[string]any{"id": tok.Serial, "name": user, "displayName": user},
			"challenge": ch.Value,
			"pubKeyCredParams": []map[string]any{
				{"type": "public-key", "alg": -7},
			},
			"authenticatorSelection": map[string]any{
				"residentKey":      "required",
				"userVerification": "preferred",
			},
			"attestation": "none",
			"timeout":     12000,
		},
	}, nil
}

// IsChallengeRequest reports whether the attempt should start a challenge.
// A passkey is always a challenge-response token: every request with a
// matching PIN starts a challenge.
func (c *Class) IsChallengeRequest(ctx context.Context, tok *domain.Token, passw string, opts map[string]string) bool {
	return c.CheckPIN(tok, passw)
}

// CheckOTP always fails: a passkey has no single-shot code.
func (c *Class) CheckOTP(ctx context.Context, tok *domain.Token, value string) (bool, error) {
	return false, nil
}

// CreateChallenge issues an assertion request for the device.
func (c *Class) CreateChallenge(ctx context.Context, tok *domain.Token, transactionID string, opts map[string]string) (*token.ChallengeResult, error) {
	ch, err := c.Engine.Create(ctx, tok.Serial, tok.Type, transactionID, opts["session"], "")
	if err != nil {
		return nil, err
	}
	return &token.ChallengeResult{
		OK:            true,
		Message:       "Please authenticate with your Passkey!",
		TransactionID: ch.TransactionID,
		Attributes: map[string]any{
			"challenge": ch.Value,
			"rpId":      c.rpID,
		},
	}, nil
}

// CheckChallengeResponse verifies the device's assertion against the stored
// challenge and consumes it on success. The signature counter advances on the
// token record when the authenticator maintains one.
func (c *Class) CheckChallengeResponse(ctx context.Context, tok *domain.Token, transactionID string, resp token.Response) error {
	clientDataB64, ok := resp["clientDataJSON"]
	if !ok {
		return errs.Parameter("missing clientDataJSON in assertion")
	}
	authDataB64, ok := resp["authenticatorData"]
	if !ok {
		return errs.Parameter("missing authenticatorData in assertion")
	}
	signatureB64, ok := resp["signature"]
	if !ok {
		return errs.Parameter("missing signature in assertion")
	}
	pubKey, err := hex.DecodeString(tok.GetInfo(infoPubKey))
	if err != nil || len(pubKey) == 0 {
		return errs.Integrity("token " + tok.Serial + " has no registered public key")
	}
	storedCount, _ := strconv.ParseUint(tok.GetInfo(infoSignCount), 10, 32)

	var newCount uint32
	err = c.Engine.Verify(ctx, transactionID, tok.Serial, func(ch *chdomain.Challenge) bool {
		count, ok := VerifyAssertion(pubKey, c.rpID, ch.Value, clientDataB64, authDataB64, signatureB64, uint32(storedCount))
		if !ok {
			return false
		}
		newCount = count
		return true
	})
	if err != nil {
		return err
	}
	tok.SetInfo(infoSignCount, strconv.FormatUint(uint64(newCount), 10))
	return nil
}
