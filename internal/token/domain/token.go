package domain

import (
	"fmt"
	"time"
)

// RolloutState is the enrollment position of a token. It only ever moves
// forward: AwaitingRegistration → AwaitingConfirmation → Enrolled. OTP-code
// types skip AwaitingConfirmation and enroll in a single step.
type RolloutState string

const (
	RolloutAwaitingRegistration RolloutState = "awaiting_registration"
	RolloutAwaitingConfirmation RolloutState = "awaiting_confirmation"
	RolloutEnrolled             RolloutState = "enrolled"
)

// rank orders rollout states; transitions must be non-decreasing.
var rank = map[RolloutState]int{
	RolloutAwaitingRegistration: 1,
	RolloutAwaitingConfirmation: 2,
	RolloutEnrolled:             3,
}

// Valid reports whether s is a known rollout state.
func (s RolloutState) Valid() bool { return rank[s] != 0 }

// Step returns the numeric enrollment step of the state (1-based).
func (s RolloutState) Step() int { return rank[s] }

// Token represents one credential instance bound to a user (stored in the
// tokens table). The serial is immutable and globally unique; OTPKey is the
// secret material and is only written by the owning token class during
// enrollment.
type Token struct {
	Serial      string
	Type        string
	OwnerID     string
	Realm       string
	OTPKey      []byte
	Description string
	Active      bool
	Locked      bool
	PINHash     string
	// Counter is the HOTP moving factor; unused by other types.
	Counter int64
	// Info holds non-secret per-token data (e.g. the registered U2F public
	// key, the SMS phone number).
	Info      map[string]string
	Rollout   RolloutState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Advance moves the rollout state forward to target. Moving backward is an
// error; re-asserting the current state is allowed (enrollment steps must be
// safe to retry).
func (t *Token) Advance(target RolloutState) error {
	if !target.Valid() {
		return fmt.Errorf("unknown rollout state %q", target)
	}
	if rank[target] < rank[t.Rollout] {
		return fmt.Errorf("rollout state may not move backward: %s → %s", t.Rollout, target)
	}
	t.Rollout = target
	return nil
}

// Enrolled reports whether the token completed enrollment and is usable for
// authentication.
func (t *Token) Enrolled() bool { return t.Rollout == RolloutEnrolled }

// Usable reports whether the token may authenticate: enrolled, active and not
// locked.
func (t *Token) Usable() bool { return t.Enrolled() && t.Active && !t.Locked }

// SetInfo records a non-secret key/value on the token.
func (t *Token) SetInfo(key, value string) {
	if t.Info == nil {
		t.Info = make(map[string]string)
	}
	t.Info[key] = value
}

// GetInfo returns the value for key, or "" when absent.
func (t *Token) GetInfo(key string) string { return t.Info[key] }

// EnrollInput is the typed input of one enrollment step.
type EnrollInput struct {
	// OTPKey is the shared secret for OTP-code types. Mutually exclusive with
	// GenKey.
	OTPKey []byte
	// GenKey requests server-side generation of the shared secret.
	GenKey bool
	// PIN is the optional knowledge factor stored as a bcrypt hash.
	PIN string
	// Description is a free-text label; hardware types may override it from
	// the attestation certificate.
	Description string
	// RegistrationData is the registration payload of a hardware credential
	// (second enrollment step): a base64url blob for u2f, a JSON document for
	// passkey.
	RegistrationData string
	// TransactionID references the enrollment challenge issued with the
	// registration request, for types that verify the device's response
	// against it (passkey).
	TransactionID string
	// Phone is the delivery address for the sms token type.
	Phone string
}
