package totp

import (
	"context"
	"encoding/base32"
	"testing"
	"time"

	"github.com/pquerna/otp"
	otptotp "github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"tokenforge/engine/internal/challenge"
	chrepo "tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

func newTestClass(t *testing.T, now time.Time) *Class {
	t.Helper()
	engine := challenge.NewEngine(chrepo.NewMemoryRepository(), config.New())
	c := New(token.NewBase(security.NewHasher(bcrypt.MinCost), engine))
	c.nowF = func() time.Time { return now }
	return c
}

func passcode(t *testing.T, key []byte, at time.Time) string {
	t.Helper()
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key)
	code, err := otptotp.GenerateCodeCustom(secret, at, otptotp.ValidateOpts{
		Period: period, Skew: skew, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}

func TestUpdateGeneratesKey(t *testing.T) {
	c := newTestClass(t, time.Now())
	tok := &domain.Token{Serial: "TOTP0001", Type: "totp", Rollout: domain.RolloutAwaitingRegistration}

	if err := c.Update(context.Background(), tok, domain.EnrollInput{GenKey: true}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(tok.OTPKey) != 20 {
		t.Errorf("generated key length = %d, want 20", len(tok.OTPKey))
	}
	if tok.Rollout != domain.RolloutEnrolled || !tok.Active {
		t.Errorf("token not usable after enrollment: rollout=%q active=%v", tok.Rollout, tok.Active)
	}
}

func TestCheckOTP(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	key := []byte("12345678901234567890")
	ctx := context.Background()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"current step", now, true},
		{"one step behind", now.Add(-period * time.Second), true},
		{"one step ahead", now.Add(period * time.Second), true},
		{"three steps behind", now.Add(-3 * period * time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClass(t, now)
			tok := &domain.Token{Serial: "TOTP0002", Type: "totp", OTPKey: key}
			ok, err := c.CheckOTP(ctx, tok, passcode(t, key, tc.at))
			if err != nil {
				t.Fatalf("CheckOTP: %v", err)
			}
			if ok != tc.want {
				t.Errorf("CheckOTP = %v, want %v", ok, tc.want)
			}
		})
	}
}

func TestCheckOTPRejectsReplay(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	c := newTestClass(t, now)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "TOTP0004", Type: "totp", OTPKey: key}
	ctx := context.Background()

	code := passcode(t, key, now)
	ok, err := c.CheckOTP(ctx, tok, code)
	if err != nil || !ok {
		t.Fatalf("current code rejected: %v, %v", ok, err)
	}
	if tok.Counter == 0 {
		t.Fatal("matched time step not recorded")
	}

	// The same code is dead for the rest of its window.
	ok, err = c.CheckOTP(ctx, tok, code)
	if err != nil {
		t.Fatalf("CheckOTP replay: %v", err)
	}
	if ok {
		t.Error("replayed code validated within the same window")
	}

	// A code from an earlier step is dead too: the step only moves forward.
	ok, _ = c.CheckOTP(ctx, tok, passcode(t, key, now.Add(-period*time.Second)))
	if ok {
		t.Error("code before the last matched step validated")
	}

	// The next step's code still works.
	later := now.Add(period * time.Second)
	c.nowF = func() time.Time { return later }
	ok, err = c.CheckOTP(ctx, tok, passcode(t, key, later))
	if err != nil || !ok {
		t.Fatalf("next-step code rejected: %v, %v", ok, err)
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	c := newTestClass(t, now)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "TOTP0003", Type: "totp", OTPKey: key}
	ctx := context.Background()

	res, err := c.CreateChallenge(ctx, tok, "", nil)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	resp := token.Response{"otp": passcode(t, key, now)}
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, resp); err != nil {
		t.Fatalf("CheckChallengeResponse: %v", err)
	}
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, resp); err == nil {
		t.Error("consumed challenge accepted a second response")
	}
}
