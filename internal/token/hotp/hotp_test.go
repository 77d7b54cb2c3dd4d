package hotp

import (
	"context"
	"encoding/base32"
	"testing"

	"github.com/pquerna/otp"
	otphotp "github.com/pquerna/otp/hotp"
	"golang.org/x/crypto/bcrypt"

	"tokenforge/engine/internal/challenge"
	chrepo "tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
)

func newTestClass(t *testing.T) *Class {
	t.Helper()
	engine := challenge.NewEngine(chrepo.NewMemoryRepository(), config.New())
	return New(token.NewBase(security.NewHasher(bcrypt.MinCost), engine))
}

func passcode(t *testing.T, key []byte, counter int64) string {
	t.Helper()
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key)
	code, err := otphotp.GenerateCodeCustom(secret, uint64(counter), otphotp.ValidateOpts{
		Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		t.Fatalf("GenerateCodeCustom: %v", err)
	}
	return code
}

func TestUpdateGeneratesKey(t *testing.T) {
	c := newTestClass(t)
	tok := &domain.Token{Serial: "OATH0001", Type: "hotp", Rollout: domain.RolloutAwaitingRegistration}

	if err := c.Update(context.Background(), tok, domain.EnrollInput{GenKey: true, PIN: "1234"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(tok.OTPKey) != 20 {
		t.Errorf("generated key length = %d, want 20", len(tok.OTPKey))
	}
	if tok.Rollout != domain.RolloutEnrolled {
		t.Errorf("rollout = %q, want enrolled", tok.Rollout)
	}
	if !tok.Active {
		t.Error("token should be active after enrollment")
	}
	if !c.CheckPIN(tok, "1234") {
		t.Error("enrolled PIN does not verify")
	}
}

func TestUpdateRequiresKeyMaterial(t *testing.T) {
	c := newTestClass(t)
	tok := &domain.Token{Serial: "OATH0002", Type: "hotp", Rollout: domain.RolloutAwaitingRegistration}

	if err := c.Update(context.Background(), tok, domain.EnrollInput{}); err == nil {
		t.Fatal("Update without otpkey or genkey should fail")
	}
	if tok.Rollout != domain.RolloutAwaitingRegistration {
		t.Errorf("failed update moved rollout to %q", tok.Rollout)
	}
}

func TestCheckOTPAdvancesCounter(t *testing.T) {
	c := newTestClass(t)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "OATH0003", Type: "hotp", OTPKey: key, Counter: 0}

	code := passcode(t, key, 0)
	ok, err := c.CheckOTP(context.Background(), tok, code)
	if err != nil || !ok {
		t.Fatalf("CheckOTP(counter 0) = %v, %v; want match", ok, err)
	}
	if tok.Counter != 1 {
		t.Errorf("counter = %d, want 1", tok.Counter)
	}

	// The same code must never validate twice.
	ok, err = c.CheckOTP(context.Background(), tok, code)
	if err != nil {
		t.Fatalf("CheckOTP replay: %v", err)
	}
	if ok {
		t.Error("replayed code validated")
	}
}

func TestCheckOTPLookAhead(t *testing.T) {
	c := newTestClass(t)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "OATH0004", Type: "hotp", OTPKey: key, Counter: 0}

	// The client pressed the button a few times without authenticating.
	ok, err := c.CheckOTP(context.Background(), tok, passcode(t, key, 7))
	if err != nil || !ok {
		t.Fatalf("CheckOTP(counter 7) = %v, %v; want match within window", ok, err)
	}
	if tok.Counter != 8 {
		t.Errorf("counter = %d, want 8", tok.Counter)
	}

	// Skipped codes before the match are burned.
	ok, _ = c.CheckOTP(context.Background(), tok, passcode(t, key, 3))
	if ok {
		t.Error("code before the matched counter validated")
	}

	// Beyond the window the code is rejected.
	tok2 := &domain.Token{Serial: "OATH0005", Type: "hotp", OTPKey: key, Counter: 0}
	ok, _ = c.CheckOTP(context.Background(), tok2, passcode(t, key, 50))
	if ok {
		t.Error("code far beyond the look-ahead window validated")
	}
}

func TestIsChallengeRequest(t *testing.T) {
	c := newTestClass(t)
	tok := &domain.Token{Serial: "OATH0006", Type: "hotp"}
	if err := c.Update(context.Background(), tok, domain.EnrollInput{GenKey: true, PIN: "geheim"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ctx := context.Background()
	if c.IsChallengeRequest(ctx, tok, "geheim", nil) {
		t.Error("challenge triggered without trigger_challenge option")
	}
	if !c.IsChallengeRequest(ctx, tok, "geheim", map[string]string{"trigger_challenge": "1"}) {
		t.Error("challenge not triggered with matching PIN")
	}
	if c.IsChallengeRequest(ctx, tok, "wrong", map[string]string{"trigger_challenge": "1"}) {
		t.Error("challenge triggered with wrong PIN")
	}
}

func TestChallengeRoundTrip(t *testing.T) {
	c := newTestClass(t)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "OATH0007", Type: "hotp", OTPKey: key, Counter: 0}
	ctx := context.Background()

	res, err := c.CreateChallenge(ctx, tok, "", nil)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if res.TransactionID == "" {
		t.Fatal("challenge has no transaction id")
	}

	resp := token.Response{"otp": passcode(t, key, 0)}
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, resp); err != nil {
		t.Fatalf("CheckChallengeResponse: %v", err)
	}
	if tok.Counter != 1 {
		t.Errorf("counter = %d after challenge response, want 1", tok.Counter)
	}

	// The challenge was consumed; a second answer fails.
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, token.Response{"otp": passcode(t, key, 1)}); err == nil {
		t.Error("consumed challenge accepted a second response")
	}
}

func TestChallengeWrongCodeLeavesChallengeOpen(t *testing.T) {
	c := newTestClass(t)
	key := []byte("12345678901234567890")
	tok := &domain.Token{Serial: "OATH0008", Type: "hotp", OTPKey: key, Counter: 0}
	ctx := context.Background()

	res, err := c.CreateChallenge(ctx, tok, "", nil)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, token.Response{"otp": "000000"}); err == nil {
		t.Fatal("wrong code accepted")
	}
	// A wrong answer does not burn the challenge; the right one still wins.
	if err := c.CheckChallengeResponse(ctx, tok, res.TransactionID, token.Response{"otp": passcode(t, key, 0)}); err != nil {
		t.Fatalf("retry after wrong code: %v", err)
	}
}
