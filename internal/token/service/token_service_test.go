package service

import (
	"context"
	"encoding/base32"
	"strings"
	"testing"

	"github.com/pquerna/otp"
	otphotp "github.com/pquerna/otp/hotp"
	"golang.org/x/crypto/bcrypt"

	"tokenforge/engine/internal/challenge"
	chrepo "tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
	"tokenforge/engine/internal/token/hotp"
	tokenrepo "tokenforge/engine/internal/token/repository"
	"tokenforge/engine/internal/token/sms"
)

// fakeGateway records the delivered SMS code.
type fakeGateway struct {
	otp string
}

func (g *fakeGateway) SendOTP(phone, otp string) error {
	g.otp = otp
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeGateway, tokenrepo.Repository) {
	t.Helper()
	engine := challenge.NewEngine(chrepo.NewMemoryRepository(), config.New())
	base := token.NewBase(security.NewHasher(bcrypt.MinCost), engine)
	gw := &fakeGateway{}
	registry, err := token.NewRegistry(hotp.New(base), sms.New(base, gw))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	repo := tokenrepo.NewMemoryRepository()
	return NewService(registry, repo, engine, nil), gw, repo
}

func hotpCode(t *testing.T, key []byte, counter int64) string {
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

func TestEnrollCreatesToken(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	res, err := svc.Enroll(ctx, "", "hotp", domain.EnrollInput{GenKey: true, PIN: "1234"}, "alice", "corp")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !strings.HasPrefix(res.Serial, "OATH") {
		t.Errorf("serial = %q, want OATH prefix", res.Serial)
	}
	if res.Rollout != domain.RolloutEnrolled {
		t.Errorf("rollout = %q, want enrolled", res.Rollout)
	}

	tok, err := repo.GetBySerial(ctx, res.Serial)
	if err != nil || tok == nil {
		t.Fatalf("enrolled token not persisted: %v, %v", tok, err)
	}
	if tok.OwnerID != "alice" || tok.Realm != "corp" {
		t.Errorf("owner/realm = %q/%q", tok.OwnerID, tok.Realm)
	}
	if len(tok.OTPKey) == 0 {
		t.Error("no secret material persisted")
	}
}

func TestEnrollUnknownTypeAndSerial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Enroll(ctx, "", "push", domain.EnrollInput{}, "", ""); !errs.IsIntegrity(err) {
		t.Errorf("unknown type err = %v, want integrity error", err)
	}
	if _, err := svc.Enroll(ctx, "OATH404", "", domain.EnrollInput{}, "", ""); !errs.IsParameter(err) {
		t.Errorf("unknown serial err = %v, want parameter error", err)
	}
}

func TestEnrollFailedStepPersistsNothing(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	// hotp without key material fails during the class step.
	if _, err := svc.Enroll(ctx, "", "hotp", domain.EnrollInput{}, "alice", "corp"); err == nil {
		t.Fatal("enrollment without key material accepted")
	}
	toks, err := repo.ListByOwner(ctx, "alice", "corp")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(toks) != 0 {
		t.Errorf("failed enrollment persisted %d tokens", len(toks))
	}
}

func TestAuthenticateDirectCode(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()
	key := []byte("12345678901234567890")

	res, err := svc.Enroll(ctx, "", "hotp", domain.EnrollInput{OTPKey: key}, "alice", "corp")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	code := hotpCode(t, key, 0)
	auth, err := svc.Authenticate(ctx, res.Serial, code, nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !auth.Authenticated || auth.ChallengePending {
		t.Fatalf("auth = %+v, want direct success", auth)
	}

	// The counter advance was persisted, so the same code is dead.
	tok, _ := repo.GetBySerial(ctx, res.Serial)
	if tok.Counter != 1 {
		t.Errorf("persisted counter = %d, want 1", tok.Counter)
	}
	auth, err = svc.Authenticate(ctx, res.Serial, code, nil)
	if err != nil {
		t.Fatalf("Authenticate replay: %v", err)
	}
	if auth.Authenticated {
		t.Error("replayed code authenticated")
	}
}

func TestAuthenticateChallengeFlow(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	key := []byte("12345678901234567890")

	res, err := svc.Enroll(ctx, "", "hotp", domain.EnrollInput{OTPKey: key, PIN: "geheim"}, "alice", "corp")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	auth, err := svc.Authenticate(ctx, res.Serial, "geheim", map[string]string{"trigger_challenge": "1"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !auth.ChallengePending || auth.Authenticated {
		t.Fatalf("auth = %+v, want pending challenge", auth)
	}
	if auth.TransactionID == "" {
		t.Fatal("no transaction id for pending challenge")
	}

	if err := svc.RespondChallenge(ctx, auth.TransactionID, token.Response{"otp": hotpCode(t, key, 0)}); err != nil {
		t.Fatalf("RespondChallenge: %v", err)
	}
	// Consume-once: the transaction is dead now.
	err = svc.RespondChallenge(ctx, auth.TransactionID, token.Response{"otp": hotpCode(t, key, 1)})
	if err != errs.ErrChallengeFailed {
		t.Errorf("second respond err = %v, want ErrChallengeFailed", err)
	}
}

func TestAuthenticateSMSFlow(t *testing.T) {
	svc, gw, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Enroll(ctx, "", "sms", domain.EnrollInput{Phone: "491701234567"}, "bob", "corp")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}

	// sms is challenge-only: an empty password on a PIN-less token triggers
	// delivery.
	auth, err := svc.Authenticate(ctx, res.Serial, "", nil)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !auth.ChallengePending {
		t.Fatalf("auth = %+v, want pending challenge", auth)
	}
	if gw.otp == "" {
		t.Fatal("no code delivered")
	}
	if err := svc.RespondChallenge(ctx, auth.TransactionID, token.Response{"otp": gw.otp}); err != nil {
		t.Fatalf("RespondChallenge: %v", err)
	}
}

func TestAuthenticateRejectsUnusableToken(t *testing.T) {
	svc, _, repo := newTestService(t)
	ctx := context.Background()

	res, err := svc.Enroll(ctx, "", "hotp", domain.EnrollInput{GenKey: true}, "alice", "corp")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	tok, _ := repo.GetBySerial(ctx, res.Serial)
	tok.Locked = true
	if err := repo.Update(ctx, tok); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := svc.Authenticate(ctx, res.Serial, "123456", nil); err != ErrTokenNotUsable {
		t.Errorf("locked token err = %v, want ErrTokenNotUsable", err)
	}
}

func TestRespondChallengeUnknownTransaction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.RespondChallenge(context.Background(), "no-such-transaction", token.Response{"otp": "123456"})
	if err != errs.ErrChallengeFailed {
		t.Errorf("err = %v, want ErrChallengeFailed", err)
	}
}

func TestClassInfo(t *testing.T) {
	svc, _, _ := newTestService(t)
	v, err := svc.ClassInfo("hotp", "type", nil)
	if err != nil {
		t.Fatalf("ClassInfo: %v", err)
	}
	if v != "hotp" {
		t.Errorf("ClassInfo(hotp, type) = %v", v)
	}
	if _, err := svc.ClassInfo("push", "", nil); !errs.IsIntegrity(err) {
		t.Errorf("unknown type err = %v, want integrity error", err)
	}
}
