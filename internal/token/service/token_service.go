// Package service implements the public token operations: enrollment,
// authentication and challenge response.
package service

import (
	"context"
	"errors"
	"time"

	"tokenforge/engine/internal/audit"
	"tokenforge/engine/internal/challenge"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
	"tokenforge/engine/internal/token/repository"
)

// Sentinel errors for the token service.
var (
	// ErrTokenNotUsable is returned when authentication is attempted against
	// a token that is locked, inactive or still mid-enrollment.
	ErrTokenNotUsable = errors.New("token is not usable for authentication")
)

// Service drives token enrollment and authentication. All type-specific
// behavior is dispatched through the injected class registry.
type Service struct {
	registry *token.Registry
	repo     repository.Repository
	engine   *challenge.Engine
	auditLog audit.AuditLogger
}

// NewService returns a token service with the given dependencies. auditLog
// may be nil.
func NewService(registry *token.Registry, repo repository.Repository, engine *challenge.Engine, auditLog audit.AuditLogger) *Service {
	return &Service{registry: registry, repo: repo, engine: engine, auditLog: auditLog}
}

// EnrollResult is the outcome of one enrollment step.
type EnrollResult struct {
	Serial  string
	Rollout domain.RolloutState
	// Detail is what the enrolling party needs at the current step, e.g. a
	// registration request. Never contains secret material.
	Detail map[string]any
}

// Enroll applies one enrollment step. With an empty serial a new token of
// typeTag is created; with a serial the existing token is advanced. A failing
// step leaves the stored record in its pre-call state.
func (s *Service) Enroll(ctx context.Context, serial, typeTag string, in domain.EnrollInput, userID, realm string) (*EnrollResult, error) {
	var (
		tok      *domain.Token
		creating bool
	)
	if serial == "" {
		class, err := s.registry.Get(typeTag)
		if err != nil {
			return nil, err
		}
		serial, err = security.NewSerial(class.Prefix())
		if err != nil {
			return nil, err
		}
		now := time.Now().UTC()
		tok = &domain.Token{
			Serial:    serial,
			Type:      typeTag,
			OwnerID:   userID,
			Realm:     realm,
			Rollout:   domain.RolloutAwaitingRegistration,
			CreatedAt: now,
			UpdatedAt: now,
		}
		creating = true
	} else {
		var err error
		tok, err = s.repo.GetBySerial(ctx, serial)
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, errs.Parameter("unknown serial " + serial)
		}
		if typeTag != "" && typeTag != tok.Type {
			return nil, errs.Parameter("serial " + serial + " is of type " + tok.Type + ", not " + typeTag)
		}
	}

	class, err := s.registry.Get(tok.Type)
	if err != nil {
		return nil, err
	}
	// The class mutates only the in-memory record; nothing is persisted until
	// the step succeeded.
	if err := class.Update(ctx, tok, in); err != nil {
		return nil, err
	}
	if creating {
		err = s.repo.Create(ctx, tok)
	} else {
		err = s.repo.Update(ctx, tok)
	}
	if err != nil {
		return nil, err
	}
	detail, err := class.InitDetail(ctx, tok, userID)
	if err != nil {
		return nil, err
	}
	s.log(ctx, tok.Realm, userID, "token.enroll", tok.Serial, string(tok.Rollout))
	return &EnrollResult{Serial: tok.Serial, Rollout: tok.Rollout, Detail: detail}, nil
}

// AuthResult is the outcome of an authentication attempt.
type AuthResult struct {
	// Authenticated is true only when a direct check succeeded. A pending
	// challenge always reports false.
	Authenticated bool
	// ChallengePending is true when a challenge was issued; answer it via
	// RespondChallenge with the transaction id.
	ChallengePending bool
	Message          string
	TransactionID    string
	Attributes       map[string]any
}

// Authenticate evaluates a presented value against the token: either it
// triggers a challenge (challenge-response types, or on request) or it is
// checked directly as a single-shot code.
func (s *Service) Authenticate(ctx context.Context, serial, presented string, opts map[string]string) (*AuthResult, error) {
	tok, err := s.repo.GetBySerial(ctx, serial)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, errs.Parameter("unknown serial " + serial)
	}
	if !tok.Usable() {
		return nil, ErrTokenNotUsable
	}
	class, err := s.registry.Get(tok.Type)
	if err != nil {
		return nil, err
	}

	if class.IsChallengeRequest(ctx, tok, presented, opts) {
		res, err := class.CreateChallenge(ctx, tok, "", opts)
		if err != nil {
			return nil, err
		}
		s.log(ctx, tok.Realm, tok.OwnerID, "token.challenge_created", tok.Serial, res.TransactionID)
		return &AuthResult{
			ChallengePending: true,
			Message:          res.Message,
			TransactionID:    res.TransactionID,
			Attributes:       res.Attributes,
		}, nil
	}

	ok, err := class.CheckOTP(ctx, tok, presented)
	if err != nil {
		return nil, err
	}
	if ok {
		// Direct checks may advance per-token state (OTP counters).
		if err := s.repo.Update(ctx, tok); err != nil {
			return nil, err
		}
	}
	s.log(ctx, tok.Realm, tok.OwnerID, "token.authenticate", tok.Serial, outcome(ok))
	return &AuthResult{Authenticated: ok}, nil
}

// RespondChallenge verifies a challenge response for the transaction id. The
// owning token is resolved from the stored challenge. Returns nil on success;
// errs.ErrChallengeFailed on wrong, expired, consumed or unknown challenges.
func (s *Service) RespondChallenge(ctx context.Context, transactionID string, resp token.Response) error {
	ch, err := s.engine.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	if ch == nil {
		return errs.ErrChallengeFailed
	}
	tok, err := s.repo.GetBySerial(ctx, ch.Serial)
	if err != nil {
		return err
	}
	if tok == nil {
		return errs.ErrChallengeFailed
	}
	if !tok.Usable() {
		return ErrTokenNotUsable
	}
	class, err := s.registry.Get(tok.Type)
	if err != nil {
		return err
	}
	if err := class.CheckChallengeResponse(ctx, tok, transactionID, resp); err != nil {
		s.log(ctx, tok.Realm, tok.OwnerID, "challenge.respond", tok.Serial, outcome(false))
		return err
	}
	// The check may advance per-token state (OTP and signature counters).
	if err := s.repo.Update(ctx, tok); err != nil {
		return err
	}
	s.log(ctx, tok.Realm, tok.OwnerID, "challenge.respond", tok.Serial, outcome(true))
	return nil
}

// ClassInfo exposes the static schema of a registered token type.
func (s *Service) ClassInfo(typeTag, key string, def any) (any, error) {
	class, err := s.registry.Get(typeTag)
	if err != nil {
		return nil, err
	}
	return class.Info(key, def), nil
}

func (s *Service) log(ctx context.Context, realm, userID, action, resource, metadata string) {
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, realm, userID, action, resource, metadata)
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
