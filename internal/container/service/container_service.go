// Package service implements the administrative container operations:
// create, add/remove token, describe, delete, and template management.
package service

import (
	"context"
	"fmt"
	"time"

	"tokenforge/engine/internal/audit"
	"tokenforge/engine/internal/container"
	"tokenforge/engine/internal/container/domain"
	"tokenforge/engine/internal/container/repository"
	"tokenforge/engine/internal/errs"
	"tokenforge/engine/internal/security"
	tokendomain "tokenforge/engine/internal/token/domain"
	tokenservice "tokenforge/engine/internal/token/service"
)

// TokenRepo is the minimal token repository needed by the container service.
type TokenRepo interface {
	GetBySerial(ctx context.Context, serial string) (*tokendomain.Token, error)
}

// TokenEnroller enrolls new tokens during template provisioning. Implemented
// by the token service.
type TokenEnroller interface {
	Enroll(ctx context.Context, serial, typeTag string, in tokendomain.EnrollInput, userID, realm string) (*tokenservice.EnrollResult, error)
}

// Service validates and applies container mutations. The class whitelist and
// count bound are re-checked on every mutation, not only at creation.
type Service struct {
	registry  *container.Registry
	repo      repository.Repository
	templates repository.TemplateRepository
	tokenRepo TokenRepo
	enroller  TokenEnroller
	auditLog  audit.AuditLogger
}

// NewService returns a container service with the given dependencies.
// auditLog may be nil; enroller may be nil when template provisioning is not
// needed.
func NewService(registry *container.Registry, repo repository.Repository, templates repository.TemplateRepository,
	tokenRepo TokenRepo, enroller TokenEnroller, auditLog audit.AuditLogger) *Service {
	return &Service{
		registry:  registry,
		repo:      repo,
		templates: templates,
		tokenRepo: tokenRepo,
		enroller:  enroller,
		auditLog:  auditLog,
	}
}

// Create makes a new container of the given type with a type-prefixed serial.
func (s *Service) Create(ctx context.Context, typeTag, description, ownerID, realm string) (*domain.Container, error) {
	class, err := s.registry.Get(typeTag)
	if err != nil {
		return nil, err
	}
	serial, err := security.NewSerial(class.Prefix())
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	c := &domain.Container{
		Serial:      serial,
		Type:        typeTag,
		Description: description,
		OwnerID:     ownerID,
		Realm:       realm,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log(ctx, realm, ownerID, "container.create", serial, typeTag)
	return c, nil
}

// AddToken adds a token to the container after validating the class whitelist
// and the count bound. A violating add fails and leaves membership unchanged.
func (s *Service) AddToken(ctx context.Context, containerSerial, tokenSerial string) error {
	c, class, err := s.load(ctx, containerSerial)
	if err != nil {
		return err
	}
	tok, err := s.tokenRepo.GetBySerial(ctx, tokenSerial)
	if err != nil {
		return err
	}
	if tok == nil {
		return errs.Integrity("unknown token " + tokenSerial)
	}
	if !container.Supports(class, tok.Type) {
		return errs.Integrity(fmt.Sprintf("container type %q does not support token type %q", c.Type, tok.Type))
	}
	if max := class.MaxTokens(); max > 0 && len(c.TokenSerials) >= max {
		return errs.Integrity(fmt.Sprintf("container %s is full (%d tokens)", c.Serial, max))
	}
	if c.Holds(tokenSerial) {
		return errs.Integrity("token " + tokenSerial + " already in container " + c.Serial)
	}
	if err := s.repo.AddToken(ctx, containerSerial, tokenSerial); err != nil {
		return err
	}
	s.log(ctx, c.Realm, c.OwnerID, "container.add_token", containerSerial, tokenSerial)
	return nil
}

// RemoveToken removes a token from the container. Removing a non-member is a
// no-op.
func (s *Service) RemoveToken(ctx context.Context, containerSerial, tokenSerial string) error {
	c, _, err := s.load(ctx, containerSerial)
	if err != nil {
		return err
	}
	if err := s.repo.RemoveToken(ctx, containerSerial, tokenSerial); err != nil {
		return err
	}
	s.log(ctx, c.Realm, c.OwnerID, "container.remove_token", containerSerial, tokenSerial)
	return nil
}

// Description is the caller-facing view of a container: the record plus the
// class identity and policy schema.
type Description struct {
	Serial           string
	Type             string
	Description      string
	ClassDescription string
	TokenSerials     []string
	PolicyInfo       map[string]container.PolicyItem
}

// Describe returns the container together with its class policy information.
func (s *Service) Describe(ctx context.Context, serial string) (*Description, error) {
	c, class, err := s.load(ctx, serial)
	if err != nil {
		return nil, err
	}
	return &Description{
		Serial:           c.Serial,
		Type:             c.Type,
		Description:      c.Description,
		ClassDescription: class.Description(),
		TokenSerials:     c.TokenSerials,
		PolicyInfo:       class.PolicyInfo(),
	}, nil
}

// Delete destroys the container. Member tokens are untouched.
func (s *Service) Delete(ctx context.Context, serial string) error {
	c, _, err := s.load(ctx, serial)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, serial); err != nil {
		return err
	}
	s.log(ctx, c.Realm, c.OwnerID, "container.delete", serial, c.Type)
	return nil
}

// CreateTemplate validates and stores a provisioning template for the given
// container type. When isDefault is set, any previous default of that type
// loses the flag.
func (s *Service) CreateTemplate(ctx context.Context, name, typeTag string, tokens []domain.TokenTemplate,
	options map[string]string, isDefault bool) (*domain.Template, error) {
	if name == "" {
		return nil, errs.Parameter("template name is required")
	}
	class, err := s.registry.Get(typeTag)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	tpl := &domain.Template{
		Name:          name,
		ContainerType: typeTag,
		Tokens:        tokens,
		Options:       options,
		Default:       isDefault,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := container.ValidateTemplate(class, tpl); err != nil {
		return nil, err
	}
	if isDefault {
		if err := s.templates.ClearDefault(ctx, typeTag); err != nil {
			return nil, err
		}
	}
	if err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	s.log(ctx, "", "", "container.template_create", name, typeTag)
	return tpl, nil
}

// GetTemplate returns the template by name; unknown names are an error.
func (s *Service) GetTemplate(ctx context.Context, name string) (*domain.Template, error) {
	tpl, err := s.templates.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, errs.Integrity("unknown template " + name)
	}
	return tpl, nil
}

// ListTemplates returns the templates for a container type; an empty typeTag
// lists all.
func (s *Service) ListTemplates(ctx context.Context, typeTag string) ([]*domain.Template, error) {
	return s.templates.List(ctx, typeTag)
}

// DeleteTemplate removes the template. Containers created from it are
// untouched.
func (s *Service) DeleteTemplate(ctx context.Context, name string) error {
	tpl, err := s.GetTemplate(ctx, name)
	if err != nil {
		return err
	}
	if err := s.templates.Delete(ctx, name); err != nil {
		return err
	}
	s.log(ctx, "", "", "container.template_delete", name, tpl.ContainerType)
	return nil
}

// CreateFromTemplate creates a container of the template's type, enrolls the
// template's tokens for the owner and adds them to it. Returns the container
// and the serials of the enrolled tokens. A failing enrollment aborts
// provisioning; the container and the tokens enrolled so far remain for the
// caller to inspect or delete.
func (s *Service) CreateFromTemplate(ctx context.Context, templateName, description, ownerID, realm string) (*domain.Container, []string, error) {
	if s.enroller == nil {
		return nil, nil, errs.Integrity("no token enroller configured")
	}
	tpl, err := s.GetTemplate(ctx, templateName)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.Create(ctx, tpl.ContainerType, description, ownerID, realm)
	if err != nil {
		return nil, nil, err
	}
	var serials []string
	for _, tt := range tpl.Tokens {
		res, err := s.enroller.Enroll(ctx, "", tt.Type, tokendomain.EnrollInput{
			GenKey:      tt.GenKey,
			Description: tt.Description,
		}, ownerID, realm)
		if err != nil {
			return c, serials, err
		}
		if err := s.AddToken(ctx, c.Serial, res.Serial); err != nil {
			return c, serials, err
		}
		serials = append(serials, res.Serial)
	}
	s.log(ctx, realm, ownerID, "container.create_from_template", c.Serial, templateName)
	return c, serials, nil
}

func (s *Service) load(ctx context.Context, serial string) (*domain.Container, container.Class, error) {
	c, err := s.repo.GetBySerial(ctx, serial)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, errs.Integrity("unknown container " + serial)
	}
	class, err := s.registry.Get(c.Type)
	if err != nil {
		return nil, nil, err
	}
	return c, class, nil
}

func (s *Service) log(ctx context.Context, realm, userID, action, resource, metadata string) {
	if s.auditLog != nil {
		s.auditLog.LogEvent(ctx, realm, userID, action, resource, metadata)
	}
}
