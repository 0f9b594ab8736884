package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/config"
	"github.com/ledgerkit/identity-service/internal/domain"
	"github.com/ledgerkit/identity-service/internal/events"
	"github.com/ledgerkit/identity-service/internal/repository"
)

// ExternalIdentity is the provider-asserted identity handed to the OAuth
// resolver.
type ExternalIdentity struct {
	Subject     string
	Email       string
	DisplayName string
	AvatarURL   string
}

// IdentityService resolves principals across the two identity stores and
// orchestrates credential login, OAuth provisioning and administrator
// bootstrap. It is stateless; every call is an independent request-scoped
// operation and the store's conflict resolution is the only coordination.
type IdentityService struct {
	admins     repository.AdministratorRepository
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	bootstrap  config.BootstrapConfig
}

// Dependencies encapsulates repo requirements for the identity service.
type Dependencies struct {
	AdminRepo   repository.AdministratorRepository
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(cfg config.Config, deps Dependencies) *IdentityService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{
		admins:     deps.AdminRepo,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Session.BcryptCost,
		bootstrap:  cfg.Bootstrap,
	}
}

// Authenticate resolves a credential login against the administrator store
// first, then the profile store. An administrator email is exclusive: a
// wrong password on it fails outright and is never probed against the
// profile store. Profiles without a password hash (OAuth-only accounts)
// always fail, regardless of the supplied password.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	email = NormalizeEmail(email)

	admin, err := s.admins.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !auth.VerifyPassword(admin.PasswordHash, password) {
			s.publishDenied(ctx, email, "invalid_credentials_administrator", "password")
			return nil, ErrInvalidCredentials
		}
		identity := domain.IdentityFromAdministrator(admin)
		s.publishSucceeded(ctx, identity, "password")
		return identity, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.publishDenied(ctx, email, "not_found", "password")
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if profile.PasswordHash == nil {
		s.publishDenied(ctx, email, "no_password_set", "password")
		return nil, ErrNoPasswordSet
	}
	if !auth.VerifyPassword(*profile.PasswordHash, password) {
		s.publishDenied(ctx, email, "invalid_credentials", "password")
		return nil, ErrInvalidCredentials
	}

	identity := domain.IdentityFromProfile(profile)
	s.publishSucceeded(ctx, identity, "password")
	return identity, nil
}

// SignUp creates a password-bearing profile.
func (s *IdentityService) SignUp(ctx context.Context, email, password, displayName string) (*domain.Identity, error) {
	email = NormalizeEmail(email)

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		Email:        email,
		PasswordHash: &hash,
		DisplayName:  displayName,
		AvatarURL:    PlaceholderAvatarURL(displayName),
		Role:         domain.RoleUser,
		PlanID:       domain.DefaultPlanID,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, err
	}

	identity := domain.IdentityFromProfile(profile)
	s.publishSucceeded(ctx, identity, "signup")
	return identity, nil
}

// ResolveOrProvision resolves an external-provider login to a profile,
// provisioning one on first sight. An existing profile is returned
// unchanged; provider fields never silently overwrite stored ones. First
// provisioning goes through the store's upsert so that concurrent attempts
// for the same email converge on one row.
func (s *IdentityService) ResolveOrProvision(ctx context.Context, ext ExternalIdentity) (*domain.Identity, error) {
	email := NormalizeEmail(ext.Email)

	profile, err := s.profiles.GetByEmail(ctx, email)
	if err == nil {
		identity := domain.IdentityFromProfile(profile)
		s.publishSucceeded(ctx, identity, "oauth")
		return identity, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	avatar := ext.AvatarURL
	if avatar == "" {
		avatar = PlaceholderAvatarURL(ext.DisplayName)
	}
	candidate := &domain.Profile{
		Email:       email,
		DisplayName: ext.DisplayName,
		AvatarURL:   avatar,
		Role:        domain.RoleUser,
		PlanID:      domain.DefaultPlanID,
	}

	provisioned, err := s.profiles.Upsert(ctx, candidate)
	if err != nil {
		s.logger.Error("profile provisioning failed",
			zap.String("email", email),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventProfileProvisioned,
		SubjectID: provisioned.ID,
		Email:     provisioned.Email,
		Payload:   events.ProfileProvisionedPayload{PlanID: provisioned.PlanID},
	})

	identity := domain.IdentityFromProfile(provisioned)
	s.publishSucceeded(ctx, identity, "oauth")
	return identity, nil
}

// Resolve reloads the identity behind an existing session from its source
// store, for explicit session refreshes.
func (s *IdentityService) Resolve(ctx context.Context, source domain.IdentitySource, subjectID string) (*domain.Identity, error) {
	switch source {
	case domain.IdentitySourceAdministrator:
		admin, err := s.admins.GetByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrIdentityNotFound
			}
			return nil, err
		}
		return domain.IdentityFromAdministrator(admin), nil
	case domain.IdentitySourceProfile:
		profile, err := s.profiles.GetByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrIdentityNotFound
			}
			return nil, err
		}
		return domain.IdentityFromProfile(profile), nil
	default:
		return nil, ErrIdentityNotFound
	}
}

// UpdateProfileDisplay persists display edits to a profile and returns the
// refreshed identity. Administrator identities have no profile to edit.
func (s *IdentityService) UpdateProfileDisplay(ctx context.Context, subjectID string, displayName, avatarURL *string) (*domain.Identity, error) {
	profile, err := s.profiles.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if displayName != nil && *displayName != "" {
		profile.DisplayName = *displayName
	}
	if avatarURL != nil {
		profile.AvatarURL = *avatarURL
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}
	return domain.IdentityFromProfile(profile), nil
}

// AcknowledgeWelcome flips the welcome flag for a profile.
func (s *IdentityService) AcknowledgeWelcome(ctx context.Context, subjectID string) (*domain.Identity, error) {
	profile, err := s.profiles.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !profile.HasSeenWelcome {
		profile.HasSeenWelcome = true
		if err := s.profiles.Update(ctx, profile); err != nil {
			return nil, err
		}
	}
	return domain.IdentityFromProfile(profile), nil
}

// BootstrapAdministrator creates the first administrator, gated by the
// static shared secret. At most one administrator is ever created this way.
func (s *IdentityService) BootstrapAdministrator(ctx context.Context, secret, email, password, displayName string) (*domain.Administrator, error) {
	if !s.bootstrap.Enabled() {
		return nil, ErrBootstrapSecretWrong
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(s.bootstrap.Secret)) != 1 {
		return nil, ErrBootstrapSecretWrong
	}

	count, err := s.admins.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrBootstrapCompleted
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	admin := &domain.Administrator{
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:      events.EventAdministratorBootstrapped,
		SubjectID: admin.ID,
		Email:     admin.Email,
	})
	return admin, nil
}

// NotifyRefresh publishes a session refresh audit event.
func (s *IdentityService) NotifyRefresh(ctx context.Context, identity *domain.Identity) {
	s.publish(ctx, events.Event{
		Type:      events.EventSessionRefreshed,
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
		Payload:   events.SessionRefreshedPayload{Source: identity.Source},
	})
}

// NormalizeEmail trims and lowercases an email for store lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PlaceholderAvatarURL generates an avatar keyed by the first letter of the
// display name, for profiles provisioned without a provider picture.
func PlaceholderAvatarURL(displayName string) string {
	initial := "?"
	trimmed := strings.TrimSpace(displayName)
	if trimmed != "" {
		r, _ := utf8.DecodeRuneInString(trimmed)
		initial = strings.ToUpper(string(r))
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(initial)
}

func (s *IdentityService) publishSucceeded(ctx context.Context, identity *domain.Identity, method string) {
	s.publish(ctx, events.Event{
		Type:      events.EventLoginSucceeded,
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
		Payload: events.LoginSucceededPayload{
			Source: identity.Source,
			Role:   identity.Role,
			Method: method,
		},
	})
}

func (s *IdentityService) publishDenied(ctx context.Context, email, reason, method string) {
	s.publish(ctx, events.Event{
		Type:    events.EventLoginDenied,
		Email:   email,
		Payload: events.LoginDeniedPayload{Reason: reason, Method: method},
	})
}

func (s *IdentityService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
