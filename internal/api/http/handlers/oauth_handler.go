package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ledgerkit/identity-service/internal/api/dto"
	"github.com/ledgerkit/identity-service/internal/auth"
	"github.com/ledgerkit/identity-service/internal/oauth"
	"github.com/ledgerkit/identity-service/internal/service"
	apperrors "github.com/ledgerkit/identity-service/pkg/util"
)

// OAuthHandler drives the Google login flow: consent redirect out,
// provider callback in.
type OAuthHandler struct {
	provider     *oauth.GoogleProvider
	states       *oauth.StateStore
	identities   *service.IdentityService
	sessions     *auth.SessionManager
	materializer *auth.Materializer
	logger       *zap.Logger
}

// NewOAuthHandler constructs handler.
func NewOAuthHandler(provider *oauth.GoogleProvider, states *oauth.StateStore, identities *service.IdentityService, sessions *auth.SessionManager, materializer *auth.Materializer, logger *zap.Logger) *OAuthHandler {
	return &OAuthHandler{
		provider:     provider,
		states:       states,
		identities:   identities,
		sessions:     sessions,
		materializer: materializer,
		logger:       logger,
	}
}

// Redirect handles GET /auth/oauth/google.
func (h *OAuthHandler) Redirect(c *fiber.Ctx) error {
	state, err := h.states.Issue(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Redirect(h.provider.AuthCodeURL(state), http.StatusFound)
}

// Callback handles GET /auth/oauth/google/callback. A provisioning failure
// denies the session outright; a token is never issued for a partially
// provisioned identity.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" {
		return fiber.NewError(http.StatusBadRequest, "missing authorization code")
	}

	if err := h.states.Consume(c.UserContext(), state); err != nil {
		if errors.Is(err, oauth.ErrStateInvalid) {
			return apperrors.NewUnauthorized("oauth state invalid")
		}
		return apperrors.MapError(err)
	}

	info, err := h.provider.Exchange(c.UserContext(), code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", zap.Error(err))
		return apperrors.NewUnauthorized("oauth exchange failed")
	}

	identity, err := h.identities.ResolveOrProvision(c.UserContext(), service.ExternalIdentity{
		Subject:     info.Subject,
		Email:       info.Email,
		DisplayName: info.Name,
		AvatarURL:   info.Picture,
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	token, expiresAt, err := h.sessions.Issue(identity)
	if err != nil {
		return apperrors.MapError(err)
	}
	claims, err := h.sessions.Parse(token)
	if err != nil {
		return apperrors.MapError(err)
	}
	session := h.materializer.Materialize(claims)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"auth":    dto.AuthResponse{Token: token, ExpiresAt: expiresAt},
			"session": session,
		},
	})
}
