package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerkit/identity-service/internal/events"
	"github.com/ledgerkit/identity-service/internal/observability"
)

// AuditService records authentication events to the structured log and the
// in-memory metrics. This channel carries the internal failure taxonomy
// that the HTTP surface deliberately hides.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to authentication events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLoginSucceeded)
	a.dispatcher.Subscribe(events.EventLoginDenied, a.handleLoginDenied)
	a.dispatcher.Subscribe(events.EventProfileProvisioned, a.handleProfileProvisioned)
	a.dispatcher.Subscribe(events.EventSessionRefreshed, a.handleSessionRefreshed)
	a.dispatcher.Subscribe(events.EventAdministratorBootstrapped, a.handleAdministratorBootstrapped)
}

func (a *AuditService) handleLoginSucceeded(_ context.Context, event events.Event) error {
	a.metrics.RecordAuthOutcome("login_succeeded")
	a.logger.Info("LoginSucceeded",
		zap.String("subject_id", event.SubjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleLoginDenied(_ context.Context, event events.Event) error {
	a.metrics.RecordAuthOutcome("login_denied")
	// the denial reason is internal-only; it must never reach a client
	a.logger.Info("LoginDenied",
		zap.String("email", event.Email),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleProfileProvisioned(_ context.Context, event events.Event) error {
	a.metrics.RecordAuthOutcome("profile_provisioned")
	a.logger.Info("ProfileProvisioned",
		zap.String("subject_id", event.SubjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleSessionRefreshed(_ context.Context, event events.Event) error {
	a.metrics.RecordAuthOutcome("session_refreshed")
	a.logger.Info("SessionRefreshed",
		zap.String("subject_id", event.SubjectID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AuditService) handleAdministratorBootstrapped(_ context.Context, event events.Event) error {
	a.metrics.RecordAuthOutcome("administrator_bootstrapped")
	a.logger.Info("AdministratorBootstrapped",
		zap.String("subject_id", event.SubjectID))
	return nil
}
