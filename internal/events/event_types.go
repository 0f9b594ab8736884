package events

import (
	"time"

	"github.com/ledgerkit/identity-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLoginSucceeded            EventType = "login_succeeded"
	EventLoginDenied               EventType = "login_denied"
	EventProfileProvisioned        EventType = "profile_provisioned"
	EventSessionRefreshed          EventType = "session_refreshed"
	EventAdministratorBootstrapped EventType = "administrator_bootstrapped"
)

// Event represents an authentication domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Email     string      `json:"email,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	Source domain.IdentitySource `json:"source"`
	Role   domain.Role           `json:"role"`
	Method string                `json:"method"`
}

// LoginDeniedPayload carries the internal denial reason. This never reaches
// clients; the HTTP surface stays generic to prevent account enumeration.
type LoginDeniedPayload struct {
	Reason string `json:"reason"`
	Method string `json:"method"`
}

// ProfileProvisionedPayload payload.
type ProfileProvisionedPayload struct {
	PlanID string `json:"plan_id"`
}

// SessionRefreshedPayload payload.
type SessionRefreshedPayload struct {
	Source domain.IdentitySource `json:"source"`
}
