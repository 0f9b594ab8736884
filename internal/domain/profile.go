package domain

import "time"

// Role tags a profile's authorization level. A profile may carry RoleAdmin
// without having an Administrator record; the two authorities are checked
// independently.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DefaultPlanID is the free tier assigned to profiles provisioned on first
// OAuth login.
const DefaultPlanID = "free"

// Profile is the domain model for a regular account. PasswordHash is nil for
// OAuth-only accounts, which can never authenticate with a password.
type Profile struct {
	ID             string
	Email          string
	PasswordHash   *string
	DisplayName    string
	AvatarURL      string
	Role           Role
	PlanID         string
	HasSeenWelcome bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
