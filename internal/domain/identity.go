package domain

import "time"

// IdentitySource differentiates which store resolved the principal.
type IdentitySource string

const (
	IdentitySourceAdministrator IdentitySource = "ADMINISTRATOR"
	IdentitySourceProfile       IdentitySource = "PROFILE"
)

// Identity is the resolved principal, independent of which store produced
// it. It exists only for the duration of a login or refresh operation and is
// never persisted as its own row.
type Identity struct {
	SubjectID      string
	Email          string
	DisplayName    string
	AvatarURL      string
	Role           Role
	Source         IdentitySource
	PlanID         string
	HasSeenWelcome bool
}

// Snapshot projects the identity into the claim payload embedded in a
// session token. The password hash never appears here.
func (i *Identity) Snapshot() IdentitySnapshot {
	return IdentitySnapshot{
		Email:          i.Email,
		DisplayName:    i.DisplayName,
		AvatarURL:      i.AvatarURL,
		Role:           i.Role,
		Source:         i.Source,
		PlanID:         i.PlanID,
		HasSeenWelcome: i.HasSeenWelcome,
	}
}

// IdentityFromAdministrator normalizes an administrator row.
func IdentityFromAdministrator(admin *Administrator) *Identity {
	return &Identity{
		SubjectID:   admin.ID,
		Email:       admin.Email,
		DisplayName: admin.DisplayName,
		Role:        RoleAdmin,
		Source:      IdentitySourceAdministrator,
	}
}

// IdentityFromProfile normalizes a profile row, dropping the hash.
func IdentityFromProfile(profile *Profile) *Identity {
	return &Identity{
		SubjectID:      profile.ID,
		Email:          profile.Email,
		DisplayName:    profile.DisplayName,
		AvatarURL:      profile.AvatarURL,
		Role:           profile.Role,
		Source:         IdentitySourceProfile,
		PlanID:         profile.PlanID,
		HasSeenWelcome: profile.HasSeenWelcome,
	}
}

// IdentitySnapshot is the identity state embedded wholesale in session token
// claims. A refresh replaces the full snapshot; fields are never merged
// piecemeal.
type IdentitySnapshot struct {
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Role           Role           `json:"role"`
	Source         IdentitySource `json:"source"`
	PlanID         string         `json:"plan_id,omitempty"`
	HasSeenWelcome bool           `json:"has_seen_welcome"`
}

// ClientSession is the externally visible projection of a valid session
// token. DatastoreToken is empty for administrator sessions and when minting
// degraded; callers treat the absence as "no datastore access", not as an
// authentication failure.
type ClientSession struct {
	SubjectID      string         `json:"subject_id"`
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Role           Role           `json:"role"`
	Source         IdentitySource `json:"source"`
	PlanID         string         `json:"plan_id,omitempty"`
	HasSeenWelcome bool           `json:"has_seen_welcome"`
	ExpiresAt      time.Time      `json:"expires_at"`
	DatastoreToken string         `json:"datastore_token,omitempty"`
}
