package domain

import "time"

// Administrator models an operator account held in the dedicated
// administrator store. Administrators are created once through the gated
// bootstrap flow and are never granted datastore access tokens.
type Administrator struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
