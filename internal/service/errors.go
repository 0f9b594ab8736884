package service

import "errors"

// Internal authentication failure taxonomy. Handlers must collapse
// ErrIdentityNotFound, ErrNoPasswordSet and ErrInvalidCredentials into one
// generic denial externally; the distinctions exist for audit events only.
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrNoPasswordSet      = errors.New("no password set for identity")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProvisioning means OAuth provisioning failed for a non-benign
	// reason; the caller must deny the session rather than issue a token
	// for a partially provisioned identity.
	ErrProvisioning = errors.New("profile provisioning failed")

	ErrEmailTaken           = errors.New("email already registered")
	ErrBootstrapCompleted   = errors.New("administrator already bootstrapped")
	ErrBootstrapSecretWrong = errors.New("bootstrap secret mismatch")
)
