package auth

import (
	"go.uber.org/zap"

	"github.com/ledgerkit/identity-service/internal/domain"
)

// Materializer projects validated session claims into the client-visible
// session shape, attaching a freshly minted datastore token on every call.
type Materializer struct {
	datastore *DatastoreTokenMinter
	logger    *zap.Logger
}

// NewMaterializer builds a materializer.
func NewMaterializer(datastore *DatastoreTokenMinter, logger *zap.Logger) *Materializer {
	return &Materializer{datastore: datastore, logger: logger}
}

// Materialize is a pure projection of the claims plus a datastore mint. A
// mint failure degrades to a session without datastore access rather than
// failing materialization: losing datastore access must not lock the
// principal out of the application shell.
func (m *Materializer) Materialize(claims *SessionClaims) domain.ClientSession {
	session := domain.ClientSession{
		SubjectID:      claims.Subject,
		Email:          claims.Identity.Email,
		DisplayName:    claims.Identity.DisplayName,
		AvatarURL:      claims.Identity.AvatarURL,
		Role:           claims.Identity.Role,
		Source:         claims.Identity.Source,
		PlanID:         claims.Identity.PlanID,
		HasSeenWelcome: claims.Identity.HasSeenWelcome,
		ExpiresAt:      claims.ExpiresAt.Time,
	}

	token, err := m.datastore.Mint(claims.Subject, claims.Identity.Email, claims.Identity.Role)
	if err != nil {
		m.logger.Warn("datastore token mint failed; session degraded",
			zap.String("subject_id", claims.Subject),
			zap.Error(err))
		return session
	}
	session.DatastoreToken = token
	return session
}
