package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/ledgerkit/identity-service/internal/domain"
)

// DatastoreAudience is the audience and role claim expected by the
// row-level-secured datastore for authenticated principals.
const DatastoreAudience = "authenticated"

// DatastoreClaims is the payload of the short-lived token that authorizes
// calls into the row-level-secured datastore.
type DatastoreClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// DatastoreTokenMinter derives short-lived datastore access tokens from a
// resolved identity. It signs with a secret distinct from the session
// secret so compromise of one surface does not forge tokens for the other.
// Minting is stateless and re-run on every session materialization.
type DatastoreTokenMinter struct {
	secret []byte
	ttl    time.Duration
}

// NewDatastoreTokenMinter builds a minter.
func NewDatastoreTokenMinter(secret string, ttl time.Duration) *DatastoreTokenMinter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DatastoreTokenMinter{secret: []byte(secret), ttl: ttl}
}

// Mint signs a datastore token for the subject. Administrator identities
// never receive datastore access: the result is empty with no error, and
// callers treat that as "no datastore token", not a failure.
func (m *DatastoreTokenMinter) Mint(subjectID, email string, role domain.Role) (string, error) {
	if role == domain.RoleAdmin {
		return "", nil
	}

	now := time.Now()
	claims := &DatastoreClaims{
		Email: email,
		Role:  DatastoreAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Audience:  jwt.ClaimStrings{DatastoreAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
