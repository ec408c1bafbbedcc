// Package auth provides bearer-token authentication. Tokens are issued
// by the session service and verified here with a shared HS256 key; the
// subject claim is resolved to a user row on every request so role and
// deactivation changes take effect immediately.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the JWT claims structure issued by the session service.
// RegisteredClaims carries the standard fields (sub, iss, exp).
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID parses the subject claim as the user's UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	if c.Subject == "" {
		return uuid.Nil, fmt.Errorf("missing subject in token claims")
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid subject in token claims: %w", err)
	}
	return id, nil
}
