package auth

import (
	"time"

	"github.com/google/uuid"
)

// IsExpired reports whether the token's expiry, if set, has passed.
func (t *JwtToken) IsExpired() bool {
	return t.ExpiresAt != nil && time.Now().After(*t.ExpiresAt)
}

// IsRevoked reports whether the token has been revoked, including
// revocation through replacement.
func (t *JwtToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token is neither expired nor revoked.
func (t *JwtToken) IsActive() bool {
	return !t.IsExpired() && !t.IsRevoked()
}

// Revoke stamps the token revoked by the given actor. Calling it again
// overwrites the stamp; there is no way back to active.
func (t *JwtToken) Revoke(by uuid.UUID) {
	now := time.Now()
	t.RevokedAt = &now
	t.RevokedBy = &by
}

// MarkReplaced links the token to its successor's JTI. Replacement implies
// revocation, so the revocation stamp is set as well.
func (t *JwtToken) MarkReplaced(newJTI string) {
	now := time.Now()
	t.ReplacedByJTI = newJTI
	t.RevokedAt = &now
}
