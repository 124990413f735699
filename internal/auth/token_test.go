package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenLifecycle(t *testing.T) {
	user := &User{ID: uuid.New(), ClientID: uuid.New()}
	expires := time.Now().Add(time.Hour)
	tok := NewJwtToken("jti-1", "access", user, &expires)

	if tok.UserID != user.ID || tok.ClientID != user.ClientID {
		t.Fatalf("token not bound to user and client: %+v", tok)
	}
	if !tok.IsActive() || tok.IsExpired() || tok.IsRevoked() {
		t.Fatalf("fresh token must be active")
	}

	admin := uuid.New()
	tok.Revoke(admin)
	if tok.IsActive() || !tok.IsRevoked() {
		t.Fatalf("revoked token must not be active")
	}
	if tok.RevokedBy == nil || *tok.RevokedBy != admin {
		t.Fatalf("revocation must record the actor")
	}
}

func TestTokenExpiry(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	tok := &JwtToken{ExpiresAt: &past}
	if !tok.IsExpired() || tok.IsActive() {
		t.Fatalf("past expiry must expire the token")
	}

	noExpiry := &JwtToken{}
	if noExpiry.IsExpired() {
		t.Fatalf("token without expiry never expires")
	}
	if !noExpiry.IsActive() {
		t.Fatalf("unrevoked token without expiry must be active")
	}
}

func TestTokenMarkReplaced(t *testing.T) {
	tok := &JwtToken{JTI: "old"}
	tok.MarkReplaced("new")
	if tok.ReplacedByJTI != "new" {
		t.Fatalf("successor JTI not recorded")
	}
	if !tok.IsRevoked() {
		t.Fatalf("replacement must revoke the token")
	}
}
