// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken represents a long-lived, authorized user session.
// A row exists exactly as long as its token may be exchanged for a new pair.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	TokenHash string    // SHA-256 hash of the signed refresh token, used as the lookup key.
	ExpiresAt time.Time // Storage-side expiry. Rows past it are treated as absent.
	CreatedAt time.Time // Timestamp of when this session was created.
	User      *User     // Owning user, populated on lookups by hash.
}

// IsExpired reports whether the session is past its storage expiry at the given instant.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
