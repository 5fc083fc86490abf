// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can authenticate against the Lavra API.
// Email is the login key and is unique across all users.
type User struct {
	ID           uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Email        string     // Login identifier. Case-sensitive, unique.
	PasswordHash string     // bcrypt hash of the password. Never the plaintext.
	Name         string     // Display name.
	Phone        *string    // Optional contact phone, free text.
	Role         Role       // Authorization role, USER unless changed administratively.
	Status       UserStatus // Only ACTIVE users may log in.
	CreatedAt    time.Time  // Timestamp of when this user account was created.
	UpdatedAt    time.Time  // Timestamp of the last modification to this user's data.
}

// CanAuthenticate reports whether the account is allowed to open new sessions.
func (u *User) CanAuthenticate() bool {
	return u.Status == UserStatusActive
}
