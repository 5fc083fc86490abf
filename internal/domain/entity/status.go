package entity

// UserStatus is the administrative state of a user account.
type UserStatus string

const (
	// UserStatusActive is the default state. Only active users can log in.
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusInactive marks an account that has been disabled.
	UserStatusInactive UserStatus = "INACTIVE"
	// UserStatusSuspended marks an account blocked by an administrator.
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// String returns the string representation of the UserStatus.
func (s UserStatus) String() string {
	return string(s)
}

// IsValid checks if the UserStatus is a valid value.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	default:
		return false
	}
}
