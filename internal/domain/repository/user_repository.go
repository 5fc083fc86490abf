// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"lavra/internal/domain/entity"
	"lavra/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for user persistence.
var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserAlreadyExists is returned when the email is already taken.
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepository defines the standard operations for user persistence.
// The application layer will depend on this interface, not the concrete implementation.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address. The match is exact.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	// Returns ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, user *entity.User) error

	// Update modifies the mutable profile fields of an existing user.
	Update(ctx context.Context, user *entity.User) error

	// AcquireSessionMutex serialises session creation for a user until the surrounding transaction ends.
	// It must be called inside TransactionManager.Execute.
	AcquireSessionMutex(ctx context.Context, id uuid.UUID) error
}
