// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"lavra/internal/domain/entity"

	"github.com/google/uuid"
)

// AuthUsecase defines the interface for the session lifecycle: sign-up, sign-in, rotation and sign-out.
type AuthUsecase interface {
	// Register creates an ACTIVE account with the USER role and opens its first session.
	Register(ctx context.Context, input *RegisterInput) (*AuthOutput, error)
	// Login authenticates with email and password and opens a new session.
	Login(ctx context.Context, input *LoginInput) (*AuthOutput, error)
	// RefreshToken exchanges a stored refresh token for a new pair. The presented token is consumed.
	RefreshToken(ctx context.Context, refreshToken string) (*AuthOutput, error)
	// Logout revokes every refresh token of the user. It always reports true.
	Logout(ctx context.Context, userID uuid.UUID) (bool, error)
}

// --- Input DTOs ---

// RegisterInput defines the data required for registering a new account.
type RegisterInput struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,maxbytes=72"`
	Name     string  `json:"name" validate:"required,min=3,max=100"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// LoginInput defines the data required for logging in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Output DTOs ---

// AuthOutput is returned by every operation that opens a session.
type AuthOutput struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *entity.User `json:"user"`
}
