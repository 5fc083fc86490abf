package usecase

import (
	"context"

	"lavra/internal/domain/entity"

	"github.com/google/uuid"
)

// ProfileUsecase defines the interface for profile-related business operations.
type ProfileUsecase interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*entity.User, error)
}

// UpdateProfileInput defines the data required to update a user profile.
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=3,max=100"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=32"`
}
