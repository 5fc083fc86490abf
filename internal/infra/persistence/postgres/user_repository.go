package postgres

import (
	"context"

	"lavra/internal/domain/entity"
	domainerrors "lavra/internal/domain/errors"
	"lavra/internal/domain/repository"
	"lavra/internal/infra/persistence/model"
	"lavra/internal/infra/persistence/postgres/query"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the domain.UserRepository interface using GORM.
type userRepository struct {
	q *query.Query
}

// NewUserRepository is the constructor for userRepository.
// It returns the repository as a domain.UserRepository interface, adhering to dependency inversion.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{
		q: query.Use(db),
	}
}

// FindByID retrieves a single user by their unique ID.
func (repo *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	userM, err := repo.q.UserModel.WithContext(ctx).
		Where(repo.q.UserModel.ID.Eq(id)).
		First()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by id")
	}

	return toUserDomain(userM), nil
}

// FindByEmail retrieves a single user by their email address. Comparison is case-sensitive.
func (repo *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	userM, err := repo.q.UserModel.WithContext(ctx).
		Where(repo.q.UserModel.Email.Eq(email)).
		First()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	return toUserDomain(userM), nil
}

// Create persists a new user entity to the database.
func (repo *userRepository) Create(ctx context.Context, user *entity.User) error {
	userM := fromUserDomain(user)

	if err := repo.q.UserModel.WithContext(ctx).Create(userM); err != nil {
		if isUniqueConstraintViolation(err) {
			return repository.ErrUserAlreadyExists
		}
		if isValueTooLong(err) {
			return domainerrors.ErrValidationFailed.WithDetails("a field exceeds its maximum length")
		}
		if isNotNullConstraintViolation(err) || isCheckConstraintViolation(err) {
			return domainerrors.ErrUserCreationFailed.WrapMessage("missing or invalid user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create user")
	}

	// Copy back the generated ID and timestamps
	user.ID = userM.ID
	user.CreatedAt = userM.CreatedAt
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// Update writes the mutable profile fields of an existing user.
func (repo *userRepository) Update(ctx context.Context, user *entity.User) error {
	u := repo.q.UserModel

	result, err := u.WithContext(ctx).
		Where(u.ID.Eq(user.ID)).
		Updates(map[string]any{
			"name":       user.Name,
			"phone":      user.Phone,
			"role":       user.Role.String(),
			"status":     user.Status.String(),
			"updated_at": gorm.Expr("NOW()"),
		})
	if err != nil {
		if isValueTooLong(err) {
			return domainerrors.ErrValidationFailed.WithDetails("a field exceeds its maximum length")
		}
		if isNotNullConstraintViolation(err) || isCheckConstraintViolation(err) {
			return domainerrors.ErrUserUpdateFailed.WrapMessage("missing or invalid user information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to update user")
	}

	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}

	userM, err := u.WithContext(ctx).
		Select(u.UpdatedAt).
		Where(u.ID.Eq(user.ID)).
		First()
	if err != nil {
		return errors.Wrap(err, "failed to reload user")
	}
	user.UpdatedAt = userM.UpdatedAt

	return nil
}

// AcquireSessionMutex locks the user row (SELECT ... FOR UPDATE) for the rest of the transaction.
func (repo *userRepository) AcquireSessionMutex(ctx context.Context, id uuid.UUID) error {
	u := repo.q.UserModel

	_, err := u.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select(u.ID).
		Where(u.ID.Eq(id)).
		First()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrUserNotFound
		}

		return errors.Wrap(err, "failed to lock user row")
	}

	return nil
}

// --- Mapper Functions ---
// These helpers convert between domain entities and persistence models.

// toUserDomain converts a GORM UserModel to a domain User entity.
// An unknown stored status maps to INACTIVE so the account cannot authenticate.
func toUserDomain(data *model.UserModel) *entity.User {
	if data == nil {
		return nil
	}

	status := entity.UserStatus(data.Status)
	if !status.IsValid() {
		status = entity.UserStatusInactive
	}

	return &entity.User{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Name:         data.Name,
		Phone:        data.Phone,
		Role:         entity.RoleFromString(data.Role),
		Status:       status,
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}

// fromUserDomain converts a domain User entity to a GORM UserModel for persistence.
func fromUserDomain(data *entity.User) *model.UserModel {
	if data == nil {
		return nil
	}

	return &model.UserModel{
		ID:           data.ID,
		Email:        data.Email,
		PasswordHash: data.PasswordHash,
		Name:         data.Name,
		Phone:        data.Phone,
		Role:         data.Role.String(),
		Status:       data.Status.String(),
		CreatedAt:    data.CreatedAt,
		UpdatedAt:    data.UpdatedAt,
	}
}
