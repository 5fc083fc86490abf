package memory

import (
	"context"

	"lavra/internal/domain/entity"
	"lavra/internal/domain/repository"

	"github.com/google/uuid"
)

type userRepository struct {
	store *Store
	inTx  bool
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.store.lock(r.inTx)()

	u, ok := r.store.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(u), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	defer r.store.lock(r.inTx)()

	id, ok := r.store.emails[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}

	return cloneUser(r.store.users[id]), nil
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	defer r.store.lock(r.inTx)()

	if _, taken := r.store.emails[user.Email]; taken {
		return repository.ErrUserAlreadyExists
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := r.store.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.store.users[user.ID] = cloneUser(user)
	r.store.emails[user.Email] = user.ID

	return nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	defer r.store.lock(r.inTx)()

	existing, ok := r.store.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}

	updated := cloneUser(existing)
	updated.Name = user.Name
	updated.Phone = cloneUser(user).Phone
	updated.Role = user.Role
	updated.Status = user.Status
	updated.UpdatedAt = r.store.now()
	r.store.users[user.ID] = updated

	user.UpdatedAt = updated.UpdatedAt

	return nil
}

// AcquireSessionMutex only checks that the user exists; transactions already hold the store mutex.
func (r *userRepository) AcquireSessionMutex(ctx context.Context, id uuid.UUID) error {
	defer r.store.lock(r.inTx)()

	if _, ok := r.store.users[id]; !ok {
		return repository.ErrUserNotFound
	}

	return nil
}
