package memory

import (
	"context"
	"slices"

	"lavra/internal/domain/entity"
	"lavra/internal/domain/repository"

	"github.com/google/uuid"
)

type refreshTokenRepository struct {
	store *Store
	inTx  bool
}

func (r *refreshTokenRepository) CreateRefreshToken(ctx context.Context, token *entity.RefreshToken) error {
	defer r.store.lock(r.inTx)()

	if _, ok := r.store.users[token.UserID]; !ok {
		return repository.ErrUserNotFound
	}
	if _, dup := r.store.tokens[token.TokenHash]; dup {
		return repository.ErrRefreshTokenAlreadyExists
	}

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = r.store.now()

	stored := *token
	stored.User = nil
	r.store.tokens[token.TokenHash] = &stored

	return nil
}

func (r *refreshTokenRepository) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*entity.RefreshToken, error) {
	defer r.store.lock(r.inTx)()

	t, ok := r.store.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if t.IsExpired(r.store.now()) {
		return nil, repository.ErrRefreshTokenExpired
	}

	found := *t
	found.User = cloneUser(r.store.users[t.UserID])

	return &found, nil
}

func (r *refreshTokenRepository) FindRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error) {
	defer r.store.lock(r.inTx)()

	now := r.store.now()
	tokens := make([]*entity.RefreshToken, 0)
	for _, t := range r.store.tokens {
		if t.UserID != userID || t.IsExpired(now) {
			continue
		}
		found := *t
		tokens = append(tokens, &found)
	}

	// Newest first, matching the SQL implementation.
	slices.SortFunc(tokens, func(a, b *entity.RefreshToken) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return tokens, nil
}

func (r *refreshTokenRepository) DeleteRefreshTokenByHash(ctx context.Context, tokenHash string) error {
	defer r.store.lock(r.inTx)()

	if _, ok := r.store.tokens[tokenHash]; !ok {
		return repository.ErrRefreshTokenNotFound
	}
	delete(r.store.tokens, tokenHash)

	return nil
}

func (r *refreshTokenRepository) DeleteRefreshTokensByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.store.lock(r.inTx)()

	var deleted int64
	for hash, t := range r.store.tokens {
		if t.UserID == userID {
			delete(r.store.tokens, hash)
			deleted++
		}
	}

	return deleted, nil
}

func (r *refreshTokenRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	defer r.store.lock(r.inTx)()

	now := r.store.now()
	var deleted int64
	for hash, t := range r.store.tokens {
		if t.IsExpired(now) {
			delete(r.store.tokens, hash)
			deleted++
		}
	}

	return deleted, nil
}

func (r *refreshTokenRepository) CountActiveSessionsByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	defer r.store.lock(r.inTx)()

	now := r.store.now()
	count := 0
	for _, t := range r.store.tokens {
		if t.UserID == userID && !t.IsExpired(now) {
			count++
		}
	}

	return count, nil
}
