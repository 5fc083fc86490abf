package postgres

import (
	"context"
	"testing"
	"time"

	"lavra/internal/domain/entity"
	"lavra/internal/domain/repository"
	"lavra/internal/infra/persistence/postgres/query"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var refreshTokenColumns = []string{"id", "user_id", "token_hash", "expires_at", "created_at"}

func newTestRefreshTokenRepository(db *gorm.DB, now time.Time) *refreshTokenRepository {
	return &refreshTokenRepository{
		q:   query.Use(db),
		now: func() time.Time { return now },
	}
}

func TestRefreshTokenRepository_FindRefreshTokenByHash(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRefreshTokenRepository(db, now)

	tokenID, userID := uuid.New(), uuid.New()
	mock.ExpectQuery(`SELECT \* FROM "refresh_tokens" WHERE .*"token_hash" = \$1`).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns).
			AddRow(tokenID.String(), userID.String(), "hash-1", now.Add(time.Hour), now.Add(-time.Hour)))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE .*"id" = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID.String(), "a@x.com", "hash", "Ana", nil, "USER", "ACTIVE", now, now))

	token, err := repo.FindRefreshTokenByHash(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.Equal(t, tokenID, token.ID)
	assert.Equal(t, userID, token.UserID)
	require.NotNil(t, token.User)
	assert.Equal(t, "a@x.com", token.User.Email)
	assert.Equal(t, entity.UserStatusActive, token.User.Status)
}

func TestRefreshTokenRepository_FindRefreshTokenByHash_Expired(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRefreshTokenRepository(db, now)

	// Expiry at exactly now already counts as expired.
	mock.ExpectQuery(`SELECT \* FROM "refresh_tokens" WHERE .*"token_hash" = \$1`).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns).
			AddRow(uuid.NewString(), uuid.NewString(), "hash-1", now, now.Add(-time.Hour)))

	_, err := repo.FindRefreshTokenByHash(context.Background(), "hash-1")
	assert.ErrorIs(t, err, repository.ErrRefreshTokenExpired)
}

func TestRefreshTokenRepository_FindRefreshTokenByHash_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newTestRefreshTokenRepository(db, time.Now())

	mock.ExpectQuery(`SELECT \* FROM "refresh_tokens"`).
		WillReturnRows(sqlmock.NewRows(refreshTokenColumns))

	_, err := repo.FindRefreshTokenByHash(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_CreateRefreshToken_Errors(t *testing.T) {
	tests := []struct {
		name   string
		dbErr  error
		target error
	}{
		{
			name:   "duplicate hash",
			dbErr:  errors.New(`ERROR: duplicate key value violates unique constraint "refresh_tokens_token_hash_key" (SQLSTATE 23505)`),
			target: repository.ErrRefreshTokenAlreadyExists,
		},
		{
			name:   "unknown owner",
			dbErr:  errors.New(`ERROR: insert or update on table "refresh_tokens" violates foreign key constraint (SQLSTATE 23503)`),
			target: repository.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			repo := NewRefreshTokenRepository(db)

			mock.ExpectQuery(`INSERT INTO "refresh_tokens"`).WillReturnError(tt.dbErr)

			err := repo.CreateRefreshToken(context.Background(), &entity.RefreshToken{
				UserID:    uuid.New(),
				TokenHash: "hash-1",
				ExpiresAt: time.Now().Add(time.Hour),
			})
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestRefreshTokenRepository_DeleteRefreshTokenByHash(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshTokenRepository(db)

	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE .*"token_hash" = \$1`).
		WithArgs("hash-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteRefreshTokenByHash(context.Background(), "hash-1"))

	// A concurrent rotation already removed the row.
	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE .*"token_hash" = \$1`).
		WithArgs("hash-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteRefreshTokenByHash(context.Background(), "hash-1"), repository.ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_DeleteExpiredRefreshTokens(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestRefreshTokenRepository(db, now)

	mock.ExpectExec(`DELETE FROM "refresh_tokens" WHERE .*"expires_at" <= \$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	deleted, err := repo.DeleteExpiredRefreshTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}

func TestRefreshTokenRepository_CountActiveSessionsByUserID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := newTestRefreshTokenRepository(db, time.Now())

	mock.ExpectQuery(`SELECT count\(\*\) FROM "refresh_tokens" WHERE .*"user_id" = \$1 AND .*"expires_at" > \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveSessionsByUserID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
