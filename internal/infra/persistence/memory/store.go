// Package memory provides an in-process credential store for local runs and tests.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"lavra/internal/domain/entity"
	"lavra/internal/domain/repository"

	"github.com/google/uuid"
)

// Store keeps users and refresh tokens in maps guarded by a single mutex.
// A transaction holds the mutex for its whole duration and restores a snapshot on error.
type Store struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*entity.User
	emails map[string]uuid.UUID
	tokens map[string]*entity.RefreshToken // keyed by token hash
	now    func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		users:  make(map[uuid.UUID]*entity.User),
		emails: make(map[string]uuid.UUID),
		tokens: make(map[string]*entity.RefreshToken),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// UserRepo returns a UserRepository that locks the store per call.
func (s *Store) UserRepo() repository.UserRepository {
	return &userRepository{store: s}
}

// RefreshTokenRepo returns a RefreshTokenRepository that locks the store per call.
func (s *Store) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: s}
}

// Execute runs fn with exclusive access to the store.
// If fn returns an error or panics, every change it made is discarded.
func (s *Store) Execute(ctx context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	committed := false
	defer func() {
		if !committed {
			s.restore(snap)
		}
	}()

	if err := fn(&txFactory{store: s}); err != nil {
		return err
	}
	committed = true

	return nil
}

// lock acquires the store mutex unless the caller already runs inside a transaction.
func (s *Store) lock(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()

	return s.mu.Unlock
}

type snapshot struct {
	users  map[uuid.UUID]*entity.User
	emails map[string]uuid.UUID
	tokens map[string]*entity.RefreshToken
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:  maps.Clone(s.users),
		emails: maps.Clone(s.emails),
		tokens: maps.Clone(s.tokens),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.emails = snap.emails
	s.tokens = snap.tokens
}

// txFactory vends repositories that assume the store mutex is already held.
type txFactory struct {
	store *Store
}

func (f *txFactory) UserRepo() repository.UserRepository {
	return &userRepository{store: f.store, inTx: true}
}

func (f *txFactory) RefreshTokenRepo() repository.RefreshTokenRepository {
	return &refreshTokenRepository{store: f.store, inTx: true}
}

func cloneUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Phone != nil {
		phone := *u.Phone
		c.Phone = &phone
	}

	return &c
}
