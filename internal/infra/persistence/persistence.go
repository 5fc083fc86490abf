// Package persistence selects the credential store backing the repositories.
package persistence

import (
	"log/slog"

	"lavra/config"
	"lavra/internal/domain/constants"
	"lavra/internal/domain/repository"
	"lavra/internal/errors"
	"lavra/internal/infra/persistence/memory"
	"lavra/internal/infra/persistence/postgres"

	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// Result exposes the repositories of the selected store to the container.
type Result struct {
	fx.Out

	UserRepo           repository.UserRepository
	RefreshTokenRepo   repository.RefreshTokenRepository
	TransactionManager repository.TransactionManager
}

// New builds the repositories for the driver named by storage.driver.
func New(params Params) (Result, error) {
	switch params.Config.Storage.Driver {
	case constants.StorageDriverMemory:
		params.Logger.Warn("Using in-memory credential store, data is lost on restart")
		store := memory.NewStore()

		return Result{
			UserRepo:           store.UserRepo(),
			RefreshTokenRepo:   store.RefreshTokenRepo(),
			TransactionManager: store,
		}, nil

	case constants.StorageDriverPostgres, "":
		db, err := postgres.New(postgres.Params{
			Lifecycle: params.Lifecycle,
			Config:    params.Config,
			Logger:    params.Logger,
		})
		if err != nil {
			return Result{}, err
		}

		return Result{
			UserRepo:           postgres.NewUserRepository(db),
			RefreshTokenRepo:   postgres.NewRefreshTokenRepository(db),
			TransactionManager: postgres.NewTransactionManager(db),
		}, nil

	default:
		return Result{}, errors.Errorf("unknown storage driver: %s", params.Config.Storage.Driver)
	}
}
