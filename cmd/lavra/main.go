package main

import (
	"context"
	"log/slog"
	"os"

	"lavra/config"
	"lavra/internal/delivery"
	"lavra/internal/delivery/api"
	apigraphql "lavra/internal/delivery/api/graphql"
	apimiddleware "lavra/internal/delivery/api/middleware"
	"lavra/internal/delivery/api/validator"
	"lavra/internal/infra/auth"
	logs "lavra/internal/infra/log"
	"lavra/internal/infra/persistence"
	"lavra/internal/infra/pubsub"
	"lavra/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
	)
}

func injectRepo() fx.Option {
	return fx.Provide(
		persistence.New,
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewBcryptHasher,
			auth.NewJWTService,
		),
		pubsub.Module,
	)
}

func injectUsecase() fx.Option {
	return fx.Provide(
		impl.NewAuthService,
		impl.NewProfileService,
		impl.NewSessionService,
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			validator.New,
			apimiddleware.NewAuthMiddleware,
			fx.Annotate(
				apigraphql.NewHandler,
				fx.ResultTags(`name:"graphql"`),
			),
			fx.Annotate(
				api.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startServer launches every delivery once the lifecycle has started, so storage is migrated first.
func startServer(ctx context.Context, params startServerParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, delivery := range params.Deliveries {
				go func() {
					if err := delivery.Serve(ctx); err != nil {
						slog.Error("Failed to start server", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
