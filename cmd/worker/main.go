package main

import (
	"context"
	"log/slog"
	"os"

	"lavra/config"
	"lavra/internal/delivery"
	"lavra/internal/delivery/worker"
	"lavra/internal/delivery/worker/handler"
	"lavra/internal/delivery/worker/jobs"
	logs "lavra/internal/infra/log"
	"lavra/internal/infra/persistence"
	"lavra/internal/infra/redis"
	"lavra/internal/usecase/impl"

	"go.uber.org/fx"
)

type startWorkerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectUsecase(),
		injectDelivery(),
		fx.Invoke(
			startWorker,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		redis.New,
	)
}

func injectRepo() fx.Option {
	return fx.Provide(
		persistence.New,
	)
}

func injectUsecase() fx.Option {
	return fx.Provide(
		impl.NewSessionService,
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewPushHandler,
			fx.Annotate(
				worker.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
			fx.Annotate(
				jobs.NewWorker,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

// startWorker launches every delivery once the lifecycle has started, so storage is migrated first.
func startWorker(ctx context.Context, params startWorkerParams) {
	params.Append(fx.Hook{
		OnStart: func(context.Context) error {
			for _, delivery := range params.Deliveries {
				go func() {
					if err := delivery.Serve(ctx); err != nil {
						slog.Error("Failed to start worker", slog.Any("error", err))
						os.Exit(1)
					}
				}()
			}

			return nil
		},
	})
}
