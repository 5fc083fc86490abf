package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lavra/config"
	"lavra/internal/delivery"
	"lavra/internal/errors"
	"lavra/internal/infra/redis"
	"lavra/internal/usecase"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
)

// Worker wraps the asynq server and the scheduler that feeds it.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
	done      chan struct{}
	stopOnce  sync.Once
}

// WorkerParams holds dependencies for the job worker, injected by Fx.
type WorkerParams struct {
	fx.In

	Lc             fx.Lifecycle
	Config         *config.Config
	Logger         *slog.Logger
	SessionUsecase usecase.SessionUsecase
}

// NewWorker registers the task handlers and the cleanup schedule.
func NewWorker(params WorkerParams) (delivery.Delivery, error) {
	w, err := newWorker(params.Config, redis.AsynqOpt(params.Config), params.SessionUsecase, params.Logger)
	if err != nil {
		return nil, err
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			w.stop()

			return nil
		},
	})

	return w, nil
}

func newWorker(cfg *config.Config, redisOpt asynq.RedisConnOpt, sessions usecase.SessionUsecase, logger *slog.Logger) (*Worker, error) {
	asynqLogger := newAsynqLogger(logger)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			QueueMaintenance: 1,
		},
		Logger: asynqLogger,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("[Worker] Task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskTypeSessionCleanup, NewSessionCleanupHandler(sessions, logger))

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   asynqLogger,
	})
	if _, err := scheduler.Register(cfg.Worker.CleanupCron, NewSessionCleanupTask()); err != nil {
		return nil, errors.Wrapf(err, "invalid cleanup schedule %q", cfg.Worker.CleanupCron)
	}

	return &Worker{
		server:    srv,
		mux:       mux,
		scheduler: scheduler,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Serve starts processing and blocks until the worker is stopped.
func (w *Worker) Serve(ctx context.Context) error {
	w.logger.Info("Starting job worker")

	if err := w.scheduler.Start(); err != nil {
		return errors.Wrap(err, "failed to start scheduler")
	}
	if err := w.server.Start(w.mux); err != nil {
		w.scheduler.Shutdown()

		return errors.Wrap(err, "failed to start asynq server")
	}

	select {
	case <-ctx.Done():
		w.stop()
	case <-w.done:
	}

	return nil
}

func (w *Worker) stop() {
	w.stopOnce.Do(func() {
		close(w.done)

		w.logger.Info("Shutting down job worker")
		w.scheduler.Shutdown()
		w.server.Shutdown()
	})
}
