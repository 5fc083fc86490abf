// Package jobs runs scheduled maintenance on the asynq queue.
package jobs

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "lavra/internal/delivery/context"
	"lavra/internal/errors"
	"lavra/internal/usecase"

	"github.com/hibiken/asynq"
)

const (
	// QueueMaintenance holds housekeeping tasks.
	QueueMaintenance = "maintenance"
	// TaskTypeSessionCleanup purges expired refresh tokens.
	TaskTypeSessionCleanup = "session:cleanup"

	cleanupTimeout = 2 * time.Minute
)

// NewSessionCleanupTask constructs the cleanup task. It carries no payload.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionCleanup, nil,
		asynq.Queue(QueueMaintenance),
		asynq.Timeout(cleanupTimeout),
		asynq.MaxRetry(3),
	)
}

// SessionCleanupHandler processes TaskTypeSessionCleanup tasks.
type SessionCleanupHandler struct {
	sessions usecase.SessionUsecase
	logger   *slog.Logger
}

// NewSessionCleanupHandler creates the handler for session cleanup tasks.
func NewSessionCleanupHandler(sessions usecase.SessionUsecase, logger *slog.Logger) *SessionCleanupHandler {
	return &SessionCleanupHandler{sessions: sessions, logger: logger}
}

// ProcessTask implements asynq.Handler.
func (h *SessionCleanupHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	ctx = deliverycontext.WithRequestID(ctx, taskID)
	ctx = deliverycontext.WithLogger(ctx, h.logger.With(
		slog.String("task_id", taskID),
		slog.String("task_type", task.Type()),
	))

	deleted, err := h.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		return errors.Wrap(err, "session cleanup failed")
	}

	deliverycontext.GetLoggerOrDefault(ctx, h.logger).Info("[Worker] Session cleanup finished", slog.Int("deleted", deleted))

	return nil
}
