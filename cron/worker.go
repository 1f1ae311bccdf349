package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingRepo "soothe/database/repository/booking"
	"soothe/models"
	"soothe/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Expirer applies a durable expiry to a booking request.
type Expirer interface {
	Expire(ctx context.Context, id string) (models.TransitionResult, error)
}

// earlyRetryDelay is how long a task that ran before its deadline waits to run again.
const earlyRetryDelay = 5 * time.Second

// errNotYetDue asks asynq to run the task again.
var errNotYetDue = errors.New("booking acceptance window still open")

// InitExpiryWorker starts the asynq server that processes booking:expire tasks
// in the background. The caller owns Shutdown.
func InitExpiryWorker(redisOpts asynq.RedisClientOpt, svc Expirer, logger *zap.Logger) (*asynq.Server, error) {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueBooking: 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				if errors.Is(err, errNotYetDue) {
					return earlyRetryDelay
				}
				return asynq.DefaultRetryDelayFunc(n, err, task)
			},
			Logger: zapAsynqLogger{logger.Sugar()},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeBookingExpire, handleExpireTask(svc, logger))

	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start expiry worker: %w", err)
	}
	logger.Info("Expiry worker started", zap.String("queue", tasks.QueueBooking))
	return srv, nil
}

func handleExpireTask(svc Expirer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ExpiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid expiry payload", zap.Error(err))
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}

		res, err := svc.Expire(ctx, p.BookingID)
		switch {
		case errors.Is(err, bookingRepo.ErrNotFound):
			logger.Warn("Expiry for unknown booking", zap.String("booking_id", p.BookingID))
			return fmt.Errorf("booking %s: %v: %w", p.BookingID, err, asynq.SkipRetry)
		case err != nil:
			return err
		}

		if res.Stale && res.Status == models.StatusPending {
			// The worker clock is behind the deadline; try again shortly.
			return errNotYetDue
		}
		logger.Debug("Processed durable expiry",
			zap.String("booking_id", p.BookingID),
			zap.Bool("applied", res.Applied),
			zap.String("status", string(res.Status)))
		return nil
	}
}

// zapAsynqLogger routes asynq's internal logging through zap.
type zapAsynqLogger struct {
	l *zap.SugaredLogger
}

func (z zapAsynqLogger) Debug(args ...interface{}) { z.l.Debug(args...) }
func (z zapAsynqLogger) Info(args ...interface{})  { z.l.Info(args...) }
func (z zapAsynqLogger) Warn(args ...interface{})  { z.l.Warn(args...) }
func (z zapAsynqLogger) Error(args ...interface{}) { z.l.Error(args...) }
func (z zapAsynqLogger) Fatal(args ...interface{}) { z.l.Fatal(args...) }
