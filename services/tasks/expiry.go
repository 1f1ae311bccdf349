package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"soothe/models"

	"github.com/hibiken/asynq"
)

const (
	TypeBookingExpire = "booking:expire"
	// QueueBooking holds lifecycle tasks; the expiry task id is the booking id.
	QueueBooking = "booking"

	expiryMaxRetry = 5
)

func NewExpiryTask(payload models.ExpiryPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeBookingExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(payload.Deadline),
		asynq.TaskID(payload.BookingID),
		asynq.Queue(QueueBooking),
		asynq.MaxRetry(expiryMaxRetry),
	}
	return task, opts, nil
}

// AsynqExpiryQueue schedules one booking:expire task per pending request so an
// expiry survives a restart of the process holding the in-memory timer.
type AsynqExpiryQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewAsynqExpiryQueue(opt asynq.RedisConnOpt) *AsynqExpiryQueue {
	return &AsynqExpiryQueue{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
	}
}

func (q *AsynqExpiryQueue) ScheduleExpiry(ctx context.Context, bookingID string, deadline time.Time) error {
	task, opts, err := NewExpiryTask(models.ExpiryPayload{BookingID: bookingID, Deadline: deadline})
	if err != nil {
		return err
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue expiry for %s: %w", bookingID, err)
	}
	return nil
}

// CancelExpiry deletes the scheduled task. A task that already ran or never
// existed is not an error.
func (q *AsynqExpiryQueue) CancelExpiry(_ context.Context, bookingID string) error {
	err := q.inspector.DeleteTask(QueueBooking, bookingID)
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("failed to delete expiry for %s: %w", bookingID, err)
}

func (q *AsynqExpiryQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close())
}
