package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"soothe/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestQueue(t *testing.T) (*AsynqExpiryQueue, *asynq.Inspector) {
	t.Helper()
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}
	q := NewAsynqExpiryQueue(opt)
	inspector := asynq.NewInspector(opt)
	t.Cleanup(func() {
		_ = q.Close()
		_ = inspector.Close()
	})
	return q, inspector
}

func TestNewExpiryTask(t *testing.T) {
	deadline := time.Date(2026, 3, 14, 9, 2, 0, 0, time.UTC)
	task, opts, err := NewExpiryTask(models.ExpiryPayload{BookingID: "b-1", Deadline: deadline})
	require.NoError(t, err)
	assert.Equal(t, TypeBookingExpire, task.Type())
	assert.Len(t, opts, 4)

	var p models.ExpiryPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, "b-1", p.BookingID)
	assert.True(t, deadline.Equal(p.Deadline))
}

func TestScheduleAndCancelExpiry(t *testing.T) {
	q, inspector := setupTestQueue(t)
	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Minute)

	require.NoError(t, q.ScheduleExpiry(ctx, "b-1", deadline))
	info, err := inspector.GetTaskInfo(QueueBooking, "b-1")
	require.NoError(t, err)
	assert.Equal(t, asynq.TaskStateScheduled, info.State)
	assert.Equal(t, TypeBookingExpire, info.Type)

	// Re-scheduling the same booking is a no-op.
	require.NoError(t, q.ScheduleExpiry(ctx, "b-1", deadline))

	require.NoError(t, q.CancelExpiry(ctx, "b-1"))
	_, err = inspector.GetTaskInfo(QueueBooking, "b-1")
	assert.Error(t, err)

	require.NoError(t, q.CancelExpiry(ctx, "b-1"))
	require.NoError(t, q.CancelExpiry(ctx, "never-scheduled"))
}

func TestCancelExpiryWithoutQueue(t *testing.T) {
	q, _ := setupTestQueue(t)
	assert.NoError(t, q.CancelExpiry(context.Background(), "b-1"))
}
