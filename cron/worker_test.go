package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	bookingRepo "soothe/database/repository/booking"
	"soothe/models"
	"soothe/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expireFunc func(ctx context.Context, id string) (models.TransitionResult, error)

func (f expireFunc) Expire(ctx context.Context, id string) (models.TransitionResult, error) {
	return f(ctx, id)
}

func expiryTask(t *testing.T, id string) *asynq.Task {
	t.Helper()
	task, _, err := tasks.NewExpiryTask(models.ExpiryPayload{BookingID: id, Deadline: time.Now()})
	require.NoError(t, err)
	return task
}

func TestHandleExpireTaskApplies(t *testing.T) {
	var got string
	svc := expireFunc(func(_ context.Context, id string) (models.TransitionResult, error) {
		got = id
		return models.TransitionResult{Status: models.StatusTimedOut, Applied: true}, nil
	})
	err := handleExpireTask(svc, zap.NewNop())(context.Background(), expiryTask(t, "b-1"))
	require.NoError(t, err)
	assert.Equal(t, "b-1", got)
}

func TestHandleExpireTaskAlreadyAnswered(t *testing.T) {
	svc := expireFunc(func(context.Context, string) (models.TransitionResult, error) {
		return models.TransitionResult{Status: models.StatusAccepted, Stale: true}, nil
	})
	assert.NoError(t, handleExpireTask(svc, zap.NewNop())(context.Background(), expiryTask(t, "b-1")))
}

func TestHandleExpireTaskRetriesWhileStillPending(t *testing.T) {
	svc := expireFunc(func(context.Context, string) (models.TransitionResult, error) {
		return models.TransitionResult{Status: models.StatusPending, Stale: true}, nil
	})
	err := handleExpireTask(svc, zap.NewNop())(context.Background(), expiryTask(t, "b-1"))
	assert.ErrorIs(t, err, errNotYetDue)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleExpireTaskUnknownBookingSkipsRetry(t *testing.T) {
	svc := expireFunc(func(_ context.Context, id string) (models.TransitionResult, error) {
		return models.TransitionResult{}, fmt.Errorf("%w: %s", bookingRepo.ErrNotFound, id)
	})
	err := handleExpireTask(svc, zap.NewNop())(context.Background(), expiryTask(t, "gone"))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleExpireTaskStorageErrorRetries(t *testing.T) {
	boom := errors.New("connection reset")
	svc := expireFunc(func(context.Context, string) (models.TransitionResult, error) {
		return models.TransitionResult{}, boom
	})
	err := handleExpireTask(svc, zap.NewNop())(context.Background(), expiryTask(t, "b-1"))
	assert.ErrorIs(t, err, boom)
}

func TestHandleExpireTaskBadPayload(t *testing.T) {
	svc := expireFunc(func(context.Context, string) (models.TransitionResult, error) {
		t.Fatal("must not be called")
		return models.TransitionResult{}, nil
	})
	payload, _ := json.Marshal("not an object")
	err := handleExpireTask(svc, zap.NewNop())(context.Background(), asynq.NewTask(tasks.TypeBookingExpire, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
