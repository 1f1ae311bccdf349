package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"soothe/models"

	"firebase.google.com/go/v4/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func notice(kind models.NoticeKind) models.BookingNotice {
	return models.BookingNotice{
		Kind:        kind,
		BookingID:   "b-1",
		CustomerID:  "cust-1",
		TherapistID: "ther-1",
		ServiceID:   "swedish",
		Status:      models.StatusPending,
		Price:       decimal.NewFromInt(160),
		Currency:    "usd",
		At:          time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "projects/soothe/messages/1", nil
}

func TestRedisDeviceTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewRedisDeviceTokenStore(setupTestRedis(t))

	_, err := store.Get(ctx, "cust-1")
	assert.ErrorIs(t, err, ErrNoDeviceToken)

	require.NoError(t, store.Set(ctx, "cust-1", "fcm-token-1"))
	token, err := store.Get(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "fcm-token-1", token)
}

func TestPushNotifierRoutesByKind(t *testing.T) {
	ctx := context.Background()
	store := NewRedisDeviceTokenStore(setupTestRedis(t))
	require.NoError(t, store.Set(ctx, "ther-1", "therapist-device"))
	require.NoError(t, store.Set(ctx, "cust-1", "customer-device"))

	sender := &fakeSender{}
	push := NewPushNotifier(sender, store)

	require.NoError(t, push.Notify(ctx, notice(models.NoticeCreated)))
	confirmed := notice(models.NoticeConfirmed)
	confirmed.Status = models.StatusConfirmed
	require.NoError(t, push.Notify(ctx, confirmed))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "therapist-device", sender.sent[0].Token)
	assert.Equal(t, "booking_created", sender.sent[0].Data["type"])
	require.NotNil(t, sender.sent[0].Android)
	assert.Equal(t, "high", sender.sent[0].Android.Priority)

	assert.Equal(t, "customer-device", sender.sent[1].Token)
	assert.Equal(t, "confirmed", sender.sent[1].Data["status"])
	assert.Contains(t, sender.sent[1].Notification.Body, "160.00 usd")
	assert.Nil(t, sender.sent[1].Android)
}

func TestPushNotifierErrors(t *testing.T) {
	ctx := context.Background()
	store := NewRedisDeviceTokenStore(setupTestRedis(t))

	push := NewPushNotifier(&fakeSender{}, store)
	assert.ErrorIs(t, push.Notify(ctx, notice(models.NoticeTimedOut)), ErrNoDeviceToken)

	require.NoError(t, store.Set(ctx, "cust-1", "customer-device"))
	boom := errors.New("fcm unavailable")
	push = NewPushNotifier(&fakeSender{err: boom}, store)
	assert.ErrorIs(t, push.Notify(ctx, notice(models.NoticeTimedOut)), boom)
}

func TestRedisPublisherSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pub := NewRedisPublisher(setupTestRedis(t))

	sub, err := pub.Subscribe(ctx, "b-1", zap.NewNop())
	require.NoError(t, err)
	defer sub.Close()

	other := notice(models.NoticeCreated)
	other.BookingID = "b-2"
	require.NoError(t, pub.Notify(ctx, other))
	require.NoError(t, pub.Notify(ctx, notice(models.NoticeAccepted)))

	select {
	case got := <-sub.C:
		assert.Equal(t, "b-1", got.BookingID)
		assert.Equal(t, models.NoticeAccepted, got.Kind)
		assert.True(t, decimal.NewFromInt(160).Equal(got.Price))
	case <-ctx.Done():
		t.Fatal("no notice received")
	}
}

func TestDispatcherFansOutAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	var mu sync.Mutex
	var delivered []string
	record := func(name string) Notifier {
		return NotifierFunc(func(_ context.Context, n models.BookingNotice) error {
			mu.Lock()
			defer mu.Unlock()
			delivered = append(delivered, name+":"+n.BookingID)
			return nil
		})
	}
	failing := NotifierFunc(func(context.Context, models.BookingNotice) error {
		return errors.New("channel down")
	})

	d := NewDispatcher(zap.New(core), map[string]Notifier{
		"push":   record("push"),
		"pubsub": record("pubsub"),
		"broken": failing,
	})
	t.Cleanup(d.Close)
	require.NoError(t, d.Notify(context.Background(), notice(models.NoticeCreated)))
	d.Wait()

	assert.ElementsMatch(t, []string{"push:b-1", "pubsub:b-1"}, delivered)
	entries := logs.FilterMessage("Notification delivery failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].ContextMap()["channel"])
}

func TestDispatcherKeepsOrderPerChannel(t *testing.T) {
	kinds := []models.NoticeKind{models.NoticeCreated, models.NoticeAccepted, models.NoticeConfirmed}

	var mu sync.Mutex
	got := map[string][]models.NoticeKind{}
	record := func(name string, delay time.Duration) Notifier {
		return NotifierFunc(func(_ context.Context, n models.BookingNotice) error {
			// The first notice is the slowest to deliver.
			if n.Kind == models.NoticeCreated {
				time.Sleep(delay)
			}
			mu.Lock()
			defer mu.Unlock()
			got[name] = append(got[name], n.Kind)
			return nil
		})
	}

	d := NewDispatcher(zap.NewNop(), map[string]Notifier{
		"push":   record("push", 20*time.Millisecond),
		"pubsub": record("pubsub", 5*time.Millisecond),
	})
	for _, k := range kinds {
		require.NoError(t, d.Notify(context.Background(), notice(k)))
	}
	d.Wait()
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, kinds, got["push"])
	assert.Equal(t, kinds, got["pubsub"])

	// Closed dispatchers drop silently.
	require.NoError(t, d.Notify(context.Background(), notice(models.NoticeCancelled)))
	assert.Len(t, got["push"], 3)
}
