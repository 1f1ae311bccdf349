package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"soothe/models"
	"soothe/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisPublisher publishes notices as JSON on the booking events channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: utils.BookingEventsChannel}
}

func (p *RedisPublisher) Notify(ctx context.Context, notice models.BookingNotice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode notice: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish notice for %s: %w", notice.BookingID, err)
	}
	return nil
}

// Subscription streams the notices of one booking until Close is called.
type Subscription struct {
	C      <-chan models.BookingNotice
	pubsub *redis.PubSub
	stop   chan struct{}
	done   chan struct{}
}

func (s *Subscription) Close() error {
	close(s.stop)
	err := s.pubsub.Close()
	<-s.done
	return err
}

// Subscribe listens on the booking events channel and forwards notices for bookingID.
func (p *RedisPublisher) Subscribe(ctx context.Context, bookingID string, logger *zap.Logger) (*Subscription, error) {
	ps := p.client.Subscribe(ctx, p.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}

	out := make(chan models.BookingNotice, 8)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(out)
		for msg := range ps.Channel() {
			var notice models.BookingNotice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				logger.Warn("Dropping malformed booking event", zap.Error(err))
				continue
			}
			if notice.BookingID != bookingID {
				continue
			}
			select {
			case out <- notice:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return &Subscription{C: out, pubsub: ps, stop: stop, done: done}, nil
}
