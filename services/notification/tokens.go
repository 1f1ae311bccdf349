package notification

import (
	"context"
	"errors"
	"fmt"

	"soothe/utils"

	"github.com/go-redis/redis/v8"
)

// ErrNoDeviceToken is returned when a user has not registered a device for push.
var ErrNoDeviceToken = errors.New("no device token registered")

// DeviceTokenStore maps user ids to FCM registration tokens.
type DeviceTokenStore interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, token string) error
}

// RedisDeviceTokenStore keeps one token per user under device:<userID>.
type RedisDeviceTokenStore struct {
	client *redis.Client
}

func NewRedisDeviceTokenStore(client *redis.Client) *RedisDeviceTokenStore {
	return &RedisDeviceTokenStore{client: client}
}

func (s *RedisDeviceTokenStore) Get(ctx context.Context, userID string) (string, error) {
	token, err := s.client.Get(ctx, utils.DeviceTokenPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("%w: %s", ErrNoDeviceToken, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read device token for %s: %w", userID, err)
	}
	return token, nil
}

func (s *RedisDeviceTokenStore) Set(ctx context.Context, userID, token string) error {
	if err := s.client.Set(ctx, utils.DeviceTokenPrefix+userID, token, utils.DeviceTokenTTL).Err(); err != nil {
		return fmt.Errorf("failed to store device token for %s: %w", userID, err)
	}
	return nil
}
