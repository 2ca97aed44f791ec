package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisInvalidator struct {
	rdb *redis.Client
}

// NewRedisInvalidator подключается к Redis и проверяет соединение.
func NewRedisInvalidator(redisURL string) (Invalidator, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &redisInvalidator{rdb: rdb}, nil
}

func (i *redisInvalidator) InvalidateMatch(ctx context.Context, eventID, matchID int, userIDs []int) error {
	return i.del(ctx, matchKeys(eventID, matchID, userIDs))
}

func (i *redisInvalidator) InvalidateUser(ctx context.Context, userID int) error {
	return i.del(ctx, userKeys(userID))
}

func (i *redisInvalidator) del(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := i.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache keys: %w", err)
	}
	return nil
}
