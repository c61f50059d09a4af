package worker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrQueueEmpty is returned when no item arrived in time.
var ErrQueueEmpty = errors.New("queue empty")

// Queue is a FIFO of raw JSON payloads.
type Queue interface {
	// Pop blocks up to timeout for the next item.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	// TryPop returns the next item without blocking.
	TryPop(ctx context.Context) (string, error)
	// Requeue puts an item back at the tail.
	Requeue(ctx context.Context, payload string) error
}

// RedisQueue is a Queue backed by a Redis list.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue creates a queue over the list stored at key.
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	return &RedisQueue{rdb: rdb, key: key}
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BLPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	if err != nil {
		return "", err
	}
	if len(result) < 2 {
		return "", ErrQueueEmpty
	}
	return result[1], nil
}

func (q *RedisQueue) TryPop(ctx context.Context) (string, error) {
	v, err := q.rdb.LPop(ctx, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrQueueEmpty
	}
	return v, err
}

func (q *RedisQueue) Requeue(ctx context.Context, payload string) error {
	return q.rdb.RPush(ctx, q.key, payload).Err()
}

