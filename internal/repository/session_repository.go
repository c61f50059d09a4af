package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/student-records/internal/config"
)

// SessionRepository tracks live token IDs per user in Redis.
// A token is only honoured while its ID is a member of the user's set.
type SessionRepository struct {
	rdb *redis.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// Add registers a token ID; the set expires with the newest token.
func (r *SessionRepository) Add(ctx context.Context, userID, jti string, ttl time.Duration) error {
	key := config.CacheKey.UserSessionKey(userID)
	pipe := r.rdb.TxPipeline()
	pipe.SAdd(ctx, key, jti)
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Exists reports whether a token ID is still live.
func (r *SessionRepository) Exists(ctx context.Context, userID, jti string) (bool, error) {
	return r.rdb.SIsMember(ctx, config.CacheKey.UserSessionKey(userID), jti).Result()
}

// Remove revokes a single token ID.
func (r *SessionRepository) Remove(ctx context.Context, userID, jti string) error {
	return r.rdb.SRem(ctx, config.CacheKey.UserSessionKey(userID), jti).Err()
}
