package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/model"
)

// ChangeRepository fans student mutations out to live subscribers and queues
// them for the audit worker.
type ChangeRepository struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewChangeRepository creates a new ChangeRepository.
func NewChangeRepository(rdb *redis.Client, log zerolog.Logger) *ChangeRepository {
	return &ChangeRepository{rdb: rdb, log: log.With().Str("component", "change_repository").Logger()}
}

// Publish broadcasts the change and pushes it onto the audit queue.
func (r *ChangeRepository) Publish(ctx context.Context, change model.StudentChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	pipe := r.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.StudentChangesChannel(), payload)
	pipe.RPush(ctx, config.WorkerKey.StudentAuditQueue, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe opens a PubSub subscription on the change channel.
// The caller must Close it.
func (r *ChangeRepository) Subscribe(ctx context.Context) *redis.PubSub {
	return r.rdb.Subscribe(ctx, config.CacheKey.StudentChangesChannel())
}

// Changes subscribes to the change channel and decodes every message. The
// returned channel is closed once ctx ends or the subscription drops.
func (r *ChangeRepository) Changes(ctx context.Context) (<-chan model.StudentChange, error) {
	sub := r.Subscribe(ctx)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe changes: %w", err)
	}

	out := make(chan model.StudentChange)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change model.StudentChange
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					r.log.Warn().Err(err).Msg("Dropping malformed change message")
					continue
				}
				select {
				case out <- change:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
