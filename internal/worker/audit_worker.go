package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/model"
)

// AuditSink persists student changes.
type AuditSink interface {
	Insert(ctx context.Context, change model.StudentChange) error
}

// AuditWorker consumes the student audit queue and writes each change to the
// audit log.
type AuditWorker struct {
	queue      Queue
	sink       AuditSink
	log        zerolog.Logger
	popTimeout time.Duration
	retryDelay time.Duration
}

// NewAuditWorker creates a new AuditWorker.
func NewAuditWorker(queue Queue, sink AuditSink, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		queue:      queue,
		sink:       sink,
		log:        log.With().Str("component", "audit_worker").Logger(),
		popTimeout: time.Second,
		retryDelay: 5 * time.Second,
	}
}

// Start runs the worker loop until ctx is cancelled, then drains what is
// left in the queue. Call in a goroutine.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AuditWorker) processNext(ctx context.Context) {
	raw, err := w.queue.Pop(ctx, w.popTimeout)
	if err != nil {
		if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Queue pop error")
		}
		return
	}

	change, ok := w.decode(raw)
	if !ok {
		return
	}

	// A popped entry is owned by this worker; shutdown must not cut its
	// insert or requeue short.
	persistCtx := context.WithoutCancel(ctx)
	if err := w.sink.Insert(persistCtx, change); err != nil {
		w.log.Error().Err(err).
			Str("student_id", change.StudentID.String()).
			Str("action", string(change.Action)).
			Msg("Audit insert failed, retrying")
		if err := w.queue.Requeue(persistCtx, raw); err != nil {
			w.log.Error().Err(err).Msg("Requeue failed, audit entry lost")
		}
		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
	}
}

// decode drops payloads that can never be persisted.
func (w *AuditWorker) decode(raw string) (model.StudentChange, bool) {
	var change model.StudentChange
	if err := json.Unmarshal([]byte(raw), &change); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return change, false
	}
	return change, true
}

// drain processes all remaining items in the queue before shutdown.
func (w *AuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.queue.TryPop(ctx)
		if err != nil {
			break
		}

		change, ok := w.decode(raw)
		if !ok {
			continue
		}

		if err := w.sink.Insert(ctx, change); err != nil {
			w.log.Error().Err(err).Msg("Drain insert error")
			_ = w.queue.Requeue(ctx, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
