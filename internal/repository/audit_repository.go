package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/student-records/internal/model"
)

// AuditRepository appends student changes to student_audit_log.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert records one change. Deletions carry no snapshot.
func (r *AuditRepository) Insert(ctx context.Context, change model.StudentChange) error {
	var snapshot []byte
	if change.Snapshot != nil {
		b, err := json.Marshal(change.Snapshot)
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		snapshot = b
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO student_audit_log (student_id, action, actor_id, snapshot)
		 VALUES ($1, $2, $3, $4)`,
		change.StudentID, string(change.Action), change.ActorID, snapshot,
	)
	return err
}
