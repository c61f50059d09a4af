package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/student-records/internal/model"
)

var ErrRoleNotFound = errors.New("role not found")

// RoleRepository handles user_roles data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetByUserID retrieves the role of a user.
func (r *RoleRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserRole, error) {
	ur := &model.UserRole{UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`, userID,
	).Scan(&ur.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, err
	}
	return ur, nil
}

// Set assigns a role to a user, replacing any previous one.
func (r *RoleRepository) Set(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`,
		userID, role,
	)
	return err
}
