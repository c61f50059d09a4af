package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
)

// StudentStore is the persistence contract of StudentService.
type StudentStore interface {
	List(ctx context.Context) ([]model.Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context) (model.StudentSummary, error)
}

// ChangePublisher announces student mutations.
type ChangePublisher interface {
	Publish(ctx context.Context, change model.StudentChange) error
}

// UserStore is the persistence contract for accounts and profiles.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, u *model.User, fullName, role string) error
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// RoleStore is the persistence contract for user roles.
type RoleStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserRole, error)
	Set(ctx context.Context, userID uuid.UUID, role string) error
}

// SessionStore tracks live token IDs.
type SessionStore interface {
	Add(ctx context.Context, userID, jti string, ttl time.Duration) error
	Exists(ctx context.Context, userID, jti string) (bool, error)
	Remove(ctx context.Context, userID, jti string) error
}
