package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
)

// UserService resolves identities, profiles and roles.
type UserService struct {
	users UserStore
	roles RoleStore
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore, roles RoleStore) *UserService {
	return &UserService{users: users, roles: roles}
}

// GetIdentity returns the public identity of a user.
func (s *UserService) GetIdentity(ctx context.Context, id uuid.UUID) (*model.UserIdentity, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.UserIdentity{ID: u.ID, Email: u.Email}, nil
}

// GetProfile returns the display profile of a user.
func (s *UserService) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return s.users.GetProfile(ctx, id)
}

// GetRole returns the role of a user.
func (s *UserService) GetRole(ctx context.Context, userID uuid.UUID) (*model.UserRole, error) {
	return s.roles.GetByUserID(ctx, userID)
}

// SetRoleByEmail changes the role of the account registered under email.
func (s *UserService) SetRoleByEmail(ctx context.Context, email, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, ErrUnknownRole
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.roles.Set(ctx, u.ID, role); err != nil {
		return nil, err
	}
	return u, nil
}
