// Package servicetest provides in-memory implementations of the service store
// interfaces for tests.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
)

// ErrBoom is a generic injected failure.
var ErrBoom = errors.New("boom")

// StudentStore keeps students in a map. Each insert advances a fake clock by
// one minute so List ordering is deterministic.
type StudentStore struct {
	mu       sync.Mutex
	students map[uuid.UUID]model.Student
	clock    time.Time
	// FailList, when set, is returned by List.
	FailList error
}

func NewStudentStore() *StudentStore {
	return &StudentStore{
		students: map[uuid.UUID]model.Student{},
		clock:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// Len returns the number of stored students.
func (f *StudentStore) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.students)
}

func (f *StudentStore) List(ctx context.Context) ([]model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailList != nil {
		return nil, f.FailList
	}
	out := make([]model.Student, 0, len(f.students))
	for _, s := range f.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *StudentStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.students[id]
	if !ok {
		return nil, repository.ErrStudentNotFound
	}
	return &s, nil
}

func (f *StudentStore) Create(ctx context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.students {
		if existing.Enrollment == s.Enrollment {
			return repository.ErrDuplicateEnrollment
		}
	}
	f.clock = f.clock.Add(time.Minute)
	s.ID = uuid.New()
	s.CreatedAt = f.clock
	s.UpdatedAt = f.clock
	f.students[s.ID] = *s
	return nil
}

func (f *StudentStore) Update(ctx context.Context, s *model.Student) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.students[s.ID]
	if !ok {
		return repository.ErrStudentNotFound
	}
	for id, other := range f.students {
		if id != s.ID && other.Enrollment == s.Enrollment {
			return repository.ErrDuplicateEnrollment
		}
	}
	s.CreatedBy = existing.CreatedBy
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = f.clock.Add(time.Hour)
	f.students[s.ID] = *s
	return nil
}

func (f *StudentStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.students[id]; !ok {
		return repository.ErrStudentNotFound
	}
	delete(f.students, id)
	return nil
}

func (f *StudentStore) Summary(ctx context.Context) (model.StudentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum model.StudentSummary
	for _, s := range f.students {
		sum.Total++
		if s.Status == model.StatusActive {
			sum.Active++
		} else {
			sum.Inactive++
		}
	}
	return sum, nil
}

// Publisher records every published change.
type Publisher struct {
	mu      sync.Mutex
	changes []model.StudentChange
	// Err, when set, is returned after recording the change.
	Err error
}

func (p *Publisher) Publish(ctx context.Context, change model.StudentChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
	return p.Err
}

// Changes returns a copy of the recorded changes.
func (p *Publisher) Changes() []model.StudentChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.StudentChange(nil), p.changes...)
}

// UserStore keeps accounts and profiles, writing roles through to a RoleStore
// the way the real repository does inside one transaction.
type UserStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]model.User
	profiles map[uuid.UUID]model.Profile
	roles    *RoleStore
}

func NewUserStore(roles *RoleStore) *UserStore {
	return &UserStore{
		users:    map[uuid.UUID]model.User{},
		profiles: map[uuid.UUID]model.Profile{},
		roles:    roles,
	}
}

func (f *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (f *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *UserStore) Create(ctx context.Context, u *model.User, fullName, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	f.users[u.ID] = *u
	f.profiles[u.ID] = model.Profile{ID: u.ID, FullName: fullName, CreatedAt: u.CreatedAt, UpdatedAt: u.CreatedAt}
	return f.roles.Set(ctx, u.ID, role)
}

func (f *UserStore) GetProfile(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return &p, nil
}

// DeleteProfile drops a profile, leaving the account in place.
func (f *UserStore) DeleteProfile(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.profiles, id)
}

// RoleStore maps users to roles.
type RoleStore struct {
	mu    sync.Mutex
	roles map[uuid.UUID]string
}

func NewRoleStore() *RoleStore {
	return &RoleStore{roles: map[uuid.UUID]string{}}
}

func (f *RoleStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[userID]
	if !ok {
		return nil, repository.ErrRoleNotFound
	}
	return &model.UserRole{UserID: userID, Role: role}, nil
}

func (f *RoleStore) Set(ctx context.Context, userID uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[userID] = role
	return nil
}

// Delete removes the role of a user.
func (f *RoleStore) Delete(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.roles, userID)
}

// SessionStore tracks live token IDs per user.
type SessionStore struct {
	mu   sync.Mutex
	live map[string]bool
	// Err, when set, fails every call.
	Err error
}

func NewSessionStore() *SessionStore {
	return &SessionStore{live: map[string]bool{}}
}

func (f *SessionStore) Add(ctx context.Context, userID, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.live[userID+"/"+jti] = true
	return nil
}

func (f *SessionStore) Exists(ctx context.Context, userID, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	return f.live[userID+"/"+jti], nil
}

func (f *SessionStore) Remove(ctx context.Context, userID, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, userID+"/"+jti)
	return nil
}
