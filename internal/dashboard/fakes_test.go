package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
)

// memStore is an in-memory RecordStore that counts calls.
type memStore struct {
	mu      sync.Mutex
	records []model.Student
	user    *model.UserIdentity
	profile *model.Profile
	role    *model.UserRole

	listErr   error
	insertErr error
	updateErr error
	deleteErr error
	userErr   error
	profErr   error
	roleErr   error

	// listGates, when set, holds one gate per ListRecords call, in call
	// order. A call blocks until its gate delivers the rows to return.
	listGates []chan []model.Student

	listCalls int
	inserts   []insertCall
	updates   []updateCall
	deletes   []uuid.UUID
	clock     time.Time
}

type insertCall struct {
	fields    model.StudentFields
	createdBy uuid.UUID
}

type updateCall struct {
	id     uuid.UUID
	fields model.StudentFields
}

func newMemStore(role string) *memStore {
	id := uuid.New()
	return &memStore{
		user:    &model.UserIdentity{ID: id, Email: "maria@escola.test"},
		profile: &model.Profile{ID: id, FullName: "Maria Admin"},
		role:    &model.UserRole{UserID: id, Role: role},
		clock:   time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) seed(fields ...model.StudentFields) {
	for _, f := range fields {
		_, _ = s.InsertRecord(context.Background(), f, s.user.ID)
	}
	s.mu.Lock()
	s.inserts = nil
	s.mu.Unlock()
}

func (s *memStore) ListRecords(ctx context.Context) ([]model.Student, error) {
	s.mu.Lock()
	s.listCalls++
	var gate chan []model.Student
	if s.listCalls <= len(s.listGates) {
		gate = s.listGates[s.listCalls-1]
	}
	err := s.listErr
	out := append([]model.Student(nil), s.records...)
	s.mu.Unlock()

	if gate != nil {
		select {
		case override := <-gate:
			if override != nil {
				out = override
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *memStore) InsertRecord(ctx context.Context, fields model.StudentFields, createdBy uuid.UUID) (*model.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts = append(s.inserts, insertCall{fields: fields, createdBy: createdBy})
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.clock = s.clock.Add(time.Minute)
	st := model.Student{
		ID:         uuid.New(),
		Name:       fields.Name,
		Enrollment: fields.Enrollment,
		BirthDate:  fields.BirthDate,
		Email:      fields.Email,
		Status:     fields.Status,
		CreatedBy:  &createdBy,
		CreatedAt:  s.clock,
		UpdatedAt:  s.clock,
	}
	// Newest first, like the store.
	s.records = append([]model.Student{st}, s.records...)
	return &st, nil
}

func (s *memStore) UpdateRecord(ctx context.Context, id uuid.UUID, fields model.StudentFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, updateCall{id: id, fields: fields})
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Name = fields.Name
			s.records[i].Enrollment = fields.Enrollment
			s.records[i].BirthDate = fields.BirthDate
			s.records[i].Email = fields.Email
			s.records[i].Status = fields.Status
			return nil
		}
	}
	return errors.New("Registro não encontrado.")
}

func (s *memStore) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return errors.New("Registro não encontrado.")
}

func (s *memStore) GetCurrentUser(ctx context.Context) (*model.UserIdentity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.userErr
}

func (s *memStore) GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profErr != nil {
		return nil, s.profErr
	}
	return s.profile, nil
}

func (s *memStore) GetUserRole(ctx context.Context, userID uuid.UUID) (*model.UserRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roleErr != nil {
		return nil, s.roleErr
	}
	return s.role, nil
}

func (s *memStore) calls() (lists, inserts, updates, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls, len(s.inserts), len(s.updates), len(s.deletes)
}

// recorder collects notifications.
type recorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.seen...)
}

func (r *recorder) last() Notification {
	all := r.all()
	if len(all) == 0 {
		return Notification{}
	}
	return all[len(all)-1]
}

func ana() model.StudentFields {
	return model.StudentFields{Name: "Ana Silva", Enrollment: "2024001", BirthDate: "2008-03-15", Email: "ana@escola.test", Status: model.StatusActive}
}

func bruno() model.StudentFields {
	return model.StudentFields{Name: "Bruno Souza", Enrollment: "2024002", BirthDate: "2007-11-02", Email: "bruno@escola.test", Status: model.StatusInactive}
}

func always(answer bool) (Confirm, *[]string) {
	var asked []string
	return func(q string) bool {
		asked = append(asked, q)
		return answer
	}, &asked
}
