package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/model"
)

// ErrCreatorMismatch is returned when an insert names a creator other than the caller.
var ErrCreatorMismatch = errors.New("created_by does not match the authenticated user")

// StudentService handles student business logic.
type StudentService struct {
	store     StudentStore
	publisher ChangePublisher
	log       zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(store StudentStore, publisher ChangePublisher, log zerolog.Logger) *StudentService {
	return &StudentService{
		store:     store,
		publisher: publisher,
		log:       log.With().Str("component", "student_service").Logger(),
	}
}

// List retrieves every student ordered by creation time, newest first.
func (s *StudentService) List(ctx context.Context) ([]model.Student, error) {
	students, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, nil
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return s.store.GetByID(ctx, id)
}

// Summary returns the status distribution of all students.
func (s *StudentService) Summary(ctx context.Context) (model.StudentSummary, error) {
	return s.store.Summary(ctx)
}

// Create inserts a student owned by createdBy, which must be the caller.
func (s *StudentService) Create(ctx context.Context, fields model.StudentFields, createdBy, actor uuid.UUID) (*model.Student, error) {
	if createdBy != actor {
		return nil, ErrCreatorMismatch
	}

	student := &model.Student{
		Name:       fields.Name,
		Enrollment: fields.Enrollment,
		BirthDate:  fields.BirthDate,
		Email:      fields.Email,
		Status:     fields.Status,
		CreatedBy:  &createdBy,
	}
	if err := s.store.Create(ctx, student); err != nil {
		return nil, err
	}

	s.publish(ctx, model.StudentChange{Action: model.ActionCreated, StudentID: student.ID, ActorID: actor, Snapshot: student})
	return student, nil
}

// Update overwrites every writable field of a student.
func (s *StudentService) Update(ctx context.Context, id uuid.UUID, fields model.StudentFields, actor uuid.UUID) (*model.Student, error) {
	student := &model.Student{
		ID:         id,
		Name:       fields.Name,
		Enrollment: fields.Enrollment,
		BirthDate:  fields.BirthDate,
		Email:      fields.Email,
		Status:     fields.Status,
	}
	if err := s.store.Update(ctx, student); err != nil {
		return nil, err
	}

	s.publish(ctx, model.StudentChange{Action: model.ActionUpdated, StudentID: id, ActorID: actor, Snapshot: student})
	return student, nil
}

// Delete removes a student by ID.
func (s *StudentService) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, model.StudentChange{Action: model.ActionDeleted, StudentID: id, ActorID: actor})
	return nil
}

// publish never fails the mutation: the row is already committed.
func (s *StudentService) publish(ctx context.Context, change model.StudentChange) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.log.Warn().Err(err).
			Str("student_id", change.StudentID.String()).
			Str("action", string(change.Action)).
			Msg("Failed to publish student change")
	}
}
