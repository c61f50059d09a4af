// Package dashboard holds the state of the student records dashboard: the
// controller behind the list and the create/edit form.
package dashboard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
)

// Errors surfaced to the operator.
var (
	ErrNotAuthenticated = errors.New("Usuário não autenticado")
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrFormClosed       = errors.New("form is not open")
)

// RecordStore is the remote store behind the dashboard.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]model.Student, error)
	InsertRecord(ctx context.Context, fields model.StudentFields, createdBy uuid.UUID) (*model.Student, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, fields model.StudentFields) error
	DeleteRecord(ctx context.Context, id uuid.UUID) error
	// GetCurrentUser returns nil without error when nobody is signed in.
	GetCurrentUser(ctx context.Context) (*model.UserIdentity, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	GetUserRole(ctx context.Context, userID uuid.UUID) (*model.UserRole, error)
}

// Variant is the visual weight of a notification.
type Variant int

const (
	VariantDefault Variant = iota
	VariantDestructive
)

// Notification is a transient, non-blocking message for the operator.
type Notification struct {
	Title       string
	Description string
	Variant     Variant
}

// Notifier shows notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Confirm asks the operator a yes/no question.
type Confirm func(question string) bool
