package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/validator"
)

// ValidationError lists the fields that failed validation, keyed by their
// JSON names.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return validator.Summary(e.Fields)
}

// Form is the create/edit dialog. A nil record opens it in create mode.
type Form struct {
	store  RecordStore
	notify Notifier
	// onSuccess runs after a successful save, before the form closes.
	onSuccess func(ctx context.Context)

	mu         sync.Mutex
	open       bool
	editingID  uuid.UUID
	editing    bool
	fields     model.StudentFields
	submitting bool
}

// NewForm creates a closed form.
func NewForm(store RecordStore, notify Notifier, onSuccess func(ctx context.Context)) *Form {
	return &Form{store: store, notify: notify, onSuccess: onSuccess}
}

func blankFields() model.StudentFields {
	return model.StudentFields{Status: model.StatusActive}
}

// Open shows the form, pre-filled from record or blank when record is nil.
// Reopening always discards unsaved input.
func (f *Form) Open(record *model.Student) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	if record == nil {
		f.editing = false
		f.editingID = uuid.Nil
		f.fields = blankFields()
		return
	}
	f.editing = true
	f.editingID = record.ID
	f.fields = record.Fields()
}

// Close hides the form.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
}

func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// Editing reports whether the form edits an existing record.
func (f *Form) Editing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editing
}

// Fields returns the current input.
func (f *Form) Fields() model.StudentFields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields
}

// Submitting reports whether a save is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Form) set(apply func(*model.StudentFields)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apply(&f.fields)
}

func (f *Form) SetName(v string)       { f.set(func(s *model.StudentFields) { s.Name = v }) }
func (f *Form) SetEnrollment(v string) { f.set(func(s *model.StudentFields) { s.Enrollment = v }) }
func (f *Form) SetBirthDate(v string)  { f.set(func(s *model.StudentFields) { s.BirthDate = v }) }
func (f *Form) SetEmail(v string)      { f.set(func(s *model.StudentFields) { s.Email = v }) }

func (f *Form) SetStatus(v model.StudentStatus) {
	f.set(func(s *model.StudentFields) { s.Status = v })
}

// Title is the dialog heading.
func (f *Form) Title() string {
	if f.Editing() {
		return "Editar Aluno"
	}
	return "Novo Aluno"
}

// SubmitLabel is the caption of the submit button.
func (f *Form) SubmitLabel() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.submitting:
		return "Salvando..."
	case f.editing:
		return "Atualizar"
	default:
		return "Cadastrar"
	}
}

// Submit validates and saves the input. On success it notifies, runs the
// success hook and closes. On failure it notifies and stays open. Invalid
// input returns a *ValidationError without touching the store.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if !f.open {
		f.mu.Unlock()
		return ErrFormClosed
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	fields := f.fields
	editing, id := f.editing, f.editingID
	if errs := validator.Struct(fields); errs != nil {
		f.mu.Unlock()
		return &ValidationError{Fields: errs}
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	if err := f.save(ctx, editing, id, fields); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Não foi possível salvar o aluno"
		}
		f.notify.Notify(Notification{Title: "Erro", Description: msg, Variant: VariantDestructive})
		return err
	}

	if editing {
		f.notify.Notify(Notification{Title: "Aluno atualizado", Description: "As informações foram atualizadas com sucesso"})
	} else {
		f.notify.Notify(Notification{Title: "Aluno cadastrado", Description: "O aluno foi adicionado com sucesso"})
	}
	if f.onSuccess != nil {
		f.onSuccess(ctx)
	}
	f.Close()
	return nil
}

func (f *Form) save(ctx context.Context, editing bool, id uuid.UUID, fields model.StudentFields) error {
	user, err := f.store.GetCurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotAuthenticated
	}

	if editing {
		return f.store.UpdateRecord(ctx, id, fields)
	}
	_, err = f.store.InsertRecord(ctx, fields, user.ID)
	return err
}
