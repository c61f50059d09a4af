package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentStatus is the enrollment state of a student.
type StudentStatus string

const (
	StatusActive   StudentStatus = "active"
	StatusInactive StudentStatus = "inactive"
)

// Valid reports whether s is one of the two known statuses.
func (s StudentStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Label returns the display label used in the dashboard.
func (s StudentStatus) Label() string {
	if s == StatusActive {
		return "Ativo"
	}
	return "Inativo"
}

// BirthDateLayout is the wire and form layout of Student.BirthDate.
const BirthDateLayout = "2006-01-02"

// Student is a persisted student record.
type Student struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Enrollment string        `json:"enrollment"`
	BirthDate  string        `json:"birth_date"`
	Email      string        `json:"email"`
	Status     StudentStatus `json:"status"`
	CreatedBy  *uuid.UUID    `json:"created_by,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Fields returns the user-editable fields of the record.
func (s Student) Fields() StudentFields {
	return StudentFields{
		Name:       s.Name,
		Enrollment: s.Enrollment,
		BirthDate:  s.BirthDate,
		Email:      s.Email,
		Status:     s.Status,
	}
}

// StudentFields is the full set of writable student fields. Updates always
// overwrite every field.
type StudentFields struct {
	Name       string        `json:"name" binding:"required,max=100"`
	Enrollment string        `json:"enrollment" binding:"required,max=50"`
	BirthDate  string        `json:"birth_date" binding:"required,datetime=2006-01-02"`
	Email      string        `json:"email" binding:"required,email,max=255"`
	Status     StudentStatus `json:"status" binding:"required,oneof=active inactive"`
}

// CreateStudentRequest is the payload for inserting a student.
// CreatedBy must name the authenticated caller.
type CreateStudentRequest struct {
	StudentFields
	CreatedBy string `json:"created_by" binding:"required,uuid"`
}

// UpdateStudentRequest is the payload for a full-field student update.
type UpdateStudentRequest struct {
	StudentFields
}

// StudentSummary holds the status distribution of the students table.
type StudentSummary struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// ImportSkip reports a spreadsheet row that was not imported.
type ImportSkip struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult is returned after a spreadsheet import.
type ImportResult struct {
	Imported int          `json:"imported"`
	Skipped  []ImportSkip `json:"skipped"`
}
