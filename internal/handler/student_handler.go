package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/middleware"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
	"github.com/stemsi/student-records/internal/response"
	"github.com/stemsi/student-records/internal/service"
	"github.com/stemsi/student-records/internal/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StudentHandler serves the student record endpoints.
type StudentHandler struct {
	studentService     *service.StudentService
	spreadsheetService *service.SpreadsheetService
	maxImportBytes     int64
	log                zerolog.Logger
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(
	studentService *service.StudentService,
	spreadsheetService *service.SpreadsheetService,
	maxImportBytes int64,
	log zerolog.Logger,
) *StudentHandler {
	return &StudentHandler{
		studentService:     studentService,
		spreadsheetService: spreadsheetService,
		maxImportBytes:     maxImportBytes,
		log:                log.With().Str("component", "student_handler").Logger(),
	}
}

// ListStudents godoc
// GET /api/v1/students
// Returns every student, newest first.
func (h *StudentHandler) ListStudents(c *gin.Context) {
	students, err := h.studentService.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List students failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}

// GetStudent godoc
// GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	student, err := h.studentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.failWrite(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// Summary godoc
// GET /api/v1/students/summary
// Returns the count of students per status.
func (h *StudentHandler) Summary(c *gin.Context) {
	sum, err := h.studentService.Summary(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Student summary failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, sum)
}

// CreateStudent godoc
// POST /api/v1/students
// Inserts a student. created_by must be the authenticated caller.
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var req model.CreateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	createdBy, err := uuid.Parse(req.CreatedBy)
	if err != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"created_by": "created_by inválido"})
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), req.StudentFields, createdBy, actor)
	if err != nil {
		h.failWrite(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"student": student})
}

// UpdateStudent godoc
// PUT /api/v1/students/:id
// Overwrites every writable field of a student.
func (h *StudentHandler) UpdateStudent(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	var req model.UpdateStudentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), id, req.StudentFields, actor)
	if err != nil {
		h.failWrite(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"student": student})
}

// DeleteStudent godoc
// DELETE /api/v1/students/:id
func (h *StudentHandler) DeleteStudent(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), id, actor); err != nil {
		h.failWrite(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ExportStudents godoc
// GET /api/v1/students/export
// Streams the student list as an .xlsx workbook.
func (h *StudentHandler) ExportStudents(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.spreadsheetService.Export(c.Request.Context(), &buf); err != nil {
		h.log.Error().Err(err).Msg("Student export failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	filename := fmt.Sprintf("alunos-%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportStudents godoc
// POST /api/v1/students/import
// Accepts a multipart "file" field holding an .xlsx workbook.
func (h *StudentHandler) ImportStudents(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	// Multipart framing adds a little on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImportBytes+64*1024)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	if fh.Size > h.maxImportBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
		response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer f.Close()

	result, err := h.spreadsheetService.Import(c.Request.Context(), f, actor)
	if err != nil {
		// No partial result means the upload was not a readable workbook.
		if result == nil {
			response.Fail(c, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile)
			return
		}
		h.log.Error().Err(err).Int("imported", result.Imported).Msg("Student import aborted")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// failWrite maps store errors onto HTTP responses.
func (h *StudentHandler) failWrite(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		response.Fail(c, http.StatusConflict, response.ErrDuplicateEnrollment)
	case errors.Is(err, service.ErrCreatorMismatch):
		response.Fail(c, http.StatusForbidden, response.ErrCreatorMismatch)
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Student write failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func parseStudentID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

func actorID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}
	id, err := claims.UserUUID()
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
		return uuid.Nil, false
	}
	return id, true
}
