package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
	"github.com/stemsi/student-records/internal/validator"
	"github.com/xuri/excelize/v2"
)

const studentSheet = "Alunos"

// spreadsheetHeader is both the export header and the import column order.
var spreadsheetHeader = []interface{}{"Nome", "Matrícula", "Data de Nascimento", "E-mail", "Status"}

// ErrEmptyWorkbook is returned when an uploaded workbook has no sheets.
var ErrEmptyWorkbook = errors.New("workbook does not contain any sheets")

// SpreadsheetService imports and exports students as .xlsx workbooks.
type SpreadsheetService struct {
	students *StudentService
	log      zerolog.Logger
}

// NewSpreadsheetService creates a new SpreadsheetService.
func NewSpreadsheetService(students *StudentService, log zerolog.Logger) *SpreadsheetService {
	return &SpreadsheetService{
		students: students,
		log:      log.With().Str("component", "spreadsheet_service").Logger(),
	}
}

// Export writes every student, newest first, as a workbook.
func (s *SpreadsheetService) Export(ctx context.Context, w io.Writer) error {
	students, err := s.students.List(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), studentSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(studentSheet, "A1", &spreadsheetHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, st := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{st.Name, st.Enrollment, st.BirthDate, st.Email, string(st.Status)}
		if err := f.SetSheetRow(studentSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(studentSheet, "A", "A", 36)
	_ = f.SetColWidth(studentSheet, "B", "E", 20)

	return f.Write(w)
}

// Import reads students from the first sheet of a workbook and inserts them
// as created by actor. The first row is a header. Invalid or duplicate rows
// are skipped and reported; a storage failure aborts the import.
func (s *SpreadsheetService) Import(ctx context.Context, r io.Reader, actor uuid.UUID) (*model.ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", sheet, err)
	}

	result := &model.ImportResult{Skipped: []model.ImportSkip{}}
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		rowNum := i + 1

		fields := rowToFields(row)
		if errs := validator.Struct(fields); errs != nil {
			result.Skipped = append(result.Skipped, model.ImportSkip{Row: rowNum, Reason: validator.Summary(errs)})
			continue
		}

		if _, err := s.students.Create(ctx, fields, actor, actor); err != nil {
			if errors.Is(err, repository.ErrDuplicateEnrollment) {
				result.Skipped = append(result.Skipped, model.ImportSkip{Row: rowNum, Reason: "matrícula duplicada"})
				continue
			}
			return result, fmt.Errorf("import row %d: %w", rowNum, err)
		}
		result.Imported++
	}

	s.log.Info().
		Int("imported", result.Imported).
		Int("skipped", len(result.Skipped)).
		Str("actor_id", actor.String()).
		Msg("Student spreadsheet imported")

	return result, nil
}

func rowToFields(row []string) model.StudentFields {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return model.StudentFields{
		Name:       cell(0),
		Enrollment: cell(1),
		BirthDate:  normalizeDate(cell(2)),
		Email:      cell(3),
		Status:     normalizeStatus(cell(4)),
	}
}

// normalizeDate accepts ISO and Brazilian (dd/mm/yyyy) dates.
func normalizeDate(v string) string {
	if t, err := time.Parse("02/01/2006", v); err == nil {
		return t.Format(model.BirthDateLayout)
	}
	return v
}

// normalizeStatus accepts the stored values and their display labels.
// A blank status defaults to active, as in the form.
func normalizeStatus(v string) model.StudentStatus {
	switch strings.ToLower(v) {
	case "", "active", "ativo":
		return model.StatusActive
	case "inactive", "inativo":
		return model.StatusInactive
	}
	return model.StudentStatus(v)
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
