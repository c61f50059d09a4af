// Package view turns the dashboard collection into a displayable table.
package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/student-records/internal/model"
)

// State selects which of the three mutually exclusive renderings applies.
type State int

const (
	StateLoading State = iota
	StateEmpty
	StateTable
)

// Action is a per-row affordance.
type Action string

const (
	ActionEdit   Action = "editar"
	ActionDelete Action = "excluir"
)

const (
	EmptyText   = "Nenhum aluno encontrado"
	LoadingText = "Carregando..."
)

var (
	baseColumns   = []string{"Nome", "Matrícula", "E-mail", "Data de Nascimento", "Status"}
	actionsColumn = "Ações"
)

// Row is one student as displayed.
type Row struct {
	ID         uuid.UUID
	Name       string
	Enrollment string
	Email      string
	BirthDate  string
	Status     string
	Actions    []Action
}

// Model is the render-ready collection.
type Model struct {
	State   State
	Columns []string
	Rows    []Row
}

// Build maps (records, loading, admin) onto a Model. Loading wins over
// everything; an empty collection shows the empty message. Only admins get
// the actions column.
func Build(records []model.Student, loading, admin bool) Model {
	switch {
	case loading:
		return Model{State: StateLoading}
	case len(records) == 0:
		return Model{State: StateEmpty}
	}

	cols := append([]string(nil), baseColumns...)
	if admin {
		cols = append(cols, actionsColumn)
	}

	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			ID:         r.ID,
			Name:       r.Name,
			Enrollment: r.Enrollment,
			Email:      r.Email,
			BirthDate:  FormatDate(r.BirthDate),
			Status:     r.Status.Label(),
		}
		if admin {
			rows[i].Actions = []Action{ActionEdit, ActionDelete}
		}
	}
	return Model{State: StateTable, Columns: cols, Rows: rows}
}

// FormatDate renders a YYYY-MM-DD calendar date as dd/mm/yyyy. The date is
// never shifted through a time zone. Unparseable input is returned as-is.
func FormatDate(iso string) string {
	t, err := time.Parse(model.BirthDateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

// Render writes m as an aligned text table. Rows are numbered from 1 so
// commands can refer to them.
func Render(w io.Writer, m Model) error {
	switch m.State {
	case StateLoading:
		_, err := fmt.Fprintln(w, LoadingText)
		return err
	case StateEmpty:
		_, err := fmt.Fprintln(w, EmptyText)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "#")
	for _, c := range m.Columns {
		fmt.Fprintf(tw, "\t%s", c)
	}
	fmt.Fprintln(tw)

	for i, r := range m.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s", i+1, r.Name, r.Enrollment, r.Email, r.BirthDate, r.Status)
		if len(r.Actions) > 0 {
			fmt.Fprint(tw, "\t")
			for j, a := range r.Actions {
				if j > 0 {
					fmt.Fprint(tw, " | ")
				}
				fmt.Fprint(tw, a)
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
