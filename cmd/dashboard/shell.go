package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/stemsi/student-records/internal/dashboard"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/view"
)

// backend is the part of the store client the shell uses beyond RecordStore.
type backend interface {
	Summary(ctx context.Context) (*model.StudentSummary, error)
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, filename string, r io.Reader) (*model.ImportResult, error)
}

// shell runs the interactive command loop.
type shell struct {
	ctrl    *dashboard.Controller
	backend backend
	in      *bufio.Reader

	mu  sync.Mutex
	out io.Writer
}

var (
	errorColor = color.New(color.FgRed, color.Bold)
	okColor    = color.New(color.FgGreen)
	headColor  = color.New(color.Bold)
)

func newShell(in io.Reader, out io.Writer, b backend) *shell {
	return &shell{in: bufio.NewReader(in), out: out, backend: b}
}

// printf writes under the output lock so change-feed notices never split a
// line written by the command loop.
func (s *shell) printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// notify prints a notification as "[title] description".
func (s *shell) notify(n dashboard.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := okColor
	if n.Variant == dashboard.VariantDestructive {
		c = errorColor
	}
	c.Fprintf(s.out, "[%s]", n.Title)
	if n.Description != "" {
		fmt.Fprintf(s.out, " %s", n.Description)
	}
	fmt.Fprintln(s.out)
}

func (s *shell) heading(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	headColor.Fprintln(s.out, text)
}

func (s *shell) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ask prompts for a value; an empty answer keeps current.
func (s *shell) ask(label, current string) (string, error) {
	if current != "" {
		s.printf("%s [%s]: ", label, current)
	} else {
		s.printf("%s: ", label)
	}
	answer, err := s.readLine()
	if err != nil {
		return "", err
	}
	if answer == "" {
		return current, nil
	}
	return answer, nil
}

// confirm asks a yes/no question defaulting to no.
func (s *shell) confirm(question string) bool {
	s.printf("%s [s/N] ", question)
	answer, err := s.readLine()
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "s", "sim", "y", "yes":
		return true
	}
	return false
}

func (s *shell) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name := s.ctrl.UserName(); name != "" {
		headColor.Fprintf(s.out, "%s", name)
		if role := s.ctrl.Role(); role != "" {
			fmt.Fprintf(s.out, " (%s)", role)
		}
		fmt.Fprintln(s.out)
	}
	if term := s.ctrl.SearchTerm(); term != "" {
		fmt.Fprintf(s.out, "Busca: %q\n", term)
	}
	_ = view.Render(s.out, s.ctrl.View())
}

func (s *shell) help() {
	s.printf("Comandos:\n")
	s.printf("  buscar <termo>      filtra por nome ou matrícula (sem termo limpa)\n")
	s.printf("  atualizar           recarrega a lista\n")
	s.printf("  resumo              totais por status\n")
	s.printf("  exportar <arquivo>  salva a lista em .xlsx\n")
	if s.ctrl.IsAdmin() {
		s.printf("  novo                cadastra um aluno\n")
		s.printf("  editar <n>          edita o aluno da linha n\n")
		s.printf("  excluir <n>         exclui o aluno da linha n\n")
		s.printf("  importar <arquivo>  importa alunos de um .xlsx\n")
	}
	s.printf("  sair                encerra a sessão\n")
}

// run reads commands until "sair" or end of input.
func (s *shell) run(ctx context.Context) error {
	s.render()
	s.help()
	for {
		s.printf("> ")
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		switch strings.ToLower(cmd) {
		case "sair":
			return nil
		case "ajuda":
			s.help()
		case "buscar":
			s.ctrl.SetSearchTerm(arg)
			s.render()
		case "atualizar":
			_ = s.ctrl.FetchRecords(ctx)
			s.render()
		case "resumo":
			s.summary(ctx)
		case "exportar":
			s.export(ctx, arg)
		case "novo":
			if s.requireAdmin() {
				s.ctrl.OpenCreate()
				s.editForm(ctx)
			}
		case "editar":
			if record, ok := s.pick(arg); ok && s.requireAdmin() {
				s.ctrl.OpenEdit(record)
				s.editForm(ctx)
			}
		case "excluir":
			if record, ok := s.pick(arg); ok && s.requireAdmin() {
				if deleted, _ := s.ctrl.Delete(ctx, record.ID, s.confirm); deleted {
					s.render()
				}
			}
		case "importar":
			if s.requireAdmin() {
				s.importFile(ctx, arg)
			}
		default:
			s.printf("Comando desconhecido: %s (digite \"ajuda\")\n", cmd)
		}
	}
}

func (s *shell) requireAdmin() bool {
	if s.ctrl.IsAdmin() {
		return true
	}
	s.printf("Apenas administradores podem alterar alunos.\n")
	return false
}

// pick resolves a 1-based row number against the filtered rows.
func (s *shell) pick(arg string) (model.Student, bool) {
	rows := s.ctrl.Filtered()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(rows) {
		s.printf("Informe o número da linha (1-%d).\n", len(rows))
		return model.Student{}, false
	}
	return rows[n-1], true
}

// editForm prompts every field, pre-filled with the form's current values,
// and submits. Invalid input or a failed save offers another attempt.
func (s *shell) editForm(ctx context.Context) {
	form := s.ctrl.Form()
	defer form.Close()

	for form.IsOpen() {
		s.heading(form.Title())
		if err := s.fill(form); err != nil {
			return
		}

		err := form.Submit(ctx)
		if err == nil {
			s.render()
			return
		}

		var verr *dashboard.ValidationError
		if errors.As(err, &verr) {
			keys := make([]string, 0, len(verr.Fields))
			for k := range verr.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				s.printf("  - %s\n", verr.Fields[k])
			}
		}
		if !s.confirm("Tentar novamente?") {
			return
		}
	}
}

func (s *shell) fill(form *dashboard.Form) error {
	f := form.Fields()

	name, err := s.ask("Nome", f.Name)
	if err != nil {
		return err
	}
	enrollment, err := s.ask("Matrícula", f.Enrollment)
	if err != nil {
		return err
	}
	birth, err := s.ask("Data de Nascimento (AAAA-MM-DD)", f.BirthDate)
	if err != nil {
		return err
	}
	email, err := s.ask("E-mail", f.Email)
	if err != nil {
		return err
	}
	status, err := s.ask("Status (active/inactive)", string(f.Status))
	if err != nil {
		return err
	}

	form.SetName(name)
	form.SetEnrollment(enrollment)
	form.SetBirthDate(birth)
	form.SetEmail(email)
	form.SetStatus(parseStatus(status))
	return nil
}

// parseStatus accepts the stored values and their Portuguese labels.
func parseStatus(v string) model.StudentStatus {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ativo":
		return model.StatusActive
	case "inativo":
		return model.StatusInactive
	}
	return model.StudentStatus(strings.ToLower(strings.TrimSpace(v)))
}

func (s *shell) summary(ctx context.Context) {
	sum, err := s.backend.Summary(ctx)
	if err != nil {
		s.notify(dashboard.Notification{Title: "Erro", Description: err.Error(), Variant: dashboard.VariantDestructive})
		return
	}
	s.printf("Total: %d  Ativos: %d  Inativos: %d\n", sum.Total, sum.Active, sum.Inactive)
}

func (s *shell) export(ctx context.Context, path string) {
	if path == "" {
		s.printf("Uso: exportar <arquivo.xlsx>\n")
		return
	}
	f, err := os.Create(path)
	if err != nil {
		s.notify(dashboard.Notification{Title: "Erro ao exportar", Description: err.Error(), Variant: dashboard.VariantDestructive})
		return
	}
	err = s.backend.Export(ctx, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		s.notify(dashboard.Notification{Title: "Erro ao exportar", Description: err.Error(), Variant: dashboard.VariantDestructive})
		return
	}
	s.notify(dashboard.Notification{Title: "Exportação concluída", Description: path})
}

func (s *shell) importFile(ctx context.Context, path string) {
	if path == "" {
		s.printf("Uso: importar <arquivo.xlsx>\n")
		return
	}
	f, err := os.Open(path)
	if err != nil {
		s.notify(dashboard.Notification{Title: "Erro ao importar", Description: err.Error(), Variant: dashboard.VariantDestructive})
		return
	}
	defer f.Close()

	res, err := s.backend.Import(ctx, filepath.Base(path), f)
	if err != nil {
		s.notify(dashboard.Notification{Title: "Erro ao importar", Description: err.Error(), Variant: dashboard.VariantDestructive})
		return
	}
	s.notify(dashboard.Notification{
		Title:       "Importação concluída",
		Description: fmt.Sprintf("%d aluno(s) importado(s), %d linha(s) ignorada(s)", res.Imported, len(res.Skipped)),
	})
	for _, skip := range res.Skipped {
		s.printf("  linha %d: %s\n", skip.Row, skip.Reason)
	}
	_ = s.ctrl.FetchRecords(ctx)
	s.render()
}

// onChange refetches after a change-feed event.
func (s *shell) onChange(ctx context.Context) {
	if err := s.ctrl.FetchRecords(ctx); err == nil {
		s.printf("\n(lista atualizada, %d aluno(s))\n> ", len(s.ctrl.Filtered()))
	}
}
