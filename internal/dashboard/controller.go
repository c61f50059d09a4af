package dashboard

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/view"
	"golang.org/x/sync/errgroup"
)

const deleteQuestion = "Tem certeza que deseja excluir este aluno?"

// Controller owns the dashboard state: the fetched collection, the search
// term and its filtered view, the loading flag and the signed-in user.
//
// Fetches are sequenced: each one takes a generation number and only the
// newest may replace the collection or clear the loading flag.
type Controller struct {
	store  RecordStore
	notify Notifier
	log    zerolog.Logger
	form   *Form

	mu       sync.RWMutex
	records  []model.Student
	filtered []model.Student
	search   string
	loading  bool
	gen      uint64
	userName string
	role     string
}

// NewController creates a controller. Nothing is fetched until Activate.
func NewController(store RecordStore, notify Notifier, log zerolog.Logger) *Controller {
	c := &Controller{
		store:    store,
		notify:   notify,
		log:      log.With().Str("component", "dashboard").Logger(),
		records:  []model.Student{},
		filtered: []model.Student{},
		loading:  true,
	}
	c.form = NewForm(store, notify, func(ctx context.Context) { _ = c.FetchRecords(ctx) })
	return c
}

// Activate loads the user header and the collection concurrently.
func (c *Controller) Activate(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		c.loadUser(ctx)
		return nil
	})
	g.Go(func() error {
		return c.FetchRecords(ctx)
	})
	return g.Wait()
}

// loadUser resolves the display name and role independently. Failures are
// only logged; a missing profile never hides the role.
func (c *Controller) loadUser(ctx context.Context) {
	user, err := c.store.GetCurrentUser(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("Error fetching user data")
		return
	}
	if user == nil {
		return
	}

	profile, err := c.store.GetUserProfile(ctx, user.ID)
	if err != nil {
		c.log.Error().Err(err).Msg("Error fetching user profile")
	} else if profile != nil {
		c.mu.Lock()
		c.userName = profile.FullName
		c.mu.Unlock()
	}

	role, err := c.store.GetUserRole(ctx, user.ID)
	if err != nil {
		c.log.Error().Err(err).Msg("Error fetching user role")
		return
	}
	if role != nil {
		c.mu.Lock()
		c.role = role.Role
		c.mu.Unlock()
	}
}

// FetchRecords replaces the collection with a fresh full fetch. A failure
// keeps the previous collection, notifies and is returned.
func (c *Controller) FetchRecords(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	records, err := c.store.ListRecords(ctx)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("Discarding stale fetch")
		return nil
	}
	c.loading = false
	if err == nil {
		if records == nil {
			records = []model.Student{}
		}
		c.records = records
		c.filtered = Filter(records, c.search)
	}
	c.mu.Unlock()

	if err != nil {
		c.notify.Notify(Notification{Title: "Erro ao carregar alunos", Description: err.Error(), Variant: VariantDestructive})
		return err
	}
	return nil
}

// SetSearchTerm updates the term and recomputes the filtered view.
func (c *Controller) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = term
	c.filtered = Filter(c.records, term)
}

func (c *Controller) SearchTerm() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.search
}

// Records returns the full collection.
func (c *Controller) Records() []model.Student {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Student(nil), c.records...)
}

// Filtered returns the rows matching the search term, in collection order.
func (c *Controller) Filtered() []model.Student {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Student(nil), c.filtered...)
}

func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// UserName is the display name of the signed-in user, empty until resolved.
func (c *Controller) UserName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userName
}

// Role is the role of the signed-in user, empty until resolved.
func (c *Controller) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// IsAdmin gates the add, edit and delete affordances. The store enforces
// the same rule on its side.
func (c *Controller) IsAdmin() bool {
	return c.Role() == model.RoleAdmin
}

// Form returns the create/edit form.
func (c *Controller) Form() *Form {
	return c.form
}

// OpenCreate opens a blank form.
func (c *Controller) OpenCreate() {
	c.form.Open(nil)
}

// OpenEdit opens the form pre-filled with record.
func (c *Controller) OpenEdit(record model.Student) {
	c.form.Open(&record)
}

// Delete removes a record after confirmation. A declined confirmation does
// nothing and returns false.
func (c *Controller) Delete(ctx context.Context, id uuid.UUID, confirm Confirm) (bool, error) {
	if !confirm(deleteQuestion) {
		return false, nil
	}

	if err := c.store.DeleteRecord(ctx, id); err != nil {
		c.notify.Notify(Notification{Title: "Erro ao excluir aluno", Description: err.Error(), Variant: VariantDestructive})
		return true, err
	}

	c.notify.Notify(Notification{Title: "Aluno excluído", Description: "O aluno foi removido com sucesso"})
	_ = c.FetchRecords(ctx)
	return true, nil
}

// View builds the collection view of the filtered rows.
func (c *Controller) View() view.Model {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return view.Build(c.filtered, c.loading, c.role == model.RoleAdmin)
}

// Filter returns the records whose name or enrollment contains term, ignoring
// case. An empty term matches everything. Order is preserved.
func Filter(records []model.Student, term string) []model.Student {
	out := make([]model.Student, 0, len(records))
	needle := strings.ToLower(term)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Name), needle) ||
			strings.Contains(strings.ToLower(r.Enrollment), needle) {
			out = append(out, r)
		}
	}
	return out
}
