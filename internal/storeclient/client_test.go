package storeclient

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/handler"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/response"
	"github.com/stemsi/student-records/internal/router"
	"github.com/stemsi/student-records/internal/service"
	"github.com/stemsi/student-records/internal/service/servicetest"
	"github.com/stemsi/student-records/internal/validator"
	ws "github.com/stemsi/student-records/internal/websocket"
)

func init() {
	validator.Setup()
}

// feed hands out one channel per subscriber and announces each subscription.
type feed struct {
	subscribed chan chan model.StudentChange
}

func (f *feed) Changes(ctx context.Context) (<-chan model.StudentChange, error) {
	ch := make(chan model.StudentChange, 1)
	f.subscribed <- ch
	return ch, nil
}

type fixture struct {
	srv     *httptest.Server
	feed    *feed
	adminID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := &config.Config{
		GinMode:            gin.TestMode,
		JWTSecret:          "client-test",
		JWTExpiry:          time.Hour,
		BcryptCost:         4,
		MaxImportBytes:     1 << 20,
		LoginRatePerMinute: 100,
	}
	log := zerolog.Nop()

	roles := servicetest.NewRoleStore()
	users := servicetest.NewUserStore(roles)
	authSvc := service.NewAuthService(cfg, users, roles, servicetest.NewSessionStore())
	userSvc := service.NewUserService(users, roles)
	studentSvc := service.NewStudentService(servicetest.NewStudentStore(), nil, log)
	f := &feed{subscribed: make(chan chan model.StudentChange, 1)}

	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authSvc, userSvc, log),
		User:    handler.NewUserHandler(userSvc),
		Student: handler.NewStudentHandler(studentSvc, service.NewSpreadsheetService(studentSvc, log), cfg.MaxImportBytes, log),
		WS:      handler.NewWSHandler(f, log, nil),
		System:  handler.NewSystemHandler(nil, log),
	}
	srv := httptest.NewServer(router.SetupRouter(ctx, authSvc, handlers, cfg, log))
	t.Cleanup(srv.Close)

	admin, err := authSvc.Register(ctx, "admin@escola.test", "segredo123", "Maria Admin", model.RoleAdmin)
	require.NoError(t, err)
	_, err = authSvc.Register(ctx, "prof@escola.test", "segredo123", "João Professor", model.RoleUser)
	require.NoError(t, err)

	return &fixture{srv: srv, feed: f, adminID: admin.ID}
}

func (f *fixture) client() *Client {
	return New(f.srv.URL, f.srv.Client(), zerolog.Nop())
}

func ana() model.StudentFields {
	return model.StudentFields{
		Name:       "Ana Silva",
		Enrollment: "2024001",
		BirthDate:  "2008-03-15",
		Email:      "ana@escola.test",
		Status:     model.StatusActive,
	}
}

func TestSessionLifecycle(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	c := fx.client()

	u, err := c.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u, "no token means no user")

	_, err = c.Login(ctx, "admin@escola.test", "errada123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "E-mail ou senha incorretos.", err.Error())

	resp, err := c.Login(ctx, "admin@escola.test", "segredo123")
	require.NoError(t, err)
	assert.NotEmpty(t, c.Token())

	u, err = c.GetCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, resp.User.ID, u.ID)

	profile, err := c.GetUserProfile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "Maria Admin", profile.FullName)

	role, err := c.GetUserRole(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, role)
	assert.Equal(t, model.RoleAdmin, role.Role)

	missing, err := c.GetUserProfile(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	stale := c.Token()
	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	c.SetToken(stale)
	u, err = c.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u, "revoked session reads as signed out")
}

func TestRecordCRUD(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	admin := fx.client()
	_, err := admin.Login(ctx, "admin@escola.test", "segredo123")
	require.NoError(t, err)

	created, err := admin.InsertRecord(ctx, ana(), fx.adminID)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	fields := ana()
	fields.Status = model.StatusInactive
	require.NoError(t, admin.UpdateRecord(ctx, created.ID, fields))

	list, err := admin.ListRecords(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusInactive, list[0].Status)

	sum, err := admin.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inactive)

	_, err = admin.InsertRecord(ctx, ana(), fx.adminID)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, response.ErrDuplicateEnrollment, apiErr.Code)

	require.NoError(t, admin.DeleteRecord(ctx, created.ID))
	err = admin.DeleteRecord(ctx, created.ID)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	list, err = admin.ListRecords(ctx)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestUserCannotWrite(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	c := fx.client()
	resp, err := c.Login(ctx, "prof@escola.test", "segredo123")
	require.NoError(t, err)

	_, err = c.InsertRecord(ctx, ana(), resp.User.ID)
	require.Error(t, err)
	assert.Equal(t, "Apenas administradores podem realizar esta ação.", err.Error())
}

func TestImportExport(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	c := fx.client()
	_, err := c.Login(ctx, "admin@escola.test", "segredo123")
	require.NoError(t, err)

	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &[]interface{}{"Nome", "Matrícula", "Data de Nascimento", "E-mail", "Status"}))
	require.NoError(t, wb.SetSheetRow(sheet, "A2", &[]interface{}{"Ana Silva", "2024001", "15/03/2008", "ana@escola.test", "Ativo"}))
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))

	result, err := c.Import(ctx, "alunos.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	var out bytes.Buffer
	require.NoError(t, c.Export(ctx, &out))
	exported, err := excelize.OpenReader(&out)
	require.NoError(t, err)
	rows, err := exported.GetRows("Alunos")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2008-03-15", rows[1][2])
}

func TestWatch(t *testing.T) {
	fx := newFixture(t)
	c := fx.client()

	assert.ErrorIs(t, c.Watch(context.Background(), func(ws.ChangeEvent) {}), ErrNotSignedIn)

	_, err := c.Login(context.Background(), "prof@escola.test", "segredo123")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan ws.ChangeEvent, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Watch(ctx, func(e ws.ChangeEvent) { events <- e })
	}()

	var sub chan model.StudentChange
	select {
	case sub = <-fx.feed.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("dashboard never subscribed")
	}

	id := uuid.New()
	sub <- model.StudentChange{Action: model.ActionCreated, StudentID: id}

	select {
	case e := <-events:
		assert.Equal(t, model.ActionCreated, e.Action)
		assert.Equal(t, id.String(), e.StudentID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
