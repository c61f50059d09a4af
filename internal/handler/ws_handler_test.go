package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/student-records/internal/middleware"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/service"
	ws "github.com/stemsi/student-records/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type chanFeed struct {
	ch  chan model.StudentChange
	err error
}

func (f *chanFeed) Changes(ctx context.Context) (<-chan model.StudentChange, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func wsServer(t *testing.T, feed ChangeFeed, origins []string) *httptest.Server {
	t.Helper()
	h := NewWSHandler(feed, zerolog.Nop(), origins)
	r := gin.New()
	r.GET("/changes", func(c *gin.Context) {
		c.Set(middleware.ContextKeyClaims, &service.Claims{UserID: uuid.NewString(), Role: model.RoleUser})
	}, h.StudentChanges)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/changes"
}

func TestStudentChangesStreamsEvents(t *testing.T) {
	feed := &chanFeed{ch: make(chan model.StudentChange, 1)}
	srv := wsServer(t, feed, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	id := uuid.New()
	feed.ch <- model.StudentChange{Action: model.ActionDeleted, StudentID: id, ActorID: uuid.New()}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt ws.ChangeEvent
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, ws.EventStudentChanged, evt.Event)
	assert.Equal(t, model.ActionDeleted, evt.Action)
	assert.Equal(t, id.String(), evt.StudentID)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	var pong ws.PongResponse
	require.NoError(t, conn.ReadJSON(&pong))
	assert.Equal(t, ws.EventPong, pong.Event)
}

func TestStudentChangesRejectsForeignOrigin(t *testing.T) {
	feed := &chanFeed{ch: make(chan model.StudentChange)}
	srv := wsServer(t, feed, []string{"https://painel.escola.test"})

	header := http.Header{"Origin": []string{"https://evil.test"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://painel.escola.test")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	require.NoError(t, err)
	conn.Close()
}

func TestStudentChangesFeedDown(t *testing.T) {
	srv := wsServer(t, &chanFeed{err: errors.New("redis down")}, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthReportsDependencies(t *testing.T) {
	h := NewSystemHandler(map[string]Pinger{
		"postgres": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("refused") },
	}, zerolog.Nop())

	r := gin.New()
	r.GET("/health", h.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"down"`)
	assert.Contains(t, rec.Body.String(), `"postgres":"up"`)
}
