package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/response"
	"github.com/stemsi/student-records/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	tokens  map[string]*service.Claims
	revoked map[string]bool
	err     error
}

func (f *fakeAuth) ValidateToken(tokenStr string) (*service.Claims, error) {
	c, ok := f.tokens[tokenStr]
	if !ok {
		return nil, errors.New("bad token")
	}
	return c, nil
}

func (f *fakeAuth) ValidateSession(ctx context.Context, claims *service.Claims) error {
	if f.err != nil {
		return f.err
	}
	if f.revoked[claims.ID] {
		return service.ErrSessionRevoked
	}
	return nil
}

func newFakeAuth() *fakeAuth {
	admin := &service.Claims{UserID: "a", Role: model.RoleAdmin}
	admin.ID = "jti-admin"
	user := &service.Claims{UserID: "u", Role: model.RoleUser}
	user.ID = "jti-user"
	return &fakeAuth{
		tokens:  map[string]*service.Claims{"admin-token": admin, "user-token": user},
		revoked: map[string]bool{},
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	return body.Error.Code
}

func protectedRouter(auth *fakeAuth) *gin.Engine {
	r := gin.New()
	g := r.Group("/", RequireAuth(auth), CheckSession(auth, zerolog.Nop()))
	g.GET("/me", func(c *gin.Context) { c.String(http.StatusOK, GetClaims(c).UserID) })
	g.DELETE("/students/:id", RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestRequireAuth(t *testing.T) {
	auth := newFakeAuth()
	r := protectedRouter(auth)

	tests := []struct {
		name   string
		target string
		header string
		status int
		code   response.ErrCode
	}{
		{name: "missing token", target: "/me", status: http.StatusUnauthorized, code: response.ErrTokenRequired},
		{name: "bad token", target: "/me", header: "Bearer nope", status: http.StatusUnauthorized, code: response.ErrTokenInvalid},
		{name: "bearer header", target: "/me", header: "Bearer user-token", status: http.StatusOK},
		{name: "lowercase scheme", target: "/me", header: "bearer admin-token", status: http.StatusOK},
		{name: "query token", target: "/me?token=user-token", status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	r := protectedRouter(newFakeAuth())

	req := httptest.NewRequest(http.MethodDelete, "/students/1", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, response.ErrAdminOnly, errorCode(t, rec))

	req = httptest.NewRequest(http.MethodDelete, "/students/1", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCheckSession(t *testing.T) {
	auth := newFakeAuth()
	r := protectedRouter(auth)

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer user-token")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	auth.revoked["jti-user"] = true
	rec := do()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, response.ErrSessionInvalidated, errorCode(t, rec))

	auth.revoked = map[string]bool{}
	auth.err = errors.New("redis down")
	rec = do()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	r := gin.New()
	r.POST("/login", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/signup", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, post("/login"))
	assert.Equal(t, http.StatusOK, post("/login"))
	assert.Equal(t, http.StatusTooManyRequests, post("/login"))
	assert.Equal(t, http.StatusOK, post("/signup"), "routes have separate budgets")

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, post("/login"))
}

func TestNoStore(t *testing.T) {
	r := gin.New()
	r.GET("/students", NoStore(), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/students", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("aluno ", 500)
	r := gin.New()
	r.Use(Brotli(CompressionConfig{MinLength: 100, SkipPaths: []string{"/export"}}))
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/export", func(c *gin.Context) { c.String(http.StatusOK, big) })

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Accept-Encoding", "gzip, br;q=1.0")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/big")
	require.Equal(t, "br", rec.Header().Get("Content-Encoding"))
	plain, err := io.ReadAll(brotli.NewReader(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, big, string(plain))

	rec = get("/small")
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", rec.Body.String())

	rec = get("/export")
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Equal(t, big, rec.Body.String())
}
