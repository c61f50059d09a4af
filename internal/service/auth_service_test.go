package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/student-records/internal/config"
	"github.com/stemsi/student-records/internal/model"
	"github.com/stemsi/student-records/internal/repository"
	"github.com/stemsi/student-records/internal/service/servicetest"
)

func newTestAuth() (*AuthService, *servicetest.UserStore, *servicetest.RoleStore, *servicetest.SessionStore) {
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, BcryptCost: 4}
	roles := servicetest.NewRoleStore()
	users := servicetest.NewUserStore(roles)
	sessions := servicetest.NewSessionStore()
	return NewAuthService(cfg, users, roles, sessions), users, roles, sessions
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	auth, _, _, _ := newTestAuth()

	u, err := auth.Register(ctx, " Admin@Escola.test ", "segredo123", "Maria Admin", model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin@escola.test", u.Email)

	resp, err := auth.Login(ctx, "admin@escola.test", "segredo123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, resp.User.ID)

	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.UserID)
	assert.True(t, claims.IsAdmin())
	assert.NoError(t, auth.ValidateSession(ctx, claims))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	auth, _, _, _ := newTestAuth()
	_, err := auth.Register(ctx, "prof@escola.test", "segredo123", "Prof", model.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name, email, password string
	}{
		{name: "unknown email", email: "nobody@escola.test", password: "segredo123"},
		{name: "wrong password", email: "prof@escola.test", password: "errada123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.Login(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestRegisterRejectsUnknownRoleAndDuplicates(t *testing.T) {
	ctx := context.Background()
	auth, _, _, _ := newTestAuth()

	_, err := auth.Register(ctx, "a@escola.test", "segredo123", "A", "owner")
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = auth.Register(ctx, "a@escola.test", "segredo123", "A", model.RoleUser)
	require.NoError(t, err)
	_, err = auth.Register(ctx, "A@escola.test", "segredo123", "A", model.RoleUser)
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestLogoutRevokesOnlyThatSession(t *testing.T) {
	ctx := context.Background()
	auth, _, _, _ := newTestAuth()
	_, err := auth.Register(ctx, "a@escola.test", "segredo123", "A", model.RoleUser)
	require.NoError(t, err)

	first, err := auth.Login(ctx, "a@escola.test", "segredo123")
	require.NoError(t, err)
	second, err := auth.Login(ctx, "a@escola.test", "segredo123")
	require.NoError(t, err)

	c1, err := auth.ValidateToken(first.Token)
	require.NoError(t, err)
	c2, err := auth.ValidateToken(second.Token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, c1))
	assert.ErrorIs(t, auth.ValidateSession(ctx, c1), ErrSessionRevoked)
	assert.NoError(t, auth.ValidateSession(ctx, c2))
}

func TestValidateTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	auth, _, _, _ := newTestAuth()
	u, err := auth.Register(ctx, "a@escola.test", "segredo123", "A", model.RoleUser)
	require.NoError(t, err)

	auth.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := auth.GenerateToken(ctx, u, model.RoleUser)
	require.NoError(t, err)
	auth.now = time.Now

	_, err = auth.ValidateToken(expired)
	assert.Error(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: u.ID.String(), Role: model.RoleAdmin})
	signed, err := foreign.SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)
}

func TestLoginWithoutRoleDefaultsToUser(t *testing.T) {
	ctx := context.Background()
	auth, users, roles, _ := newTestAuth()
	_, err := auth.Register(ctx, "a@escola.test", "segredo123", "A", model.RoleAdmin)
	require.NoError(t, err)
	u, err := users.GetByEmail(ctx, "a@escola.test")
	require.NoError(t, err)
	roles.Delete(u.ID)

	resp, err := auth.Login(ctx, "a@escola.test", "segredo123")
	require.NoError(t, err)
	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, claims.Role)
}

func TestGenerateTokenFailsWhenSessionStoreDown(t *testing.T) {
	ctx := context.Background()
	auth, _, _, sessions := newTestAuth()
	u, err := auth.Register(ctx, "a@escola.test", "segredo123", "A", model.RoleUser)
	require.NoError(t, err)

	sessions.Err = servicetest.ErrBoom
	_, err = auth.GenerateToken(ctx, u, model.RoleUser)
	assert.ErrorIs(t, err, servicetest.ErrBoom)
}
