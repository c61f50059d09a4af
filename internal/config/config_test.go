package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{name: "empty allows all", raw: "", want: nil},
		{name: "single", raw: "http://localhost:5173", want: []string{"http://localhost:5173"}},
		{name: "trims and skips blanks", raw: " http://a.test , ,http://b.test ", want: []string{"http://a.test", "http://b.test"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseOrigins(tt.raw))
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_EXPIRY_HOURS", "2")
	t.Setenv("MAX_IMPORT_SIZE_MB", "1")
	t.Setenv("BCRYPT_COST", "not-a-number")
	t.Setenv("API_BASE_URL", "http://api.test/")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, int64(1024*1024), cfg.MaxImportBytes)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "http://api.test", cfg.APIBaseURL)
}
