package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Database.IsEmbedded())
	assert.Equal(t, "filesystem", cfg.Storage.Backend)
	assert.Equal(t, []string{"png", "jpg", "jpeg", "gif"}, cfg.Storage.AllowedExtensions)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 1, cfg.Feedback.MinRating)
	assert.Equal(t, 5, cfg.Feedback.MaxRating)
	assert.False(t, cfg.Swap.StrictTransitions)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8088
swap:
  strict_transitions: true
feedback:
  max_rating: 10
logging:
  level: debug
`), 0o600))

	t.Setenv("SKILLSWAP_SERVER_PORT", "9099")
	t.Setenv("SKILLSWAP_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9099, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Swap.StrictTransitions)
	assert.Equal(t, 10, cfg.Feedback.MaxRating)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "0.0.0.0:9099", cfg.Server.Addr())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 5000},
			Database: DatabaseConfig{Driver: "sqlite", Path: "x.db"},
			Storage:  StorageConfig{Backend: "filesystem", DataDir: "data"},
			Auth:     AuthConfig{TokenTTL: time.Hour},
			Admin:    AdminConfig{Bootstrap: true, Username: "admin", Password: "pw"},
			Feedback: FeedbackConfig{MinRating: 1, MaxRating: 5},
			Logging:  LoggingConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, true},
		{"postgres without host", func(c *Config) { c.Database = DatabaseConfig{Driver: "postgres", User: "u", Database: "d"} }, true},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = "s3" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "ftp" }, true},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, true},
		{"bootstrap without password", func(c *Config) { c.Admin.Password = "" }, true},
		{"bootstrap disabled", func(c *Config) { c.Admin = AdminConfig{} }, false},
		{"inverted rating scale", func(c *Config) { c.Feedback.MinRating = 6 }, true},
		{"metrics bad port", func(c *Config) { c.Metrics = MetricsConfig{Enabled: true} }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "skillswap", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=skillswap sslmode=disable", c.DSN())
}
