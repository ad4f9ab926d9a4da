package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/skillswap/internal/config"
	"github.com/prn-tf/skillswap/internal/repository/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:               "127.0.0.1",
			ShutdownTimeout:    5 * time.Second,
			MaxBodySize:        1 << 20,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: sqlite.MemoryPath},
		Storage: config.StorageConfig{
			Backend:   "filesystem",
			DataDir:   dir,
			URLPrefix: "/uploads",
		},
		Auth: config.AuthConfig{
			TokenTTL:   time.Hour,
			Issuer:     "skillswap",
			BcryptCost: 4,
		},
		Admin:    config.AdminConfig{Bootstrap: true, Username: "admin", Password: "adminpass"},
		Feedback: config.FeedbackConfig{MinRating: 1, MaxRating: 5},
		Logging:  config.LoggingConfig{Level: "info", Format: "json"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func postJSON(t *testing.T, h http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func adminToken(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := postJSON(t, h, "/api/auth/login", map[string]string{"name": "admin", "password": "adminpass"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestNew_BootstrapsAdminWithGeneratedSecret(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	h := a.Handler()

	token := adminToken(t, h)
	rec := postJSON(t, h, "/api/admin/platform_message", map[string]string{"message": "hello"}, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	created, err := a.BootstrapAdmin(context.Background())
	require.NoError(t, err)
	assert.False(t, created)

	version, err := a.Database().Version(context.Background())
	require.NoError(t, err)
	assert.Positive(t, version)
}

func TestNew_WithoutBootstrap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Admin.Bootstrap = false
	a := newTestApp(t, cfg)

	rec := postJSON(t, a.Handler(), "/api/auth/login", map[string]string{"name": "admin", "password": "adminpass"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Auth.JWTSecret = "fixed-secret"
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port, KeyPrefix: "test:"}
	a := newTestApp(t, cfg)
	h := a.Handler()

	token := adminToken(t, h)
	rec := postJSON(t, h, "/api/admin/platform_message", map[string]string{"message": "cached"}, token)
	require.Equal(t, http.StatusOK, rec.Code)

	get := httptest.NewRecorder()
	h.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/admin/platform_message", nil))
	require.Equal(t, http.StatusOK, get.Code)
	assert.Contains(t, get.Body.String(), "cached")

	var cachedKeys []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "test:") {
			cachedKeys = append(cachedKeys, k)
		}
	}
	assert.NotEmpty(t, cachedKeys)

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)

	mr.Close()
	health = httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, health.Code)
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "oracle"
	_, err := New(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Port = freePort(t)
	cfg.Metrics = config.MetricsConfig{Enabled: true, Port: freePort(t), Path: "/metrics"}
	a := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	base := "http://" + cfg.Server.Addr()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(cfg.Metrics.Port) + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewLogger(t *testing.T) {
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger, closer, err = NewLogger(config.LoggingConfig{Level: "bogus"})
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	var buf bytes.Buffer
	l := newLogger(&buf, config.LoggingConfig{Format: "json", TimeFormat: time.RFC3339}, zerolog.DebugLevel)
	l.Debug().Str("k", "v").Msg("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
