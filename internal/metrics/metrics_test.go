package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.IncrementUsersCreated()
	m.IncrementUsersCreated()
	m.IncrementSwapRequestsCreated()
	m.IncrementSwapTransition("accepted")
	m.IncrementFeedbackSubmitted()
	m.IncrementUsersBanned(true)
	m.IncrementPlatformMessageRead("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UsersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapRequestsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SwapTransitions.WithLabelValues("accepted")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SwapTransitions.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedbackSubmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersBanned.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlatformMessageReads.WithLabelValues("hit")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	m.IncrementUsersCreated()
	m.IncrementSwapTransition("accepted")
	m.IncrementUsersBanned(false)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestMetrics_MiddlewareAndHandler(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))

	rec = httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `skillswap_http_request_duration_seconds_count{method="GET",route="/api/users/{id}",status="404"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
