// Package handler provides the HTTP API of the skill-swap marketplace.
package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/skillswap/internal/auth"
	"github.com/prn-tf/skillswap/internal/domain"
	"github.com/prn-tf/skillswap/internal/metrics"
)

// DatabaseChecker reports database health.
type DatabaseChecker interface {
	Health(ctx context.Context) error
}

// PhotoOpener streams stored photos.
type PhotoOpener interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Router wires handlers and middleware into one http.Handler.
type Router struct {
	userHandler     *UserHandler
	swapHandler     *SwapHandler
	feedbackHandler *FeedbackHandler
	adminHandler    *AdminHandler
	tokens          *auth.TokenService
	users           auth.UserLookup
	photos          PhotoOpener
	database        DatabaseChecker
	metrics         *metrics.Metrics
	corsOrigins     []string
	ownership       bool
	maxBodySize     int64
	uploadsPath     string
	logger          zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	UserHandler     *UserHandler
	SwapHandler     *SwapHandler
	FeedbackHandler *FeedbackHandler
	AdminHandler    *AdminHandler

	// Tokens validates bearer tokens; Users re-reads the admin flag.
	Tokens *auth.TokenService
	Users  auth.UserLookup

	// Photos serves GET {UploadsPath}/{ref}. Nil disables the route.
	Photos      PhotoOpener
	UploadsPath string

	// RequireOwnership limits profile updates to the profile owner and swap
	// request updates and deletes to the sender or receiver.
	RequireOwnership bool

	Database           DatabaseChecker
	Metrics            *metrics.Metrics
	CORSAllowedOrigins []string
	MaxBodySize        int64
	Logger             zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	uploads := config.UploadsPath
	if uploads == "" {
		uploads = "/uploads"
	}
	return &Router{
		userHandler:     config.UserHandler,
		swapHandler:     config.SwapHandler,
		feedbackHandler: config.FeedbackHandler,
		adminHandler:    config.AdminHandler,
		tokens:          config.Tokens,
		users:           config.Users,
		photos:          config.Photos,
		database:        config.Database,
		metrics:         config.Metrics,
		corsOrigins:     config.CORSAllowedOrigins,
		ownership:       config.RequireOwnership,
		maxBodySize:     config.MaxBodySize,
		uploadsPath:     path.Clean("/" + uploads),
		logger:          config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(rt.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if rt.maxBodySize > 0 {
		r.Use(middleware.RequestSize(rt.maxBodySize))
	}

	r.Get("/health", rt.handleHealth)
	if rt.photos != nil {
		r.Get(rt.uploadsPath+"/{ref}", rt.handleUpload)
	}

	var owner, party chi.Middlewares
	if rt.ownership {
		owner = chi.Middlewares{auth.RequireUser, rt.userHandler.RequireOwner}
		party = chi.Middlewares{auth.RequireUser, rt.swapHandler.RequireParty}
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(rt.tokens, rt.logger))

		r.Post("/auth/signup", rt.userHandler.Signup)
		r.Post("/auth/login", rt.userHandler.Login)

		r.Get("/profile/{id}", rt.userHandler.GetProfile)
		r.With(owner...).Put("/profile/{id}", rt.userHandler.UpdateProfile)
		r.Get("/users", rt.userHandler.ListUsers)

		// {id} is a user id for GET and a request id for PUT and DELETE.
		r.Post("/swap_requests", rt.swapHandler.Create)
		r.Get("/swap_requests/{id}", rt.swapHandler.ListForUser)
		r.With(party...).Put("/swap_requests/{id}", rt.swapHandler.UpdateStatus)
		r.With(party...).Delete("/swap_requests/{id}", rt.swapHandler.Delete)

		r.Post("/feedback", rt.feedbackHandler.Submit)
		r.Get("/feedback", rt.feedbackHandler.List)

		r.Get("/admin/platform_message", rt.adminHandler.GetPlatformMessage)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(rt.users, rt.logger))

			r.Get("/admin/users", rt.adminHandler.ListUsers)
			r.Put("/admin/users/{id}/ban", rt.adminHandler.SetBanned)
			r.Post("/admin/platform_message", rt.adminHandler.SetPlatformMessage)
			r.Get("/admin/swap_requests", rt.adminHandler.ListSwapRequests)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.database != nil {
		if err := rt.database.Health(r.Context()); err != nil {
			rt.logger.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleUpload streams a stored profile photo.
func (rt *Router) handleUpload(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	rc, err := rt.photos.Open(r.Context(), ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
			return
		}
		writeError(w, rt.logger, err)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(ref)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}
