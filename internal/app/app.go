// Package app wires configuration, storage, services and the HTTP router
// into a runnable skill-swap server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prn-tf/skillswap/internal/auth"
	"github.com/prn-tf/skillswap/internal/cache/memory"
	rediscache "github.com/prn-tf/skillswap/internal/cache/redis"
	"github.com/prn-tf/skillswap/internal/config"
	"github.com/prn-tf/skillswap/internal/handler"
	"github.com/prn-tf/skillswap/internal/lock"
	"github.com/prn-tf/skillswap/internal/metrics"
	"github.com/prn-tf/skillswap/internal/pkg/crypto"
	"github.com/prn-tf/skillswap/internal/repository"
	"github.com/prn-tf/skillswap/internal/repository/postgres"
	"github.com/prn-tf/skillswap/internal/repository/sqlite"
	"github.com/prn-tf/skillswap/internal/service"
	"github.com/prn-tf/skillswap/internal/storage"
	"github.com/prn-tf/skillswap/internal/storage/filesystem"
	"github.com/prn-tf/skillswap/internal/storage/s3store"
)

// Database is the lifecycle surface shared by the SQLite and PostgreSQL drivers.
type Database interface {
	Health(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	Version(ctx context.Context) (int, error)
}

// OpenDatabase connects to the configured driver and returns its repositories.
// Migrations are not applied.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (Database, *repository.Repositories, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewRepositories(db), nil
	case "sqlite", "":
		sc := sqlite.DefaultConfig(cfg.Path)
		if cfg.JournalMode != "" {
			sc.JournalMode = cfg.JournalMode
		}
		if cfg.BusyTimeout > 0 {
			sc.BusyTimeout = cfg.BusyTimeout
		}
		if cfg.CacheSize != 0 {
			sc.CacheSize = cfg.CacheSize
		}
		if cfg.SynchronousMode != "" {
			sc.SynchronousMode = cfg.SynchronousMode
		}
		db, err := sqlite.NewDB(ctx, sc, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewRepositories(db), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// App holds the wired server components.
type App struct {
	cfg     *config.Config
	logger  zerolog.Logger
	db      Database
	metrics *metrics.Metrics

	users      *service.UserService
	moderation *service.ModerationService

	handler http.Handler
	closers []func() error
}

// New builds every component from cfg: it connects the database and applies
// migrations, selects the cache, lock and photo backends, bootstraps the
// administrator when configured and assembles the router.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	db, repos, err := OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	checks := healthChecks{db}

	var cache repository.Cache
	var locker lock.Locker
	if cfg.Redis.Enabled {
		client, err := rediscache.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		cache = rediscache.NewCache(client.Client, cfg.Redis.KeyPrefix)
		locker = lock.NewRedisLocker(client.Client)
		checks = append(checks, client)
		logger.Info().Str("addr", cfg.Redis.Addr()).Msg("using redis for cache and locks")
	} else {
		mc := memory.NewCache(time.Minute)
		ml := lock.NewMemoryLocker()
		a.closers = append(a.closers, func() error { mc.Stop(); ml.Stop(); return nil })
		cache, locker = mc, ml
	}

	backend, err := openBackend(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo storage: %w", err)
	}
	photos := storage.NewPhotoStore(backend, cfg.Storage.AllowedExtensions, cfg.Storage.MaxPhotoSize)

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		if secret, err = crypto.GenerateSecret(); err != nil {
			return nil, err
		}
		logger.Warn().Msg("auth.jwt_secret is not set; using a generated secret, tokens will not survive a restart")
	}
	tokens := auth.NewTokenService(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	hasher := crypto.NewPasswordHasher(cfg.Auth.BcryptCost)
	scale := service.DefaultRatingScale
	if cfg.Feedback.MinRating != 0 || cfg.Feedback.MaxRating != 0 {
		scale = service.RatingScale{Min: cfg.Feedback.MinRating, Max: cfg.Feedback.MaxRating}
	}

	a.users = service.NewUserService(repos.User, repos.Tx, hasher, photos, locker, a.metrics, logger)
	directory := service.NewDirectoryService(repos.User, logger)
	swaps := service.NewSwapService(repos.Swap, repos.User, repos.Tx, service.SwapPolicy{
		StrictTransitions:  cfg.Swap.StrictTransitions,
		VerifyParticipants: cfg.Swap.VerifyParticipants,
	}, a.metrics, logger)
	feedback := service.NewFeedbackService(repos.Feedback, repos.Tx, scale, a.metrics, logger)
	a.moderation = service.NewModerationService(a.users, swaps, repos.User, repos.Message, repos.Tx, cache, a.metrics, logger)

	if cfg.Admin.Bootstrap {
		if _, err := a.BootstrapAdmin(ctx); err != nil {
			return nil, err
		}
	}

	userHandler := handler.NewUserHandler(a.users, directory, tokens, photos, cfg.Server.MaxBodySize, logger)
	routerCfg := handler.RouterConfig{
		UserHandler:        userHandler,
		SwapHandler:        handler.NewSwapHandler(swaps, logger),
		FeedbackHandler:    handler.NewFeedbackHandler(feedback, logger),
		AdminHandler:       handler.NewAdminHandler(a.moderation, userHandler, logger),
		Tokens:             tokens,
		Users:              a.users,
		Database:           checks,
		Metrics:            a.metrics,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RequireOwnership:   cfg.Auth.RequireOwnership,
		MaxBodySize:        cfg.Server.MaxBodySize,
		Logger:             logger,
	}
	if cfg.Storage.Backend != "s3" {
		routerCfg.Photos = photos
		routerCfg.UploadsPath = cfg.Storage.URLPrefix
	}
	a.handler = handler.NewRouter(routerCfg).Handler()

	return a, nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Backend, error) {
	if cfg.Backend == "s3" {
		return s3store.New(ctx, cfg.S3, cfg.TempDir, logger)
	}
	return filesystem.New(cfg.DataDir, cfg.TempDir, cfg.URLPrefix, logger)
}

// BootstrapAdmin creates the configured administrator if no user holds that
// name yet. It reports whether an account was created.
func (a *App) BootstrapAdmin(ctx context.Context) (bool, error) {
	created, err := a.users.EnsureAdmin(ctx, a.cfg.Admin.Username, a.cfg.Admin.Password)
	if err != nil {
		return false, fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		a.logger.Info().Str("name", a.cfg.Admin.Username).Msg("created bootstrap administrator")
	}
	return created, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler { return a.handler }

// Database returns the connected database.
func (a *App) Database() Database { return a.db }

// Users returns the user service.
func (a *App) Users() *service.UserService { return a.users }

// Moderation returns the moderation service.
func (a *App) Moderation() *service.ModerationService { return a.moderation }

// Run serves the API, and the metrics endpoint when enabled, until ctx is
// cancelled or a server fails. Servers are then shut down gracefully.
func (a *App) Run(ctx context.Context) error {
	sc := a.cfg.Server
	servers := []*http.Server{{
		Addr:         sc.Addr(),
		Handler:      a.handler,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}}
	if a.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(a.cfg.Metrics.Path, a.metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              fmt.Sprintf("%s:%d", sc.Host, a.cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			a.logger.Info().Str("addr", srv.Addr).Msg("listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		timeout := sc.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// Close releases every resource opened by New, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// healthChecks reports the first failing dependency.
type healthChecks []healthChecker

func (h healthChecks) Health(ctx context.Context) error {
	for _, c := range h {
		if err := c.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}
