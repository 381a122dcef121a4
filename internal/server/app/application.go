// Package app wires the backend services and manages the HTTP server
// lifecycle.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/pawsync/pawsync/internal/server/auth"
	"github.com/pawsync/pawsync/internal/server/config"
	"github.com/pawsync/pawsync/internal/server/health"
	"github.com/pawsync/pawsync/internal/server/httpapi"
	"github.com/pawsync/pawsync/internal/server/metrics"
	"github.com/pawsync/pawsync/internal/server/middleware"
	petsvc "github.com/pawsync/pawsync/internal/server/services/pets"
	recsvc "github.com/pawsync/pawsync/internal/server/services/records"
	"github.com/pawsync/pawsync/internal/server/services/subscriptions"
	ticketsvc "github.com/pawsync/pawsync/internal/server/services/tickets"
	usersvc "github.com/pawsync/pawsync/internal/server/services/users"
	"github.com/pawsync/pawsync/internal/server/storage"
	"github.com/pawsync/pawsync/internal/server/storage/memory"
	"github.com/pawsync/pawsync/internal/server/storage/postgres"
	"github.com/pawsync/pawsync/pkg/logger"
)

// Version is stamped at build time.
var Version = "dev"

// Application bundles the wired services and the HTTP server.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	server  *http.Server
	sweeper *subscriptions.Sweeper
	rate    *middleware.RateLimiter
	db      *sql.DB
}

// New constructs the application from configuration.
func New(cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Service: "pawsyncd",
	})

	var (
		store storage.Store
		db    *sql.DB
	)
	if cfg.Database.DSN != "" {
		var err error
		db, err = postgres.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		store = postgres.New(db)
		log.Info("using postgres storage")
	} else {
		store = memory.New()
		log.Warn("no database configured; using in-memory storage")
	}

	users := usersvc.New(store, log)
	pets := petsvc.New(store, log)
	records := recsvc.New(store, store, users, log)
	tickets := ticketsvc.New(store, log)
	issuer := auth.NewIssuer([]byte(cfg.Auth.Secret), cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	handler := httpapi.NewHandler(users, pets, records, tickets, issuer, log)
	router := handler.Routes()
	router.Handle("/healthz", health.NewChecker(Version).Handler()).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authMW := middleware.NewAuthMiddleware([]byte(cfg.Auth.Secret), log, httpapi.AuthSkipPaths())
	rateMW := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, log)
	rateMW.StartCleanup(10 * time.Minute)
	corsMW := middleware.NewCORSMiddleware(cfg.Server.AllowedOrigins)

	var h http.Handler = router
	h = authMW.Handler(h)
	h = rateMW.Handler(h)
	h = corsMW.Handler(h)
	h = metrics.InstrumentHandler(h)

	return &Application{
		cfg: cfg,
		log: log,
		server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sweeper: subscriptions.NewSweeper(store, cfg.Sweeper.Schedule, log),
		rate:    rateMW,
		db:      db,
	}, nil
}

// Run starts the sweeper and the HTTP server, blocking until the context is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the server, the sweeper and the database connection.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var first error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		first = err
	}
	if err := a.sweeper.Stop(shutdownCtx); err != nil && first == nil {
		first = err
	}
	a.rate.StopCleanup()
	if a.db != nil {
		if err := a.db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
