package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"gamerlink/client/internal/api"
	"gamerlink/client/internal/audit"
	"gamerlink/client/internal/config"
	"gamerlink/client/internal/observability"
	"gamerlink/client/internal/session"
	_ "github.com/lib/pq"
)

const serviceName = "gamerlink-client"

// App holds the wired session manager and gateway client for one process.
type App struct {
	cfg      config.Config
	log      *slog.Logger
	Sessions *session.Manager
	Client   *api.Client
	Audit    *audit.Logger

	closers []func() error
	tracing func(context.Context) error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := observability.NewLogger(cfg.LogLevel)
	return newWithLogger(ctx, cfg, logger)
}

func newWithLogger(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}

	tp, shutdown, err := observability.SetupTracing(ctx, cfg.OTelEndpoint, serviceName)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.tracing = shutdown

	store, err := a.openStore()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Audit = audit.NewLogger(cfg.AuditLogFile)
	a.Sessions = session.NewManager(store, session.ManagerConfig{
		Logger: logger,
		Audit:  a.Audit,
	})

	a.Client, err = api.New(cfg.APIBaseURL, a.Sessions,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		api.WithLogger(logger),
		api.WithTracerProvider(tp),
		api.WithRetry(api.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		}),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create api client: %w", err)
	}

	logger.Debug("app initialised", "backend", cfg.Session.Backend, "api", cfg.APIBaseURL)
	return a, nil
}

func (a *App) openStore() (session.Store, error) {
	switch a.cfg.Session.Backend {
	case config.SessionBackendMemory:
		return session.NewMemoryStore(), nil
	case config.SessionBackendFile:
		store, err := session.NewFileStore(a.cfg.Session.File)
		if err != nil {
			return nil, fmt.Errorf("create file session store: %w", err)
		}
		return store, nil
	case config.SessionBackendSQLite:
		store, err := session.OpenSQLiteStore(a.cfg.Session.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("create sqlite session store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	case config.SessionBackendPostgres:
		db, err := sql.Open("postgres", a.cfg.Session.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		store, err := session.NewPostgresStore(db, sessionKey(a.cfg.Session.Key))
		if err != nil {
			return nil, fmt.Errorf("create postgres session store: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
}

// sessionKey names this client's row in a shared sessions table.
func sessionKey(configured string) string {
	if configured != "" {
		return configured
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "default"
	}
	return host
}

func (a *App) Logger() *slog.Logger {
	return a.log
}

// Close releases the session store and flushes pending spans.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.tracing != nil {
		if err := a.tracing(context.Background()); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		a.tracing = nil
	}
	return errors.Join(errs...)
}
