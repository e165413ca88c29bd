package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/artpar/muster/internal/shell/api"
	"github.com/artpar/muster/internal/shell/events"
	"github.com/artpar/muster/internal/shell/seed"
	"github.com/artpar/muster/internal/shell/service"
	"github.com/artpar/muster/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitEventsError     = 3
	ExitHTTPServerError = 4
	ExitSeedError       = 5
	ExitExecutionFailed = 6
)

// =============================================================================
// Application
// =============================================================================

// App holds the wired services shared by the serve and execute commands.
type App struct {
	Store       *store.SQLiteStore
	Bus         *events.Bus
	Deployments *service.DeploymentService
	Templates   *service.TemplateService
}

// NewApp opens the database and wires the services. The event bus is created
// only when enabled and is started by the caller.
func NewApp(cfg *Config, logger *slog.Logger) (*App, error) {
	if err := ensureDataDir(cfg.Database.DSN); err != nil {
		return nil, &ServerError{Op: "NewApp", Err: err, ExitCode: ExitDatabaseError}
	}

	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{Op: "NewApp", Err: err, ExitCode: ExitDatabaseError}
	}

	var (
		bus *events.Bus
		pub events.Publisher = events.Nop{}
	)
	if cfg.Events.Enabled {
		bus, err = events.NewBus(events.Config{Buffer: cfg.Events.Buffer}, logger)
		if err != nil {
			s.Close()
			return nil, &ServerError{Op: "NewApp", Err: err, ExitCode: ExitEventsError}
		}
		pub = bus
	}

	return &App{
		Store: s,
		Bus:   bus,
		Deployments: service.NewDeploymentService(s, pub, logger, service.DeploymentOptions{
			StrictSteps: cfg.Workflow.StrictSteps,
		}),
		Templates: service.NewTemplateService(s, pub, logger, service.TemplateOptions{
			ExecutionTimeout: cfg.Workflow.ExecutionTimeout,
		}),
	}, nil
}

// Close releases the bus and the database.
func (a *App) Close(logger *slog.Logger) {
	if a.Bus != nil {
		if err := a.Bus.Close(); err != nil {
			logger.Error("event bus close error", "error", err)
		}
	}
	if err := a.Store.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}
}

func ensureDataDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// =============================================================================
// Server
// =============================================================================

// Server represents the Muster application server.
type Server struct {
	config     *Config
	app        *App
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the application, applies the seed file and builds the
// HTTP server.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	app, err := NewApp(cfg, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Seed.TemplatesFile != "" {
		f, err := seed.LoadFile(cfg.Seed.TemplatesFile)
		if err == nil {
			_, err = seed.Apply(context.Background(), app.Templates, f, logger)
		}
		if err != nil {
			app.Close(logger)
			return nil, &ServerError{Op: "NewServer", Err: err, ExitCode: ExitSeedError}
		}
	}

	handler := api.NewHandler(app.Deployments, app.Templates, app.Store, logger, Version)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:     cfg,
		app:        app,
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	if s.app.Bus != nil {
		s.app.Bus.Start(busCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		s.app.Close(s.logger)
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.app.Close(s.logger)

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
