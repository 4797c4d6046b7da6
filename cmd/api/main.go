package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/stevedore-sh/stevedore/cmd/api/api"
	"github.com/stevedore-sh/stevedore/cmd/api/config"
	"github.com/stevedore-sh/stevedore/lib/backend"
	"github.com/stevedore-sh/stevedore/lib/directory"
	"github.com/stevedore-sh/stevedore/lib/docker"
	"github.com/stevedore-sh/stevedore/lib/httpremote"
	"github.com/stevedore-sh/stevedore/lib/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application terminated", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()

	// Setup logger
	log := logger.New(logLevel(cfg.LogLevel))
	slog.SetDefault(log)

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Select the container backend
	containerBackend, cleanup, err := newBackend(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Optional identity store
	var users backend.UserBackend
	var groups backend.GroupBackend
	if cfg.LdapURL != "" {
		dir := directory.New(directory.Config{
			URL:          cfg.LdapURL,
			BindDN:       cfg.LdapBindDN,
			BindPassword: cfg.LdapBindPassword,
			UserBaseDN:   cfg.LdapUserBaseDN,
			GroupBaseDN:  cfg.LdapGroupBaseDN,
			ReadOnly:     cfg.LdapReadOnly,
		})
		users = dir
		groups = dir
	}

	service := api.New(cfg, containerBackend, users, groups)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(contextLogger(log))

	service.Routes(r)

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Error group for coordinated shutdown
	grp, gctx := errgroup.WithContext(ctx)

	// Run the server
	grp.Go(func() error {
		log.Info("starting API server", "port", cfg.Port, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			return err
		}
		return nil
	})

	// Shutdown handler
	grp.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to shutdown http server", "error", err)
			return err
		}

		log.Info("http server shutdown complete")
		return nil
	})

	return grp.Wait()
}

// newBackend builds the configured container backend. The cleanup function,
// when non-nil, releases the engine client.
func newBackend(cfg *config.Config) (backend.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendDocker:
		adapter, err := docker.New(docker.Config{
			Host:     cfg.DockerHost,
			Registry: cfg.DockerRegistry,
		})
		if err != nil {
			return nil, nil, err
		}
		return adapter, adapter.Close, nil
	case config.BackendRemote:
		if cfg.RemoteURL == "" {
			return nil, nil, errors.New("REMOTE_URL must be set when BACKEND=remote")
		}
		return httpremote.New(httpremote.Config{BaseURL: cfg.RemoteURL}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func contextLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqLog := log.With("request_id", middleware.GetReqID(r.Context()))
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), reqLog)))
		})
	}
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
