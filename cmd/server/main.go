// Package main is the entry point for the bridge server binary. It wires
// the connection pool, the middleware chain, and the resource API, then
// serves until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"snowbridge/internal/api"
	"snowbridge/internal/config"
	"snowbridge/internal/middleware"
	"snowbridge/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		envFile    string
	)
	cmd := &cobra.Command{
		Use:           "snowbridge",
		Short:         "REST to SQL bridge for warehouse resource management",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), addr, configPath, envFile)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides LISTEN_ADDR)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML configuration file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "environment file loaded before configuration")
	return cmd
}

func run(ctx context.Context, addr, configPath, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	mgr := session.NewManager(cfg.Backend.DriverConfig())
	defer mgr.Close() //nolint:errcheck
	exec := session.NewPoolExecutor(mgr, logger)

	router := chi.NewRouter()
	router.Use(chimw.Logger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	router.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	validator, err := buildValidator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Group(func(r chi.Router) {
		if validator != nil {
			r.Use(middleware.Authenticate(validator))
		}
		api.NewHandler(exec, logger).Routes(r)
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("bridge listening", "addr", cfg.ListenAddr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildValidator picks the token validator from configuration: OIDC when
// an issuer is set, the shared HS256 secret otherwise, nil when neither
// is configured (development only).
func buildValidator(ctx context.Context, cfg *config.Config) (middleware.TokenValidator, error) {
	switch {
	case cfg.Auth.OIDCEnabled():
		return middleware.NewOIDCValidator(ctx, cfg.Auth.IssuerURL, cfg.Auth.Audience)
	case cfg.Auth.JWTSecret != "":
		return middleware.NewHS256Validator(cfg.Auth.JWTSecret)
	default:
		return nil, nil
	}
}
