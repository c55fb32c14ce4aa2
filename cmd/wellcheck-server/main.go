package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wellcheck/wellcheck/internal/config"
	"github.com/wellcheck/wellcheck/internal/domain/assessment"
	"github.com/wellcheck/wellcheck/internal/domain/catalog"
	"github.com/wellcheck/wellcheck/internal/platform/auth"
	"github.com/wellcheck/wellcheck/internal/platform/db"
	"github.com/wellcheck/wellcheck/internal/platform/middleware"
	"github.com/wellcheck/wellcheck/pkg/scoring"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:          "wellcheck-server",
		Short:        "Psychometric assessment scoring API",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(assessCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func jwtConfig(cfg *config.Config) auth.JWTConfig {
	return auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: unauthenticated requests are served as dev-user with every role")
	}

	ctx := context.Background()
	deps, err := openBackends(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open backends")
	}
	defer deps.Close(context.Background())

	catalogSvc, err := buildCatalog(cfg, deps, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load catalog")
	}
	records, err := buildResults(ctx, cfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open results store")
	}
	engine := scoring.NewEngine(catalogSvc)
	assessSvc := assessment.NewService(engine, records, logger)

	e := newServer(cfg, logger, catalogSvc, assessSvc)
	e.GET("/health/db", db.HealthHandler(deps.pool, deps.Checks()))

	go func() {
		addr := ":" + cfg.Port
		logger.Info().
			Str("addr", addr).
			Str("catalog_source", cfg.CatalogSource).
			Str("results_backend", cfg.ResultsBackend).
			Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with global middleware and every
// API route. /health/db is added by the caller because it needs the
// live backends.
func newServer(cfg *config.Config, logger zerolog.Logger, catalogSvc *catalog.Service, assessSvc *assessment.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})

	rateLimitCfg := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rateLimitCfg.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rateLimitCfg.BurstSize = cfg.RateLimitBurst
	}

	var authMW echo.MiddlewareFunc
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtConfig(cfg))
	} else {
		authMW = auth.JWTMiddleware(jwtConfig(cfg))
	}

	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout), middleware.RateLimit(rateLimitCfg), authMW)
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1, middleware.ETag(middleware.DefaultCacheConfig()))
	assessment.NewHandler(assessSvc).RegisterRoutes(apiV1, middleware.Audit(logger))
	return e
}
