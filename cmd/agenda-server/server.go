package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinic/agenda/internal/config"
	"github.com/clinic/agenda/internal/domain/scheduling"
	"github.com/clinic/agenda/internal/platform/auth"
	"github.com/clinic/agenda/internal/platform/db"
	"github.com/clinic/agenda/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func poolOptions(cfg *config.Config) db.PoolOptions {
	return db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		ConnectTimeout:  5 * time.Second,
	}
}

// backend is the persistence side of the server for the configured driver.
type backend struct {
	store scheduling.AvailabilityStore
	probe db.Probe
	close func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*backend, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		gdb, err := db.OpenMySQL(cfg.DatabaseURL, poolOptions(cfg), logger)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("access sql handle: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		return &backend{
			store: scheduling.NewGormStore(gdb),
			probe: db.SQLProbe(config.DriverMySQL, sqlDB),
			close: func() { sqlDB.Close() },
		}, nil
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, poolOptions(cfg))
		if err != nil {
			return nil, err
		}
		return &backend{
			store: scheduling.NewPostgresStore(pool),
			probe: db.PgxProbe(pool),
			close: pool.Close,
		}, nil
	}
}

// newLimiter shares rate limit counters through Redis when REDIS_URL is set.
// An unreachable Redis falls back to per-process buckets.
func newLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (middleware.Limiter, func()) {
	rlCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		Window:            cfg.RateLimitWindow,
	}
	if rlCfg.RequestsPerSecond <= 0 || rlCfg.BurstSize <= 0 {
		rlCfg = middleware.DefaultRateLimitConfig()
	}
	noop := func() {}

	if cfg.RedisURL == "" {
		return middleware.NewMemoryLimiter(rlCfg), noop
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid REDIS_URL, using in-memory rate limiting")
		return middleware.NewMemoryLimiter(rlCfg), noop
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		logger.Warn().Err(err).Msg("redis unreachable, using in-memory rate limiting")
		return middleware.NewMemoryLimiter(rlCfg), noop
	}
	logger.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return middleware.NewRedisLimiter(rdb, rlCfg), func() { rdb.Close() }
}

func newServer(cfg *config.Config, logger zerolog.Logger, b *backend, limiter middleware.Limiter) (*echo.Echo, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	mgr := scheduling.NewManager(b.store, scheduling.NewValidator(policy),
		scheduling.WithLogger(logger.With().Str("component", "scheduling").Logger()),
		scheduling.WithStoreTimeout(cfg.StoreTimeout),
		scheduling.WithSlotGenerator(scheduling.NewSlotGenerator(cfg.DefaultSlotMinutes)),
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout, "/health"))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(b.probe))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
	}
	authMW := auth.JWTMiddleware(jwtCfg)
	if cfg.IsDev() {
		authMW = auth.DevAuthMiddleware(jwtCfg)
	}

	api := e.Group("/api/v1", authMW, middleware.RateLimit(limiter, logger))
	scheduling.NewHandler(mgr).RegisterRoutes(api)

	return e, nil
}

func runServer() error {
	cfg, err := config.Load()
	logger := newLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("ENV=development: requests without a token are treated as admin")
	}

	ctx := context.Background()
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}
	defer b.close()
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	e, err := newServer(cfg, logger, b, limiter)
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("starting server")
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
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
