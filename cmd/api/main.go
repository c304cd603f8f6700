// Package main is the entrypoint for the spendlog API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/cache"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/handler"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/middleware"
	"github.com/spendlog/spendlog/internal/repository"
	"github.com/spendlog/spendlog/internal/server"
	"github.com/spendlog/spendlog/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", sanitizeError(err, cfg.DatabaseURL, cfg.RedisURL)))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		version, err := repo.Migrate(ctx)
		if err != nil {
			repo.Close()
			return err
		}
		logger.Info("database migrated", slog.Int64("version", version))
	}

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		repo.Close()
		return err
	}
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// A typed nil would defeat the services' nil checks.
	var invalidator service.InsightInvalidator
	var insightCache service.InsightCache
	if cfg.InsightsCacheTTL > 0 {
		ic := cache.NewInsightCache(cacheClient, cfg.InsightsCacheTTL)
		invalidator, insightCache = ic, ic
	}

	expenses := service.NewExpenseService(repo, invalidator, recorder, logger)
	insights := service.NewInsightsService(repo, insightCache, recorder, logger)
	accounts := service.NewAccountService(repo, tokens, logger)
	keys := service.NewAPIKeyService(repo, cacheClient, cfg.AppEnv, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := server.NewRouter(server.RouterConfig{
		Logger:   logger,
		Health:   handler.NewHealthHandler(repo, cacheClient),
		Metrics:  handler.NewMetricsHandler(recorder),
		Accounts: handler.NewAccountHandler(accounts, logger),
		Expenses: handler.NewExpenseHandler(expenses, logger),
		Insights: handler.NewInsightsHandler(insights, logger),
		APIKeys:  handler.NewAPIKeyHandler(keys, logger),
		Auth: middleware.AuthConfig{
			Logger:      logger,
			Tokens:      tokens,
			Keys:        repo,
			Cache:       cacheClient,
			Metrics:     recorder,
			MinDuration: middleware.DefaultMinAuthDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:      logger,
			Limiter:     cacheClient,
			Metrics:     recorder,
			APIEnabled:  cfg.RateLimitAPIEnabled,
			AuthEnabled: cfg.RateLimitAuthEnabled,
			AuthRPS:     cfg.RateLimitAuthRPS,
			AuthBurst:   cfg.RateLimitAuthBurst,
		},
		Security: middleware.SecurityConfig{
			IsDevelopment:      cfg.IsDevelopment(),
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		CORS: corsCfg,
	})

	srv := server.New(router, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.Bool("insights_cache", insightCache != nil),
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
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

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
