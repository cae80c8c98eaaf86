package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcredential "github.com/opsdesk/backend/internal/application/credential"
	"github.com/opsdesk/backend/internal/domain/credential"
	"github.com/opsdesk/backend/internal/infrastructure/cache"
	"github.com/opsdesk/backend/internal/infrastructure/config"
	"github.com/opsdesk/backend/internal/infrastructure/logger"
	"github.com/opsdesk/backend/internal/infrastructure/persistence"
	"github.com/opsdesk/backend/internal/infrastructure/salla"
	"github.com/opsdesk/backend/internal/infrastructure/scheduler"
	"github.com/opsdesk/backend/internal/interfaces/http/handler"
	"github.com/opsdesk/backend/internal/interfaces/http/router"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	tokenRepo := persistence.NewGormMerchantTokenRepository(db.DB)

	tokenCache, closeCache, err := buildTokenCache(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize token cache: %w", err)
	}
	defer closeCache()

	sallaCfg := salla.NewConfig(cfg.Salla.ClientID, cfg.Salla.ClientSecret)
	sallaCfg.APIBaseURL = cfg.Salla.APIBaseURL
	sallaCfg.AccountsBaseURL = cfg.Salla.AccountsBaseURL
	if cfg.Salla.TimeoutSeconds > 0 {
		sallaCfg.TimeoutSeconds = cfg.Salla.TimeoutSeconds
	}
	sallaClient, err := salla.NewClient(sallaCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize salla client: %w", err)
	}

	lockManager := appcredential.NewLockManager(tokenRepo, appcredential.LockManagerConfig{
		LockTimeout:  cfg.TokenRefresh.LockTimeout,
		MaxRetries:   cfg.TokenRefresh.MaxRetries,
		RetryBackoff: cfg.TokenRefresh.RetryBackoff,
	}, log)
	refreshService := appcredential.NewRefreshService(tokenRepo, sallaClient, lockManager, tokenCache, appcredential.RefreshConfig{
		RefreshWindow: cfg.TokenRefresh.RefreshWindow,
		MaxRetries:    cfg.TokenRefresh.MaxRetries,
		RetryBackoff:  cfg.TokenRefresh.RetryBackoff,
	}, log)
	tokenProvider := appcredential.NewTokenProvider(tokenRepo, refreshService, tokenCache, cfg.TokenRefresh.RefreshWindow, log)
	sweeper := appcredential.NewExpirySweeper(tokenRepo, refreshService, appcredential.SweeperConfig{
		RefreshWindow:         cfg.TokenRefresh.RefreshWindow,
		ForcedRefreshInterval: cfg.TokenRefresh.ForcedRefreshInterval,
	}, log)

	merchantAPI := salla.NewMerchantAPI(sallaClient, tokenProvider, log)

	var sweepTrigger *scheduler.TokenSweepTrigger
	if cfg.Sweeper.Enabled {
		sweepTrigger = scheduler.NewTokenSweepTrigger(scheduler.TokenSweepTriggerConfig{
			Interval: cfg.Sweeper.Interval,
		}, sweeper, log)
		if err := sweepTrigger.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start token sweep trigger: %w", err)
		}
	}

	engine := router.New(log, handler.NewHealthHandler(db)).
		Register(handler.NewTokenHandler(tokenRepo, refreshService, sweeper, cfg.TokenRefresh.RefreshWindow, log)).
		Register(handler.NewOrderHandler(merchantAPI, log)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweepTrigger != nil {
		if err := sweepTrigger.Stop(shutdownCtx); err != nil {
			log.Warn("Token sweep trigger did not stop cleanly", zap.Error(err))
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// buildTokenCache picks the token read cache backend. Redis when enabled,
// otherwise a process-local cache suitable for single-instance deployments.
func buildTokenCache(cfg *config.Config, log *zap.Logger) (credential.TokenCache, func(), error) {
	if !cfg.Redis.Enabled {
		return cache.NewInMemoryTokenCache(), func() {}, nil
	}
	redisCache, err := cache.NewRedisTokenCache(cache.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return redisCache, func() {
		if err := redisCache.Close(); err != nil {
			log.Warn("Failed to close redis token cache", zap.Error(err))
		}
	}, nil
}
