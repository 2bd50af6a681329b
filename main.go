package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/auth"
	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/database"
	"github.com/pagepulse/pagepulse/internal/httpserver"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/middleware"
	"github.com/pagepulse/pagepulse/internal/orchestrator"
	"github.com/pagepulse/pagepulse/internal/shopify"
	"github.com/pagepulse/pagepulse/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Can't use logger yet, fall back to standard log
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	logger, err := middleware.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("starting PagePulse",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.Server.Addr),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics("pagepulse")

	// Initialize the shop credential store. Postgres when configured,
	// in-memory otherwise (development installs are lost on restart).
	var shops storage.ShopStore
	if cfg.Database.Enabled {
		db, err := database.NewPostgresDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to PostgreSQL", zap.Error(err))
		}
		defer db.Close()

		pgStore := storage.NewPostgresShopStore(db.Pool)
		if err := pgStore.Migrate(ctx); err != nil {
			logger.Fatal("shop store migration failed", zap.Error(err))
		}
		shops = pgStore
	} else {
		logger.Warn("database disabled, using in-memory shop store")
		shops = storage.NewInMemoryShopStore()
	}

	// Initialize Redis for the result cache
	redis, err := database.NewRedisDB(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	// Optional ClickHouse run-history sink
	var history storage.RunHistory = storage.NopRunHistory{}
	if cfg.History.Enabled {
		ch, err := database.NewClickHouseDB(ctx, cfg.History, logger)
		if err != nil {
			logger.Warn("failed to connect to ClickHouse, run history disabled", zap.Error(err))
		} else {
			defer ch.Close()
			chHistory := storage.NewClickHouseRunHistory(ch.Conn)
			if err := chHistory.Migrate(ctx); err != nil {
				logger.Warn("run history migration failed, run history disabled", zap.Error(err))
			} else {
				history = chHistory
			}
		}
	}

	gateway := shopify.NewClient(cfg.Shopify, logger, m)
	resultCache := cache.NewResultCache(redis.Client, cfg.Cache.TTL, logger, m)
	pipeline := orchestrator.NewPipeline(cfg.Pipeline, gateway, resultCache, history, logger, m)

	// Build dependencies
	deps := &httpserver.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Shops:    shops,
		Sessions: auth.NewSessions(cfg.Session, cfg.IsProduction()),
		OAuth:    auth.NewOAuth(cfg.Shopify, cfg.Server.BaseURL),
		Catalog:  gateway,
		Pipeline: pipeline,
	}

	handler := httpserver.NewServer(deps)

	// Apply middleware chain (order matters: outermost first)
	// Recovery -> Logging -> RateLimit -> Handler
	recoveryMW := middleware.NewRecoveryMiddleware(logger)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	rateLimitMW := middleware.NewRateLimitMiddleware(cfg.RateLimit, logger, m)

	finalHandler := recoveryMW.Handler(
		loggingMW.Handler(
			rateLimitMW.Handler(handler),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           finalHandler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		// Comparison runs can legitimately take the full resolve plus
		// fetch budget, so the write timeout sits above their sum.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	// Start server in goroutine
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Start rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rateLimitMW.CleanupIPLimiters()
			case <-ctx.Done():
				return
			}
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Cancel main context to stop background goroutines
	cancel()

	logger.Info("server stopped")
}
