package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kosarica/deal-planner/config"
	"github.com/kosarica/deal-planner/internal/app"
	"github.com/kosarica/deal-planner/internal/handlers"
	"github.com/kosarica/deal-planner/internal/middleware"
	"github.com/kosarica/deal-planner/internal/sweepers"
	"github.com/kosarica/deal-planner/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "config file (default ./config/config.yaml or ./config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.Logging, "deal-planner")

	logger.Info().Str("source", cfg.Source.Type).Str("cache", cfg.Cache.Backend).Msg("Starting deal planner")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize telemetry")
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build application")
	}
	defer a.Close()

	if pruner, ok := a.Source.(sweepers.Pruner); ok && cfg.Source.PruneInterval > 0 {
		sweeper := sweepers.NewExpiredOfferSweeper(pruner, logger, cfg.Source.PruneInterval)
		go sweeper.Start(ctx)
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewIPRateLimiter(cfg.RateLimit)
	go limiter.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	api.Use(middleware.RateLimitMiddleware(limiter))
	handlers.New(a.Planner, a.Discounts, logger).Register(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to flush traces")
	}

	logger.Info().Msg("Server exited")
}
