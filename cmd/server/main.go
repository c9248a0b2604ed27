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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/api"
	"github.com/lumen-social/lumen/internal/client"
	"github.com/lumen-social/lumen/pkg/config"
	"github.com/lumen-social/lumen/pkg/logging"
	"github.com/lumen-social/lumen/pkg/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting Lumen API Server")

	// Initialize telemetry
	telemetryShutdown, err := telemetry.Init(&cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cl, err := client.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize backends", zap.Error(err))
	}
	defer func() {
		if err := cl.Close(); err != nil {
			logger.Warn("Failed to close backends", zap.Error(err))
		}
	}()

	go cl.RunSweeper(ctx)

	// Create Gin router
	if cfg.Logging.Level == "DEBUG" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	sharedMetrics := cfg.Telemetry.PrometheusEnabled && cfg.Telemetry.PrometheusPort == cfg.Server.Port
	api.NewRouter(cl, sharedMetrics).SetupRoutes(engine)

	servers := []*http.Server{{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}}
	if cfg.Telemetry.PrometheusEnabled && !sharedMetrics {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		servers = append(servers, &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Telemetry.PrometheusPort),
			Handler: mux,
		})
	}

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("Server starting", zap.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("Server failed to start", zap.Error(err))
			}
		}(srv)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.String("address", srv.Addr), zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
