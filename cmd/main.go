// ABOUTME: This file is the service entry point for period-selector-sidecar
// ABOUTME: Wires config, driver, collection registry, services and the HTTP API

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"period-selector-sidecar/collection"
	"period-selector-sidecar/config"
	"period-selector-sidecar/driver"
	"period-selector-sidecar/handler"
	"period-selector-sidecar/models"
	"period-selector-sidecar/repository"
	"period-selector-sidecar/service"
	"period-selector-sidecar/utils"
)

func main() {
	healthCheck := flag.Bool("health-check", false, "Perform health check and exit")
	flag.Parse()

	// Best effort; production config comes from real environment variables
	_ = godotenv.Load()

	logger := setupLogger()

	if *healthCheck {
		os.Exit(performHealthCheck())
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Period selector sidecar starting",
		"service", cfg.ServiceName,
		"collection_key", cfg.Selector.CollectionKey,
		"sync_entity", cfg.Selector.SyncEntity,
		"sync_direction", cfg.Selector.SyncDirection)

	if err := run(cfg, logger); err != nil {
		logger.Error("Service terminated with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger() *slog.Logger {
	var level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func run(cfg *config.Config, logger *slog.Logger) error {
	monitor := utils.NewMonitor(logger)

	homeClient := driver.NewHomeClient(driver.HomeClientConfig{
		BaseURL:        cfg.HomePlatform.BaseURL,
		AccessToken:    cfg.HomePlatform.AccessToken,
		RequestTimeout: cfg.HomePlatform.RequestTimeout,
		RatePerSecond:  cfg.HomePlatform.RatePerSecond,
		RateBurst:      cfg.HomePlatform.RateBurst,
	}, logger)

	repo := repository.NewHomePlatformRepository(homeClient, logger)
	locales := service.NewLocaleService()

	registry := collection.NewRegistry(
		repo,
		repo,
		locales.WeekStartsOn(cfg.Selector.Locale),
		collection.DefaultTiming(),
		monitor,
		logger,
	)

	syncSvc := service.NewEntitySyncService(repo, service.DefaultSyncTiming(), monitor, logger)
	selector := service.NewSelectorService(
		registry,
		syncSvc,
		locales,
		cfg.Selector.Locale,
		service.DefaultNavTiming(),
		monitor,
		logger,
	)

	startupConfig := models.SelectorConfig{
		SyncEntity:    cfg.Selector.SyncEntity,
		SyncDirection: models.SyncDirection(cfg.Selector.SyncDirection),
		CollectionKey: cfg.Selector.CollectionKey,
	}
	if err := selector.ApplyConfig(startupConfig); err != nil {
		return fmt.Errorf("startup selector config: %w", err)
	}
	selector.Mount()
	defer selector.Unmount()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Event stream feeds the entity sync pull path until shutdown.
	events := handler.NewStateChangedHandler(syncSvc, logger)
	go func() {
		if err := homeClient.StreamEvents(ctx, events.Handle); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Event stream terminated", "error", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("HTTP request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status)
			return nil
		},
	}))

	api := handler.NewSelectorAPIHandler(selector, monitor, logger)
	api.RegisterRoutes(e)

	serverErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func performHealthCheck() int {
	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + port + "/v1/health")
	if err != nil {
		fmt.Fprintln(os.Stderr, "health check failed:", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, "health check failed: HTTP", resp.StatusCode)
		return 1
	}

	fmt.Println("OK")
	return 0
}
