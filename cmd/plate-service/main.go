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

	"plate-service/internal/auth"
	"plate-service/internal/config"
	"plate-service/internal/db"
	httphandler "plate-service/internal/http"
	"plate-service/internal/http/middleware"
	"plate-service/internal/logger"
	"plate-service/internal/remote"
	"plate-service/internal/repository"
	"plate-service/internal/service"
	"plate-service/internal/storage"
	"plate-service/internal/watchlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	plateRepo := repository.NewPlateRepository(database)
	watchlistRepo := repository.NewWatchlistRepository(database)

	hotSheet := watchlist.NewCache(watchlistRepo, appLogger)
	if err := hotSheet.Warm(context.Background()); err != nil {
		appLogger.Fatal().Err(err).Msg("failed to warm hot sheet cache")
	}

	dispatch := remote.NewClient(cfg.Remote)

	plateService := service.NewPlateService(plateRepo, hotSheet, cfg.Plate.MaxLength, cfg.Plate.HotRefreshInterval, appLogger)
	syncService := service.NewSyncService(plateRepo, dispatch, hotSheet, plateService, cfg.Plate.HotRefreshInterval, appLogger)

	// Initialize photo storage (optional, won't fail if not configured)
	photos, err := storage.NewPhotoStoreFromEnv()
	if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		appLogger.Fatal().Err(err).Msg("failed to initialize photo storage")
	}
	if err != nil {
		appLogger.Warn().Msg("photo storage not configured, uploads will be disabled")
	}

	refresherCtx, stopRefresher := context.WithCancel(context.Background())
	go syncService.RunWatchlistRefresher(refresherCtx, cfg.Plate.WatchlistRefreshPeriod)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(plateService, syncService, hotSheet, photos, cfg, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, database, appLogger)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting plate service")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error().Err(err).Msg("failed to start server")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down server")
	stopRefresher()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("server forced to shutdown")
	}

	appLogger.Info().Msg("server exited")
}
