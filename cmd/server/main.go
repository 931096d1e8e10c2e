package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus_api/internal/config"
	"campus_api/internal/handler"
	"campus_api/internal/query"
	"campus_api/internal/repository"
	"campus_api/internal/schema"
	"campus_api/internal/service"
	"campus_api/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	// --- Configuration ---
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := utils.NewLogger(os.Stdout, appCfg.LogLevel)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	reg, err := schema.Default()
	if err != nil {
		logger.Error("invalid schema", "error", err)
		os.Exit(1)
	}

	// --- Storage ---
	var (
		store repository.Store
		db    handler.Pinger
	)
	switch appCfg.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		store = repository.NewMemStore()
	default:
		dbCfg, err := config.LoadDBConfig()
		if err != nil {
			logger.Error("failed to load DB config", "error", err)
			os.Exit(1)
		}
		dbPool, err := config.ConnectDB(context.Background(), dbCfg, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := config.AutoMigrate(context.Background(), dbPool, reg, logger); err != nil {
			logger.Error("failed to auto-migrate database", "error", err)
			os.Exit(1)
		}
		store = repository.NewPgStore(dbPool)
		db = dbPool
	}

	// --- Services ---
	jwtUtil := utils.NewJWTUtil(appCfg.JWTSecrets, appCfg.JWTExpirationHours)
	resources := service.NewResourceService(store, query.Options{
		DefaultLimit: appCfg.DefaultPageSize,
		MaxLimit:     appCfg.MaxPageSize,
	})

	gin.SetMode(gin.ReleaseMode)
	router, err := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Registry:       reg,
		Resources:      resources,
		Marketplace:    service.NewMarketplaceService(resources, store.Accounts(), reg, logger),
		Auth:           service.NewAuthService(store.Accounts(), jwtUtil, appCfg.InitialAdminEmail, logger),
		Tokens:         jwtUtil,
		Accounts:       service.NewAccountChecker(store.Accounts(), appCfg.AccountCacheSize, appCfg.AccountCacheTTL),
		DB:             db,
		CORSOrigins:    appCfg.CORSAllowedOrigins,
		RequestTimeout: appCfg.RequestTimeout,
	})
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + appCfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", appCfg.ServerPort, "store", appCfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exiting")
}
